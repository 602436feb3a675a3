package manager

import "github.com/minhvu/geofetch/internal/core/domain"

// Summary condenses per-layer outcomes into the counters a status reader
// wants.
type Summary struct {
	TotalLayers      int     `json:"total_layers"`
	SuccessfulLayers int     `json:"successful_layers"`
	FailedLayers     int     `json:"failed_layers"`
	TotalFeatures    int     `json:"total_features"`
	SuccessRate      float64 `json:"success_rate"`
}

// Aggregate summarizes a result set. The success rate is 0 for an empty
// result set.
func Aggregate(results []domain.LayerOutcome) Summary {
	s := Summary{TotalLayers: len(results)}
	for _, r := range results {
		if r.Success {
			s.SuccessfulLayers++
			s.TotalFeatures += r.FeatureCount
		} else {
			s.FailedLayers++
		}
	}
	if s.TotalLayers > 0 {
		s.SuccessRate = float64(s.SuccessfulLayers) / float64(s.TotalLayers)
	}
	return s
}
