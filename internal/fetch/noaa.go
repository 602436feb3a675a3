package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/minhvu/geofetch/internal/core/domain"
)

const noaaBaseURL = "https://hdsc.nws.noaa.gov/cgi-bin/hdsc/new/fe_text.csv"

// NOAASource fetches precipitation frequency estimates from the NOAA
// Atlas 14 PFDS service for the AOI centroid. Layer ids encode the query:
// "<series>_<data>_<units>", e.g. "pds_depth_english".
type NOAASource struct {
	BaseURL string
	client  *http.Client
}

func NewNOAASource(client *http.Client) *NOAASource {
	return &NOAASource{BaseURL: noaaBaseURL, client: client}
}

func (s *NOAASource) ID() string   { return "noaa_atlas14" }
func (s *NOAASource) Name() string { return "NOAA Atlas 14" }
func (s *NOAASource) Description() string {
	return "NOAA Atlas 14 precipitation frequency estimates"
}

func (s *NOAASource) Layers() []domain.LayerInfo {
	return []domain.LayerInfo{
		{ID: "pds_depth_english", Name: "PDS Depth (in)", Description: "Partial duration series, depth, english units", GeometryType: "Point", DataType: "Tabular"},
		{ID: "pds_depth_metric", Name: "PDS Depth (mm)", Description: "Partial duration series, depth, metric units", GeometryType: "Point", DataType: "Tabular"},
		{ID: "pds_intensity_english", Name: "PDS Intensity (in/hr)", Description: "Partial duration series, intensity, english units", GeometryType: "Point", DataType: "Tabular"},
		{ID: "ams_depth_english", Name: "AMS Depth (in)", Description: "Annual maximum series, depth, english units", GeometryType: "Point", DataType: "Tabular"},
	}
}

func (s *NOAASource) FetchLayer(ctx context.Context, layerID string, bounds domain.Bounds,
	outDir string, opts domain.SourceOptions) (*domain.LayerOutcome, error) {

	parts := strings.Split(layerID, "_")
	if len(parts) != 3 {
		return &domain.LayerOutcome{LayerID: layerID},
			fmt.Errorf("invalid layer id format %q, want <series>_<data>_<units>", layerID)
	}
	series, data, units := parts[0], parts[1], parts[2]

	// Atlas 14 is a point service: query at the AOI centroid.
	lat := (bounds.MinY + bounds.MaxY) / 2
	lon := (bounds.MinX + bounds.MaxX) / 2

	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%.6f", lat))
	params.Set("lon", fmt.Sprintf("%.6f", lon))
	params.Set("data", data)
	params.Set("units", units)
	params.Set("series", series)

	outPath := filepath.Join(outDir, fmt.Sprintf("noaa_%s_%.4f_%.4f.csv", layerID, lat, lon))
	size, err := getToFile(ctx, s.client, s.BaseURL+"?"+params.Encode(), outPath)
	if err != nil {
		return &domain.LayerOutcome{LayerID: layerID, FilePath: outPath}, err
	}

	body, err := os.ReadFile(outPath)
	if err != nil {
		return &domain.LayerOutcome{LayerID: layerID, FilePath: outPath}, err
	}
	if strings.Contains(string(body), "No data available") {
		return &domain.LayerOutcome{LayerID: layerID, FilePath: outPath},
			fmt.Errorf("no precipitation frequency data available at %.4f,%.4f", lat, lon)
	}

	count := 0
	for _, line := range strings.Split(string(body), "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}

	return &domain.LayerOutcome{
		LayerID:       layerID,
		FeatureCount:  count,
		FilePath:      outPath,
		FileSizeBytes: size,
		Metadata: map[string]string{
			"source":   s.ID(),
			"centroid": fmt.Sprintf("%.6f,%.6f", lat, lon),
			"series":   series,
			"units":    units,
		},
	}, nil
}
