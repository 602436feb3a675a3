// Package aoi resolves a caller-supplied area of interest into the bounds
// form the fetch capabilities expect.
package aoi

import (
	"fmt"

	"github.com/paulmach/orb/geojson"

	"github.com/minhvu/geofetch/internal/core/domain"
)

// Resolve turns an AOI into a validated WGS84 bounding box. A rectangle is
// validated and passed through; a GeoJSON geometry is decoded and its bound
// computed. Resolution failure aborts a job before any layer is attempted.
func Resolve(a domain.AOI) (domain.Bounds, error) {
	switch {
	case a.Bounds != nil:
		if err := validate(*a.Bounds); err != nil {
			return domain.Bounds{}, err
		}
		return *a.Bounds, nil

	case len(a.Geometry) > 0:
		geom, err := geojson.UnmarshalGeometry(a.Geometry)
		if err != nil {
			return domain.Bounds{}, fmt.Errorf("%w: %v", domain.ErrInvalidAOI, err)
		}
		bound := geom.Geometry().Bound()
		b := domain.Bounds{
			MinX: bound.Min.X(),
			MinY: bound.Min.Y(),
			MaxX: bound.Max.X(),
			MaxY: bound.Max.Y(),
		}
		if err := validate(b); err != nil {
			return domain.Bounds{}, err
		}
		return b, nil

	default:
		return domain.Bounds{}, fmt.Errorf("%w: either bounds or geometry must be provided", domain.ErrInvalidAOI)
	}
}

func validate(b domain.Bounds) error {
	if b.MinX >= b.MaxX || b.MinY >= b.MaxY {
		return fmt.Errorf("%w: bounds are degenerate", domain.ErrInvalidAOI)
	}
	if b.MinX < -180 || b.MaxX > 180 || b.MinY < -90 || b.MaxY > 90 {
		return fmt.Errorf("%w: bounds outside WGS84 range", domain.ErrInvalidAOI)
	}
	return nil
}
