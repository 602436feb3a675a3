package domain

import "encoding/json"

// Bounds is a WGS84 bounding box (west, south, east, north).
type Bounds struct {
	MinX float64 `json:"minx"`
	MinY float64 `json:"miny"`
	MaxX float64 `json:"maxx"`
	MaxY float64 `json:"maxy"`
}

// AOI is the caller-supplied area of interest: either an explicit bounding
// box or an arbitrary GeoJSON geometry. Exactly one of the two must be set.
type AOI struct {
	Bounds   *Bounds         `json:"bounds,omitempty"`
	Geometry json.RawMessage `json:"geometry,omitempty"`
}
