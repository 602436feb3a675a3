package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/paulmach/orb/geojson"

	"github.com/minhvu/geofetch/internal/core/domain"
)

const femaBaseURL = "https://hazards.fema.gov/arcgis/rest/services/public/NFHL/MapServer"

// FEMASource fetches National Flood Hazard Layer data from the FEMA NFHL
// MapServer REST API as GeoJSON, clipped server-side to the AOI envelope.
type FEMASource struct {
	BaseURL string
	client  *http.Client
}

func NewFEMASource(client *http.Client) *FEMASource {
	return &FEMASource{BaseURL: femaBaseURL, client: client}
}

func (s *FEMASource) ID() string   { return "fema" }
func (s *FEMASource) Name() string { return "FEMA NFHL" }
func (s *FEMASource) Description() string {
	return "FEMA National Flood Hazard Layer flood zones, BFEs and related layers"
}

func (s *FEMASource) Layers() []domain.LayerInfo {
	return []domain.LayerInfo{
		{ID: "3", Name: "FIRM_Panels", Description: "FIRM Panels", GeometryType: "Polygon", DataType: "Vector"},
		{ID: "14", Name: "Cross_Sections", Description: "Cross Sections", GeometryType: "Line", DataType: "Vector"},
		{ID: "16", Name: "Base_Flood_Elevations", Description: "Base Flood Elevations", GeometryType: "Line", DataType: "Vector"},
		{ID: "20", Name: "Water_Lines", Description: "Stream centerlines", GeometryType: "Line", DataType: "Vector"},
		{ID: "27", Name: "Flood_Hazard_Boundaries", Description: "Flood Hazard Boundaries", GeometryType: "Line", DataType: "Vector"},
		{ID: "28", Name: "Flood_Hazard_Zones", Description: "Flood Hazard Zones", GeometryType: "Polygon", DataType: "Vector"},
	}
}

func (s *FEMASource) FetchLayer(ctx context.Context, layerID string, bounds domain.Bounds,
	outDir string, opts domain.SourceOptions) (*domain.LayerOutcome, error) {

	format := "geojson"
	if opts.OutputFormat != "" {
		format = opts.OutputFormat
	}
	where := "1=1"
	if w := opts.Extra["where"]; w != "" {
		where = w
	}

	params := url.Values{}
	params.Set("where", where)
	params.Set("geometry", fmt.Sprintf("%f,%f,%f,%f", bounds.MinX, bounds.MinY, bounds.MaxX, bounds.MaxY))
	params.Set("geometryType", "esriGeometryEnvelope")
	params.Set("inSR", "4326")
	params.Set("spatialRel", "esriSpatialRelIntersects")
	params.Set("outFields", "*")
	params.Set("returnGeometry", "true")
	params.Set("f", format)
	if opts.MaxFeatures > 0 {
		params.Set("resultRecordCount", strconv.Itoa(opts.MaxFeatures))
	}

	queryURL := fmt.Sprintf("%s/%s/query?%s", s.BaseURL, layerID, params.Encode())
	outPath := filepath.Join(outDir, fmt.Sprintf("fema_layer_%s.%s", layerID, format))

	size, err := getToFile(ctx, s.client, queryURL, outPath)
	if err != nil {
		return &domain.LayerOutcome{LayerID: layerID, FilePath: outPath}, err
	}

	// Feature counting is only defined for the GeoJSON response shape.
	count := 0
	if format == "geojson" {
		count, err = countGeoJSONFeatures(outPath)
		if err != nil {
			return &domain.LayerOutcome{LayerID: layerID, FilePath: outPath},
				fmt.Errorf("invalid GeoJSON response for layer %s: %w", layerID, err)
		}
	}

	return &domain.LayerOutcome{
		LayerID:       layerID,
		FeatureCount:  count,
		FilePath:      outPath,
		FileSizeBytes: size,
		Metadata: map[string]string{
			"source":  s.ID(),
			"service": "NFHL MapServer",
			"format":  format,
		},
	}, nil
}

func countGeoJSONFeatures(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return 0, err
	}
	return len(fc.Features), nil
}
