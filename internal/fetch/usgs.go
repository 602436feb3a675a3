package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"

	"github.com/minhvu/geofetch/internal/core/domain"
)

const usgsBaseURL = "https://tnmaccess.nationalmap.gov/api/v1/products"

// USGSSource fetches 3DEP lidar-derived elevation products through The
// National Map access API: it queries the product catalog for the AOI and
// downloads the first matching product.
type USGSSource struct {
	BaseURL string
	client  *http.Client
}

func NewUSGSSource(client *http.Client) *USGSSource {
	return &USGSSource{BaseURL: usgsBaseURL, client: client}
}

func (s *USGSSource) ID() string   { return "usgs_lidar" }
func (s *USGSSource) Name() string { return "USGS 3DEP Lidar" }
func (s *USGSSource) Description() string {
	return "USGS 3DEP elevation products from The National Map"
}

func (s *USGSSource) Layers() []domain.LayerInfo {
	return []domain.LayerInfo{
		{ID: "dem", Name: "DEM", Description: "Digital Elevation Model (1/3 arc-second)", GeometryType: "Raster", DataType: "Raster"},
	}
}

type usgsProduct struct {
	Title       string `json:"title"`
	DownloadURL string `json:"downloadURL"`
	SizeInBytes int64  `json:"sizeInBytes"`
}

type usgsListing struct {
	Total int           `json:"total"`
	Items []usgsProduct `json:"items"`
}

func (s *USGSSource) FetchLayer(ctx context.Context, layerID string, bounds domain.Bounds,
	outDir string, opts domain.SourceOptions) (*domain.LayerOutcome, error) {

	params := url.Values{}
	params.Set("datasets", "National Elevation Dataset (NED) 1/3 arc-second")
	params.Set("bbox", fmt.Sprintf("%f,%f,%f,%f", bounds.MinX, bounds.MinY, bounds.MaxX, bounds.MaxY))
	params.Set("outputFormat", "JSON")
	params.Set("max", "5")

	listing, err := s.queryProducts(ctx, params)
	if err != nil {
		return &domain.LayerOutcome{LayerID: layerID}, err
	}
	if len(listing.Items) == 0 {
		return &domain.LayerOutcome{LayerID: layerID},
			fmt.Errorf("no elevation products found for the area of interest")
	}

	product := listing.Items[0]
	if product.DownloadURL == "" {
		return &domain.LayerOutcome{LayerID: layerID},
			fmt.Errorf("product %q has no download URL", product.Title)
	}

	outPath := filepath.Join(outDir, "usgs_"+layerID+filepath.Ext(product.DownloadURL))
	size, err := getToFile(ctx, s.client, product.DownloadURL, outPath)
	if err != nil {
		return &domain.LayerOutcome{LayerID: layerID, FilePath: outPath}, err
	}

	outcome := &domain.LayerOutcome{
		LayerID:       layerID,
		FeatureCount:  listing.Total,
		FilePath:      outPath,
		FileSizeBytes: size,
		Metadata: map[string]string{
			"source":  s.ID(),
			"product": product.Title,
		},
	}
	// The catalog advertises the product size; pass it on as the expected
	// size for the integrity check.
	if product.SizeInBytes > 0 {
		outcome.FileSizeBytes = product.SizeInBytes
		outcome.Metadata["advertised_size"] = strconv.FormatInt(product.SizeInBytes, 10)
	}
	return outcome, nil
}

func (s *USGSSource) queryProducts(ctx context.Context, params url.Values) (*usgsListing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", "geofetch/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("product query failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Status: resp.StatusCode, URL: s.BaseURL}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read product listing: %w", err)
	}

	var listing usgsListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("failed to decode product listing: %w", err)
	}
	return &listing, nil
}
