package domain

// LayerOutcome is the immutable result of attempting one layer download,
// produced once the layer's retry loop resolves.
type LayerOutcome struct {
	LayerID       string            `json:"layer_id"`
	Success       bool              `json:"success"`
	FeatureCount  int               `json:"feature_count"`
	FilePath      string            `json:"file_path,omitempty"`
	FileSizeBytes int64             `json:"file_size_bytes,omitempty"`
	ErrorMessage  string            `json:"error_message,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// LayerInfo describes one dataset a source can fetch.
type LayerInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	GeometryType string `json:"geometry_type"`
	DataType     string `json:"data_type"`
}
