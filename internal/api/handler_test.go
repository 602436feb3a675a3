package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/minhvu/geofetch/internal/core/domain"
	"github.com/minhvu/geofetch/internal/fetch"
	"github.com/minhvu/geofetch/internal/infra/storage/memory"
	"github.com/minhvu/geofetch/internal/jobs/executor"
	"github.com/minhvu/geofetch/internal/jobs/manager"
	"github.com/minhvu/geofetch/internal/jobs/retry"
)

// =============================================================================
// Test Fixtures
// =============================================================================

// stubSource always succeeds, writing one small file per layer.
type stubSource struct{}

func (stubSource) ID() string          { return "stub" }
func (stubSource) Name() string        { return "Stub" }
func (stubSource) Description() string { return "always succeeds" }

func (stubSource) Layers() []domain.LayerInfo {
	return []domain.LayerInfo{
		{ID: "l1", Name: "Layer One", GeometryType: "Polygon", DataType: "Vector"},
		{ID: "l2", Name: "Layer Two", GeometryType: "Line", DataType: "Vector"},
	}
}

func (stubSource) FetchLayer(ctx context.Context, layerID string, bounds domain.Bounds,
	outDir string, opts domain.SourceOptions) (*domain.LayerOutcome, error) {

	path := filepath.Join(outDir, layerID+".geojson")
	if err := os.WriteFile(path, []byte(`{"type":"FeatureCollection","features":[]}`), 0o644); err != nil {
		return nil, err
	}
	return &domain.LayerOutcome{LayerID: layerID, FilePath: path, FeatureCount: 3}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *manager.Manager) {
	t.Helper()

	reg := fetch.NewRegistry()
	reg.Register(stubSource{})

	store := memory.NewJobRepo()
	exec := executor.New(retry.Policy{MaxAttempts: 2, Strategy: retry.StrategyImmediate})

	mgr, err := manager.New(context.Background(), store, reg, exec, nil, t.TempDir())
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	srv := httptest.NewServer(Routes(NewHandler(mgr, reg)))
	t.Cleanup(srv.Close)
	return srv, mgr
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var out bytes.Buffer
	_, _ = out.ReadFrom(resp.Body)
	return resp, out.Bytes()
}

func createJob(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/jobs", map[string]any{
		"source_id": "stub",
		"layer_ids": []string{"l1", "l2"},
		"aoi":       map[string]any{"bounds": map[string]float64{"minx": -105, "miny": 39, "maxx": -104, "maxy": 40}},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
	}
	var out struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.JobID == "" {
		t.Fatalf("bad create response: %s", body)
	}
	return out.JobID
}

func waitForStatus(t *testing.T, srv *httptest.Server, id string, want domain.JobStatus) map[string]any {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		resp, body := doJSON(t, http.MethodGet, srv.URL+"/jobs/"+id, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status lookup failed: %d", resp.StatusCode)
		}
		var out map[string]any
		if err := json.Unmarshal(body, &out); err != nil {
			t.Fatalf("bad status body: %s", body)
		}
		if out["status"] == string(want) {
			return out
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("job %s never reached %s", id, want)
	return nil
}

// =============================================================================
// Job Endpoint Tests
// =============================================================================

func TestCreateJob_BadRequests(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/jobs", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty body: expected 400, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/jobs", map[string]any{"layer_ids": []string{"l1"}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing source: expected 400, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/jobs", map[string]any{"source_id": "stub"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing layers: expected 400, got %d", resp.StatusCode)
	}
}

func TestJobLifecycleOverHTTP(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createJob(t, srv)

	// Created jobs are pending until started.
	status := waitForStatus(t, srv, id, domain.JobStatusPending)
	if status["started_at"] != nil {
		t.Error("pending job must have no started_at")
	}

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/jobs/"+id+"/start", nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}

	status = waitForStatus(t, srv, id, domain.JobStatusCompleted)

	results, ok := status["results"].([]any)
	if !ok || len(results) != 2 {
		t.Fatalf("expected 2 results, got %v", status["results"])
	}
	summary, ok := status["result_summary"].(map[string]any)
	if !ok {
		t.Fatal("expected result_summary on completed job")
	}
	if summary["successful_layers"].(float64) != 2 {
		t.Errorf("expected 2 successful layers, got %v", summary["successful_layers"])
	}
	if status["completed_at"] == nil || status["completed_at"] == "" {
		t.Error("expected completed_at set")
	}
}

func TestStartJob_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/jobs/nope/start", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGetJob_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/jobs/nope", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGetSummary_RequiresCompletion(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createJob(t, srv)

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/jobs/"+id+"/summary", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("pending job summary: expected 409, got %d", resp.StatusCode)
	}

	doJSON(t, http.MethodPost, srv.URL+"/jobs/"+id+"/start", nil)
	waitForStatus(t, srv, id, domain.JobStatusCompleted)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/jobs/"+id+"/summary", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var summary manager.Summary
	if err := json.Unmarshal(body, &summary); err != nil {
		t.Fatalf("bad summary body: %s", body)
	}
	if summary.TotalLayers != 2 || summary.SuccessRate != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if summary.TotalFeatures != 6 {
		t.Errorf("expected 6 features, got %d", summary.TotalFeatures)
	}
}

func TestGetResult(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createJob(t, srv)

	// No artifact before the job ran.
	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/jobs/"+id+"/result", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 before run, got %d", resp.StatusCode)
	}

	doJSON(t, http.MethodPost, srv.URL+"/jobs/"+id+"/start", nil)
	waitForStatus(t, srv, id, domain.JobStatusCompleted)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/jobs/"+id+"/result", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/zip" {
		t.Errorf("expected zip content type, got %q", ct)
	}
	if len(body) == 0 {
		t.Error("expected archive bytes")
	}
}

func TestDeleteJob(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createJob(t, srv)

	resp, _ := doJSON(t, http.MethodDelete, srv.URL+"/jobs/"+id, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/jobs/"+id, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/jobs/"+id, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("double delete: expected 404, got %d", resp.StatusCode)
	}
}

// =============================================================================
// Source Endpoint Tests
// =============================================================================

func TestListSources(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/sources", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var sources []sourceResp
	if err := json.Unmarshal(body, &sources); err != nil {
		t.Fatalf("bad body: %s", body)
	}
	if len(sources) != 1 || sources[0].ID != "stub" {
		t.Errorf("unexpected sources: %+v", sources)
	}
	if len(sources[0].Layers) != 2 {
		t.Errorf("expected 2 layers, got %d", len(sources[0].Layers))
	}
}

func TestListLayers(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/sources/stub/layers", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var layers []domain.LayerInfo
	if err := json.Unmarshal(body, &layers); err != nil {
		t.Fatalf("bad body: %s", body)
	}
	if len(layers) != 2 {
		t.Errorf("expected 2 layers, got %d", len(layers))
	}

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/sources/mystery/layers", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown source, got %d", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
}

// toStatusResp only attaches results once the job is terminal and successful.
func TestToStatusResp(t *testing.T) {
	now := time.Now().UTC()
	job := &domain.Job{
		ID:        "j1",
		Status:    domain.JobStatusRunning,
		CreatedAt: now,
		StartedAt: &now,
		Results:   []domain.LayerOutcome{{LayerID: "l1", Success: true}},
	}

	resp := toStatusResp(job)
	if resp.Results != nil || resp.ResultSummary != nil {
		t.Error("running job must not expose results")
	}
	if resp.StartedAt == "" || resp.CompletedAt != "" {
		t.Errorf("unexpected timestamps: %+v", resp)
	}

	job.Status = domain.JobStatusCompleted
	job.CompletedAt = &now
	resp = toStatusResp(job)
	if len(resp.Results) != 1 || resp.ResultSummary == nil {
		t.Error("completed job must expose results and summary")
	}
	if want := now.Format(time.RFC3339); resp.CompletedAt != want {
		t.Errorf("expected %s, got %s", want, resp.CompletedAt)
	}
}
