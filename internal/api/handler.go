package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/minhvu/geofetch/internal/core/domain"
	"github.com/minhvu/geofetch/internal/fetch"
	"github.com/minhvu/geofetch/internal/infra/storage"
	"github.com/minhvu/geofetch/internal/jobs/manager"
)

// Handler exposes job operations over HTTP. It is a thin layer: every
// contract it serves is owned by the manager.
type Handler struct {
	manager *manager.Manager
	sources *fetch.Registry
}

func NewHandler(m *manager.Manager, sources *fetch.Registry) *Handler {
	return &Handler{manager: m, sources: sources}
}

type createJobDTO struct {
	SourceID string                `json:"source_id"`
	LayerIDs []string              `json:"layer_ids"`
	AOI      domain.AOI            `json:"aoi"`
	Options  *domain.SourceOptions `json:"options,omitempty"`
}

type createJobResp struct {
	JobID  string           `json:"job_id"`
	Status domain.JobStatus `json:"status"`
}

type jobStatusResp struct {
	JobID         string                `json:"job_id"`
	Status        domain.JobStatus      `json:"status"`
	CreatedAt     string                `json:"created_at"`
	StartedAt     string                `json:"started_at,omitempty"`
	CompletedAt   string                `json:"completed_at,omitempty"`
	Progress      domain.Progress       `json:"progress"`
	Results       []domain.LayerOutcome `json:"results,omitempty"`
	ErrorMessage  string                `json:"error_message,omitempty"`
	ResultSummary *manager.Summary      `json:"result_summary,omitempty"`
}

type sourceResp struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Layers      []domain.LayerInfo `json:"layers"`
}

func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var dto createJobDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	req := domain.JobRequest{
		SourceID: dto.SourceID,
		LayerIDs: dto.LayerIDs,
		AOI:      dto.AOI,
	}
	if dto.Options != nil {
		req.Options = *dto.Options
	}

	id, err := h.manager.CreateJob(r.Context(), req)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, createJobResp{JobID: id, Status: domain.JobStatusPending})
}

func (h *Handler) StartJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.manager.StartJob(id); err != nil {
		if errors.Is(err, storage.ErrJobNotFound) {
			writeErr(w, http.StatusNotFound, "job not found")
			return
		}
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": id, "message": "job started"})
}

func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	job, err := h.manager.GetJob(r.Context(), id)
	if err != nil {
		writeErr(w, http.StatusNotFound, "job not found")
		return
	}

	writeJSON(w, http.StatusOK, toStatusResp(job))
}

func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	job, err := h.manager.GetJob(r.Context(), id)
	if err != nil {
		writeErr(w, http.StatusNotFound, "job not found")
		return
	}
	if job.Status != domain.JobStatusCompleted {
		writeErr(w, http.StatusConflict, "job is not completed")
		return
	}

	writeJSON(w, http.StatusOK, manager.Aggregate(job.Results))
}

func (h *Handler) GetResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	path, err := h.manager.ResultPath(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNoResult) {
			writeErr(w, http.StatusConflict, "job has no result artifact")
			return
		}
		writeErr(w, http.StatusNotFound, "job not found")
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename="+id+"_results.zip")
	w.Header().Set("Content-Type", "application/zip")
	http.ServeFile(w, r, path)
}

func (h *Handler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.manager.DeleteJob(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrJobNotFound) {
			writeErr(w, http.StatusNotFound, "job not found")
			return
		}
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"job_id": id, "message": "job deleted"})
}

func (h *Handler) ListSources(w http.ResponseWriter, r *http.Request) {
	sources := h.sources.List()
	out := make([]sourceResp, 0, len(sources))
	for _, s := range sources {
		out = append(out, sourceResp{
			ID:          s.ID(),
			Name:        s.Name(),
			Description: s.Description(),
			Layers:      s.Layers(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) ListLayers(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s, err := h.sources.Get(id)
	if err != nil {
		writeErr(w, http.StatusNotFound, "unknown source")
		return
	}
	writeJSON(w, http.StatusOK, s.Layers())
}

func toStatusResp(job *domain.Job) jobStatusResp {
	resp := jobStatusResp{
		JobID:        job.ID,
		Status:       job.Status,
		CreatedAt:    job.CreatedAt.Format(time.RFC3339),
		Progress:     job.Progress,
		ErrorMessage: job.ErrorMessage,
	}
	if job.StartedAt != nil {
		resp.StartedAt = job.StartedAt.Format(time.RFC3339)
	}
	if job.CompletedAt != nil {
		resp.CompletedAt = job.CompletedAt.Format(time.RFC3339)
	}
	if job.Status == domain.JobStatusCompleted {
		resp.Results = job.Results
		summary := manager.Aggregate(job.Results)
		resp.ResultSummary = &summary
	}
	return resp
}
