package handlers

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
	"server/pkg/zip"
)

type jobView struct {
	ID                  string                  `json:"id"`
	Status              domain.JobStatus        `json:"status"`
	Requests            int                     `json:"requests"`
	Results             []domain.BatchJobResult `json:"results"`
	ErrorMessage        string                  `json:"error_message,omitempty"`
	SubmittedAt         *time.Time              `json:"submitted_at,omitempty"`
	EstimatedCompletion *time.Time              `json:"estimated_completion,omitempty"`
	CompletedAt         *time.Time              `json:"completed_at,omitempty"`
	CreatedAt           time.Time               `json:"created_at"`
	UpdatedAt           time.Time               `json:"updated_at"`
}

func viewOf(job *domain.BatchJob) jobView {
	results := job.Results
	if results == nil {
		results = []domain.BatchJobResult{}
	}
	return jobView{
		ID:                  job.ID,
		Status:              job.Status,
		Requests:            len(job.Requests),
		Results:             results,
		ErrorMessage:        job.ErrorMessage,
		SubmittedAt:         job.SubmittedAt,
		EstimatedCompletion: job.EstimatedCompletion,
		CompletedAt:         job.CompletedAt,
		CreatedAt:           job.CreatedAt,
		UpdatedAt:           job.UpdatedAt,
	}
}

func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.fail(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	jobID := chi.URLParam(r, "job_id")
	job, err := a.Batch.Status(r.Context(), userID, jobID)
	if err != nil {
		a.fail(w, statusForError(err), domain.SafeMessage(err))
		return
	}
	a.json(w, http.StatusOK, map[string]any{"success": true, "job": viewOf(job)})
}

func (a *App) JobCancel(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.fail(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	jobID := chi.URLParam(r, "job_id")
	cancelled, err := a.Batch.Cancel(r.Context(), userID, jobID)
	if err != nil {
		a.fail(w, statusForError(err), domain.SafeMessage(err))
		return
	}
	a.json(w, http.StatusOK, map[string]any{"success": true, "cancelled": cancelled})
}

// JobDownload packages a completed job's inline results as a zip archive.
// Results that only carry a remote URL are skipped; the archive holds what
// the service itself possesses.
func (a *App) JobDownload(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.fail(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	jobID := chi.URLParam(r, "job_id")
	job, err := a.Batch.Status(r.Context(), userID, jobID)
	if err != nil {
		a.fail(w, statusForError(err), domain.SafeMessage(err))
		return
	}
	if job.Status != domain.JobStatusCompleted {
		a.fail(w, http.StatusConflict, "Job is not completed yet")
		return
	}

	var assets []zip.Asset
	for _, res := range job.Results {
		if !res.Success || res.Base64 == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(res.Base64)
		if err != nil {
			a.Logger.Warn().Str("job_id", job.ID).Int("request_index", res.RequestIndex).Msg("handlers: undecodable result payload")
			continue
		}
		assets = append(assets, zip.Asset{
			Filename: fmt.Sprintf("image-%03d.png", res.RequestIndex+1),
			MIME:     "image/png",
			Data:     data,
		})
	}
	if len(assets) == 0 {
		a.fail(w, http.StatusNotFound, "No downloadable images for this job")
		return
	}

	archive := zip.ArchiveAssets(assets)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "job-"+job.ID+".zip"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
