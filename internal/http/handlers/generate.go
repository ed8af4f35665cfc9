package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"server/internal/domain"
	"server/internal/generation"
)

type generateFastResponse struct {
	Success bool                    `json:"success"`
	Images  []domain.GeneratedImage `json:"images"`
	Mode    string                  `json:"mode"`
}

type generateDeferredResponse struct {
	Success             bool       `json:"success"`
	Mode                string     `json:"mode"`
	JobID               string     `json:"job_id"`
	EstimatedCompletion *time.Time `json:"estimated_completion,omitempty"`
}

// Generate is the single entry point for both delivery modes. Authentication
// is checked before the payload is even decoded; validation happens before
// any provider lookup.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.fail(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var raw generation.RawRequest
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		a.fail(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	req, err := generation.ValidateRequest(raw)
	if err != nil {
		a.fail(w, http.StatusBadRequest, domain.SafeMessage(err))
		return
	}

	if req.Mode == domain.ModeRelaxed {
		job, err := a.Batch.Submit(r.Context(), userID, req)
		if err != nil {
			a.fail(w, statusForError(err), domain.SafeMessage(err))
			return
		}
		a.json(w, http.StatusAccepted, generateDeferredResponse{
			Success:             true,
			Mode:                "deferred",
			JobID:               job.ID,
			EstimatedCompletion: job.EstimatedCompletion,
		})
		return
	}

	result, err := a.Fast.Execute(r.Context(), userID, req)
	if err != nil {
		a.fail(w, statusForError(err), domain.SafeMessage(err))
		return
	}

	a.recordGenerations(r, userID, req, result.Images)

	a.json(w, http.StatusOK, generateFastResponse{
		Success: true,
		Images:  result.Images,
		Mode:    "fast",
	})
}

// recordGenerations writes history entries for fast-path successes. The
// history is best effort; a storage hiccup never fails a delivered response.
func (a *App) recordGenerations(r *http.Request, userID string, req *domain.GenerationRequest, images []domain.GeneratedImage) {
	for _, img := range images {
		gen := &domain.Generation{
			ID:               uuid.NewString(),
			OwnerID:          userID,
			ProviderConfigID: req.ProviderID,
			Prompt:           req.Prompt,
			NegativePrompt:   req.NegativePrompt,
			AspectRatio:      req.AspectRatio,
			ImageSize:        req.ImageSize,
			URL:              img.URL,
			Source:           req.Source,
			CreatedAt:        time.Now().UTC(),
		}
		if err := a.Generations.Create(r.Context(), gen); err != nil {
			a.Logger.Error().Err(err).Str("owner_id", userID).Msg("handlers: record generation")
		}
	}
}
