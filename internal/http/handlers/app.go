package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/generation"
	"server/internal/infra"
	"server/internal/middleware"
)

// FastExecutor is the synchronous generation path as the handlers see it.
type FastExecutor interface {
	Execute(ctx context.Context, ownerID string, req *domain.GenerationRequest) (*generation.Result, error)
}

// BatchService is the deferred path: submit, observe, cancel.
type BatchService interface {
	Submit(ctx context.Context, ownerID string, req *domain.GenerationRequest) (*domain.BatchJob, error)
	Status(ctx context.Context, ownerID, jobID string) (*domain.BatchJob, error)
	Cancel(ctx context.Context, ownerID, jobID string) (bool, error)
}

type App struct {
	Config      *infra.Config
	Logger      zerolog.Logger
	Fast        FastExecutor
	Batch       BatchService
	Generations domain.GenerationStore
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) fail(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, map[string]any{"success": false, "error": msg})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

// statusForError maps classified failures onto the response status. Anything
// not a caller fault is an execution failure.
func statusForError(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
