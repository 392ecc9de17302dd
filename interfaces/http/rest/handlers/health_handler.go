package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/gumnutdev/quick-notes/application/services"
	pkgerrors "github.com/gumnutdev/quick-notes/pkg/errors"
	"github.com/gumnutdev/quick-notes/pkg/utils"
)

const readinessTimeout = 2 * time.Second

// HealthHandler answers liveness and readiness checks.
type HealthHandler struct {
	service *services.NoteService
	errors  *pkgerrors.ErrorHandler
	logger  *zap.Logger
	clock   utils.Clock
}

func NewHealthHandler(service *services.NoteService, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{service: service, errors: errorHandler, logger: logger, clock: utils.SystemClock}
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

// Health handles GET /health and /api/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: utils.FormatTime(h.clock()),
		Message:   "Server is ready",
	})
}

// Ready handles GET /ready by pinging the note store.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if err := h.service.Ping(ctx); err != nil {
		if !pkgerrors.IsUnavailable(err) {
			err = pkgerrors.NewUnavailableError("note store", err)
		}
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ready"})
}
