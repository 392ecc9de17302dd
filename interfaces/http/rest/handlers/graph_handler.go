package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/gumnutdev/quick-notes/application/services"
	"github.com/gumnutdev/quick-notes/domain/graph"
	pkgerrors "github.com/gumnutdev/quick-notes/pkg/errors"
	"github.com/gumnutdev/quick-notes/pkg/utils"
)

// GraphHandler serves the mind map view.
type GraphHandler struct {
	service *services.NoteService
	errors  *pkgerrors.ErrorHandler
	logger  *zap.Logger
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(service *services.NoteService, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *GraphHandler {
	return &GraphHandler{service: service, errors: errorHandler, logger: logger}
}

// GraphResponse is the materialized graph with summary statistics.
type GraphResponse struct {
	Nodes []graph.Node `json:"nodes"`
	Edges []graph.Edge `json:"edges"`
	Stats graph.Stats  `json:"stats"`
}

// ConnectRequest asks for a link from source to target.
type ConnectRequest struct {
	SourceID string `json:"sourceId" validate:"required"`
	TargetID string `json:"targetId" validate:"required"`
}

// GetGraph handles GET /api/graph?active=&q=
func (h *GraphHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view, err := h.service.Graph(r.Context(), q.Get("active"), q.Get("q"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, GraphResponse{
		Nodes: view.Graph.Nodes,
		Edges: view.Graph.Edges,
		Stats: view.Stats,
	})
}

// Connect handles POST /api/graph/connect
func (h *GraphHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("Invalid request body").WithCause(err))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	note, err := h.service.Connect(r.Context(), req.SourceID, req.TargetID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusCreated, MutationResponse{
		Success: true,
		Message: "Notes connected",
		Note:    note,
	})
}
