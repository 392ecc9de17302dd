package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/gumnutdev/quick-notes/application/services"
	"github.com/gumnutdev/quick-notes/domain/core/entities"
	pkgerrors "github.com/gumnutdev/quick-notes/pkg/errors"
	"github.com/gumnutdev/quick-notes/pkg/utils"
)

// NoteHandler handles note-related HTTP requests
type NoteHandler struct {
	service *services.NoteService
	errors  *pkgerrors.ErrorHandler
	logger  *zap.Logger
}

// NewNoteHandler creates a new note handler
func NewNoteHandler(service *services.NoteService, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *NoteHandler {
	return &NoteHandler{service: service, errors: errorHandler, logger: logger}
}

// NoteRequest is a note as sent by clients. Dates are RFC 3339 strings and
// may be omitted.
type NoteRequest struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Content      string   `json:"content"`
	CreatedDate  string   `json:"createdDate,omitempty"`
	ModifiedDate string   `json:"modifiedDate,omitempty"`
	Mood         int      `json:"mood"`
	Priority     string   `json:"priority" validate:"omitempty,oneof=low medium high"`
	Category     string   `json:"category"`
	Status       string   `json:"status" validate:"omitempty,oneof=draft in-progress complete"`
	LinkedNotes  []string `json:"linkedNotes" validate:"omitempty,dive,required"`
}

// LinkRequest names the target of a new link.
type LinkRequest struct {
	TargetID string `json:"targetId" validate:"required"`
}

func (req NoteRequest) toNote() (entities.Note, error) {
	n := entities.Note{
		ID:          req.ID,
		Title:       req.Title,
		Content:     req.Content,
		Mood:        req.Mood,
		Priority:    entities.Priority(req.Priority),
		Category:    req.Category,
		Status:      entities.Status(req.Status),
		LinkedNotes: req.LinkedNotes,
	}
	if n.LinkedNotes == nil {
		n.LinkedNotes = []string{}
	}
	var err error
	if n.CreatedDate, err = parseOptionalTime("createdDate", req.CreatedDate); err != nil {
		return entities.Note{}, err
	}
	if n.ModifiedDate, err = parseOptionalTime("modifiedDate", req.ModifiedDate); err != nil {
		return entities.Note{}, err
	}
	return n, nil
}

func parseOptionalTime(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := utils.ParseTime(value)
	if err != nil {
		return time.Time{}, pkgerrors.NewValidationError(field + " must be an RFC 3339 timestamp")
	}
	return t, nil
}

// decodeNote reads and checks a NoteRequest body.
func (h *NoteHandler) decodeNote(r *http.Request) (entities.Note, error) {
	var req NoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return entities.Note{}, pkgerrors.NewValidationError("Invalid request body").WithCause(err)
	}
	if strings.TrimSpace(req.ID) == "" || strings.TrimSpace(req.Title) == "" {
		return entities.Note{}, pkgerrors.NewValidationError(entities.ErrIDAndTitleRequired)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return entities.Note{}, err
	}
	return req.toNote()
}

// ListNotes handles GET /api/notes, filtering by ?q= when present.
func (h *NoteHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, notes)
}

// GetNote handles GET /api/notes/{id}
func (h *NoteHandler) GetNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, note)
}

// SaveNote handles POST /api/notes: create or overwrite.
func (h *NoteHandler) SaveNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.decodeNote(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	saved, created, err := h.service.Save(r.Context(), note)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, h.logger, status, MutationResponse{
		Success: true,
		Message: "Note saved successfully",
		Note:    saved,
	})
}

// UpdateNote handles PUT /api/notes/{id}
func (h *NoteHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	note, err := h.decodeNote(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if note.ID != id {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("Note ID mismatch"))
		return
	}

	saved, _, err := h.service.Save(r.Context(), note)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, MutationResponse{
		Success: true,
		Message: "Note updated successfully",
		Note:    saved,
	})
}

// DeleteNote handles DELETE /api/notes/{id}
func (h *NoteHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, MutationResponse{
		Success: true,
		Message: "Note deleted successfully",
	})
}

// LinkCandidates handles GET /api/notes/{id}/links/candidates
func (h *NoteHandler) LinkCandidates(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.service.Candidates(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, candidates)
}

// AddLink handles POST /api/notes/{id}/links
func (h *NoteHandler) AddLink(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("Invalid request body").WithCause(err))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	note, err := h.service.Link(r.Context(), chi.URLParam(r, "id"), req.TargetID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, MutationResponse{
		Success: true,
		Message: "Link added",
		Note:    note,
	})
}

// RemoveLink handles DELETE /api/notes/{id}/links/{targetId}
func (h *NoteHandler) RemoveLink(w http.ResponseWriter, r *http.Request) {
	note, err := h.service.Unlink(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "targetId"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, MutationResponse{
		Success: true,
		Message: "Link removed",
		Note:    note,
	})
}
