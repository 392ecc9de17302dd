package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// MutationResponse acknowledges a write.
type MutationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Note    any    `json:"note,omitempty"`
}

func respondJSON(w http.ResponseWriter, logger *zap.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}
