// internal/api/handler.go
package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/segmentio/encoding/json"

	"github.com/recallgrade/recallgrade/internal/id"
	"github.com/recallgrade/recallgrade/internal/service"
	"github.com/recallgrade/recallgrade/internal/store"
)

const maxBodyBytes = 1 << 20

// Handler holds all dependencies needed by HTTP handlers.
type Handler struct {
	store     store.Store
	grading   *service.GradingService
	evaluator service.Evaluator
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewHandler creates a Handler with the given dependencies.
func NewHandler(s store.Store, gs *service.GradingService, e service.Evaluator, logger *slog.Logger) *Handler {
	return &Handler{
		store:     s,
		grading:   gs,
		evaluator: e,
		validate:  validator.New(),
		logger:    logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}

// decodeJSON reads and validates the request body into dst. It writes a 400
// and returns false when the body is not acceptable.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		respondError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return "invalid request"
	}
	fields := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		fields = append(fields, strings.ToLower(fe.Field())+" failed "+fe.Tag())
	}
	return "invalid request: " + strings.Join(fields, ", ")
}

// handleStoreError checks for common store errors and writes the appropriate
// HTTP response. Returns true if an error was handled (caller should return).
func (h *Handler) handleStoreError(w http.ResponseWriter, err error, entity string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, entity+" not found")
		return true
	}
	h.logger.Error("store error", "error", err, "entity", entity)
	respondError(w, http.StatusInternalServerError, "internal error")
	return true
}

// pathID reads an ID path parameter. IDs that could never have been issued
// answer 404 without touching the store.
func pathID(w http.ResponseWriter, r *http.Request, name, entity string) (string, bool) {
	v := r.PathValue(name)
	if !id.Valid(v) {
		respondError(w, http.StatusNotFound, entity+" not found")
		return "", false
	}
	return v, true
}
