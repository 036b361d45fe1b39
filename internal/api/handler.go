// Package api provides the HTTP handlers for the memgate gateway.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	memgate "github.com/blueberrycongee/memgate"
	"github.com/blueberrycongee/memgate/internal/healthcheck"
	"github.com/blueberrycongee/memgate/internal/observability"
	turnerr "github.com/blueberrycongee/memgate/pkg/errors"
)

// TurnEngine is the slice of the engine the handlers depend on.
type TurnEngine interface {
	HandleTurn(ctx context.Context, req memgate.TurnRequest) (*memgate.TurnResult, error)
	ClearConversation(ctx context.Context, userID string) error
	Health() healthcheck.Status
}

// Handler handles HTTP requests for the memgate gateway.
type Handler struct {
	engine TurnEngine
	logger *observability.Logger
}

// NewHandler creates a new API handler.
func NewHandler(engine TurnEngine, logger *observability.Logger) *Handler {
	return &Handler{
		engine: engine,
		logger: logger,
	}
}

// Turn handles POST /v1/turns requests.
func (h *Handler) Turn(w http.ResponseWriter, r *http.Request) {
	defer func() { _ = r.Body.Close() }()

	var req memgate.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeInvalidRequest(w, "invalid JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		h.writeInvalidRequest(w, "query is required")
		return
	}

	result, err := h.engine.HandleTurn(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// ClearConversation handles DELETE /v1/conversations/{user} requests.
func (h *Handler) ClearConversation(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user")
	if userID == "" {
		h.writeInvalidRequest(w, "user is required")
		return
	}

	if err := h.engine.ClearConversation(r.Context(), userID); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Health handles GET /healthz requests. It reports the most recent upstream
// probe outcome; a failing upstream yields 503 with the last error.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := h.engine.Health()
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	h.writeJSON(w, code, status)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var te *turnerr.TurnError
	if errors.As(err, &te) {
		h.logger.WithRequestID(r.Context()).RedactedError("request failed",
			"type", te.Type,
			"error", te.Message,
		)
		h.writeJSON(w, te.HTTPStatusCode(), ErrorResponse{
			Error: ErrorDetail{Message: te.Message, Type: te.Type},
		})
		return
	}

	h.logger.WithRequestID(r.Context()).RedactedError("request failed", "error", err)
	h.writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error: ErrorDetail{Message: err.Error(), Type: "internal_error"},
	})
}

func (h *Handler) writeInvalidRequest(w http.ResponseWriter, message string) {
	h.writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error: ErrorDetail{Message: message, Type: "invalid_request_error"},
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
