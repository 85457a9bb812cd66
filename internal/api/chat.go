package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cartsmith/cartsmith/internal/log"
	"github.com/cartsmith/cartsmith/internal/turn"
)

// maxMessageBytes bounds the chat request body.
const maxMessageBytes = 16 << 10

// Processor runs one inbound message through the conversation pipeline.
type Processor interface {
	ProcessMessage(ctx context.Context, query string, history *turn.History) turn.Result
}

type chatHandler struct {
	pipeline Processor
	sessions *sessionRegistry
	logger   log.Logger
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	UserQuery string `json:"user_query"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	turn.Result
}

// send handles one chat message: it resolves the session's history, runs
// the pipeline exactly once, and returns the result with the session id the
// client should carry forward.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON", h.logger)
		return
	}

	query := strings.TrimSpace(req.UserQuery)
	if query == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "user_query is required", h.logger)
		return
	}

	sessionID, history := h.sessions.acquire(req.SessionID)
	result := h.pipeline.ProcessMessage(r.Context(), query, history)

	writeJSON(w, http.StatusOK, chatResponse{
		SessionID: sessionID,
		Result:    result,
	}, h.logger)
}
