package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cartsmith/cartsmith/internal/log"
)

// writeJSON writes a JSON response with the given status code. The body is
// encoded into a buffer first so an encoding failure can still become a
// clean 500 instead of a half-written response.
func writeJSON(w http.ResponseWriter, status int, data any, logger log.Logger) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		// Client disconnects are common and expected.
		logger.Debug("failed to write response body", "error", err)
	}
}

// errorBody is the uniform error payload.
type errorBody struct {
	Error string `json:"error"`
	Msg   string `json:"msg"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, msg string, logger log.Logger) {
	writeJSON(w, status, errorBody{Error: code, Msg: msg}, logger)
}
