// Package api provides HTTP handlers for the crackd API.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/ashureev/crackd/internal/mentor"
	"github.com/ashureev/crackd/internal/session"
	"github.com/ashureev/crackd/internal/store"
)

const defaultMaxBody = 16 * 1024

// Deps are the collaborators shared by the API handlers.
type Deps struct {
	Repo     store.Repository
	Registry *session.Registry
	Catalog  *mentor.Catalog
	Limiter  *RateLimiter
	// MaxBody caps JSON request bodies in bytes.
	MaxBody int64
	// OnSessionEnd runs after a session is ended over HTTP, so live streams
	// for the same tab can be told.
	OnSessionEnd func(userID, sessionID string)
	Logger       *slog.Logger
}

// Handler provides common handler utilities.
type Handler struct {
	Deps
	log *slog.Logger
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(deps Deps) *Handler {
	if deps.MaxBody <= 0 {
		deps.MaxBody = defaultMaxBody
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Deps: deps, log: logger}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to encode response", "error", err)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

var errBodyTooLarge = errors.New("request body too large")

// decodeJSON reads a single JSON object of at most maxBody bytes into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBody int64, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errBodyTooLarge
		}
		return fmt.Errorf("decode body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("decode body: trailing data")
	}
	return nil
}

// writeDecodeError maps decodeJSON failures to responses.
func writeDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, errBodyTooLarge) {
		Error(w, http.StatusRequestEntityTooLarge, "body_too_large")
		return
	}
	Error(w, http.StatusBadRequest, "invalid_json")
}
