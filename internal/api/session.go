package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ashureev/crackd/internal/domain"
	"github.com/ashureev/crackd/internal/identity"
	"github.com/ashureev/crackd/internal/session"
)

// requireProfile loads the caller's profile. It writes 401 or 412 and
// returns false when the caller cannot hold a mentor session.
func (h *Handler) requireProfile(w http.ResponseWriter, r *http.Request) (*domain.Profile, bool) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	profile, err := h.Repo.GetProfile(r.Context(), userID)
	if err != nil {
		h.log.Error("Failed to load profile", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to load profile")
		return nil, false
	}
	if profile == nil {
		Error(w, http.StatusPreconditionFailed, "profile_required")
		return nil, false
	}
	return profile, true
}

// StartSession resumes the tab's live session or starts a greeted one.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.requireProfile(w, r)
	if !ok {
		return
	}
	sessionID := identity.SessionIDFromContext(r.Context())

	ctrl := h.Registry.Start(profile.UserID, sessionID, *profile)
	JSON(w, http.StatusOK, ctrl.Snapshot())
}

// GetSession returns the current snapshot of the tab's session.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.liveSession(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, ctrl.Snapshot())
}

type messageRequest struct {
	Content string `json:"content"`
}

// PostMessage submits a user message. With ?wait=true the response is sent
// once the mentor has replied; otherwise it returns 202 while composing.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req messageRequest
	if err := decodeJSON(w, r, h.MaxBody, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	ctrl, ok := h.liveSession(w, r)
	if !ok {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeSubmitError(w, session.ErrInvalidInput)
		return
	}
	// Only well-formed submissions to a live session count against the quota.
	if h.Limiter != nil && !h.Limiter.Allow(userID) {
		Error(w, http.StatusTooManyRequests, "rate_limited")
		return
	}

	// The turn outlives this request so a reply still lands if the client
	// stops waiting.
	done, err := ctrl.Submit(context.Background(), req.Content)
	if err != nil {
		writeSubmitError(w, err)
		return
	}

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		select {
		case <-done:
			JSON(w, http.StatusOK, ctrl.Snapshot())
		case <-r.Context().Done():
		}
		return
	}
	JSON(w, http.StatusAccepted, ctrl.Snapshot())
}

// EndSession signs the tab out of its mentor session.
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	sessionID := identity.SessionIDFromContext(r.Context())

	ended := h.Registry.End(userID, sessionID)
	if h.OnSessionEnd != nil {
		h.OnSessionEnd(userID, sessionID)
	}
	h.log.Info("Mentor session signed out", "user_id", userID, "session_id", sessionID, "existed", ended)
	JSON(w, http.StatusOK, map[string]string{"status": "ended"})
}

func (h *Handler) liveSession(w http.ResponseWriter, r *http.Request) (*session.Controller, bool) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	ctrl, ok := h.Registry.Get(userID, identity.SessionIDFromContext(r.Context()))
	if !ok {
		Error(w, http.StatusNotFound, "no_session")
		return nil, false
	}
	return ctrl, true
}

// SubmitErrorCode maps controller rejections to stable client codes.
func SubmitErrorCode(err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, session.ErrReplyPending):
		return http.StatusConflict, "reply_pending"
	case errors.Is(err, session.ErrSessionClosed):
		return http.StatusGone, "session_closed"
	default:
		return http.StatusInternalServerError, "submit_failed"
	}
}

func writeSubmitError(w http.ResponseWriter, err error) {
	status, code := SubmitErrorCode(err)
	Error(w, status, code)
}
