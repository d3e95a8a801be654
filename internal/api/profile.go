package api

import (
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ashureev/crackd/internal/domain"
	"github.com/ashureev/crackd/internal/identity"
	"github.com/go-chi/chi/v5"
)

const maxUsernameLen = 32

// RegisterRoutes registers the API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/me", h.GetMe)
		r.Put("/profile", h.PutProfile)
		r.Get("/problems", h.ListProblems)

		r.Route("/session", func(r chi.Router) {
			r.Post("/", h.StartSession)
			r.Get("/", h.GetSession)
			r.Delete("/", h.EndSession)
			r.Post("/messages", h.PostMessage)
		})
	})
}

type meResponse struct {
	UserID   string          `json:"user_id"`
	Username string          `json:"username"`
	Initial  string          `json:"initial,omitempty"`
	Profile  *domain.Profile `json:"profile"`
}

// GetMe returns the caller's identity and profile, if onboarding is done.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	profile, err := h.Repo.GetProfile(r.Context(), userID)
	if err != nil {
		h.log.Error("Failed to load profile", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	resp := meResponse{
		UserID:   userID,
		Username: identity.UsernameFromContext(r.Context()),
		Profile:  profile,
	}
	if profile != nil {
		resp.Username = profile.Username
		resp.Initial = profile.Initial()
	}
	JSON(w, http.StatusOK, resp)
}

type profileRequest struct {
	Username   string `json:"username"`
	SkillLevel string `json:"skill_level"`
}

// PutProfile completes or edits onboarding.
func (h *Handler) PutProfile(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req profileRequest
	if err := decodeJSON(w, r, h.MaxBody, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" || utf8.RuneCountInString(username) > maxUsernameLen {
		Error(w, http.StatusBadRequest, "invalid_username")
		return
	}
	skill, ok := domain.ParseSkillLevel(req.SkillLevel)
	if !ok {
		Error(w, http.StatusBadRequest, "invalid_skill_level")
		return
	}

	ctx := r.Context()
	existing, err := h.Repo.GetProfile(ctx, userID)
	if err != nil {
		h.log.Error("Failed to load profile", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	now := time.Now()
	profile := &domain.Profile{
		UserID:     userID,
		Username:   username,
		SkillLevel: skill,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if existing != nil {
		profile.CreatedAt = existing.CreatedAt
	}
	if err := h.Repo.UpsertProfile(ctx, profile); err != nil {
		h.log.Error("Failed to save profile", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to save profile")
		return
	}

	h.log.Info("Profile saved", "user_id", userID, "skill_level", skill, "created", existing == nil)
	JSON(w, http.StatusOK, profile)
}

// ListProblems returns the problem catalog, fuzzy-ranked when q is set.
func (h *Handler) ListProblems(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"problems": h.Catalog.Search(r.URL.Query().Get("q")),
	})
}
