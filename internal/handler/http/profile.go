package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/olivethotokunefor/Mentora/internal/service"
	"github.com/olivethotokunefor/Mentora/pkg/middleware"
	"github.com/olivethotokunefor/Mentora/pkg/validator"
)

// ProfileHandler handles HTTP requests for profile endpoints.
type ProfileHandler struct {
	service *service.SessionService
	logger  *slog.Logger
}

// NewProfileHandler creates a new profile HTTP handler.
func NewProfileHandler(svc *service.SessionService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{service: svc, logger: logger}
}

// UpdateProfileRequest is the JSON request body for updating a profile.
// Omitted fields are left unchanged.
type UpdateProfileRequest struct {
	Username       *string  `json:"username" validate:"omitempty,min=1,max=50"`
	AvatarURL      *string  `json:"avatar_url" validate:"omitempty,url"`
	Bio            *string  `json:"bio" validate:"omitempty,max=1000"`
	SkillsCanHelp  []string `json:"skills_can_help" validate:"omitempty,dive,min=1,max=100"`
	SkillsNeedHelp []string `json:"skills_need_help" validate:"omitempty,dive,min=1,max=100"`
}

// GetProfile handles GET /api/v1/users/me
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, response{
			Error: &errorResponse{Code: "UNAUTHENTICATED", Message: "authentication required"},
		})
		return
	}

	profile, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		writeAppError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: profile})
}

// UpdateProfile handles PUT /api/v1/users/me
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, response{
			Error: &errorResponse{Code: "UNAUTHENTICATED", Message: "authentication required"},
		})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	input := service.UpdateProfileInput{
		Username:       req.Username,
		AvatarURL:      req.AvatarURL,
		Bio:            req.Bio,
		SkillsCanHelp:  req.SkillsCanHelp,
		SkillsNeedHelp: req.SkillsNeedHelp,
	}

	profile, err := h.service.UpdateProfile(r.Context(), userID, input)
	if err != nil {
		writeAppError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: profile})
}
