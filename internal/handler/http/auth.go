package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/olivethotokunefor/Mentora/internal/service"
	"github.com/olivethotokunefor/Mentora/pkg/middleware"
	"github.com/olivethotokunefor/Mentora/pkg/validator"
)

// cookiePath limits the refresh cookie to the auth endpoints so it is not
// attached to every API request.
const cookiePath = "/api/v1/auth"

// CookieSettings controls how the refresh token cookie is issued.
type CookieSettings struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// AuthHandler handles HTTP requests for the auth endpoints. The refresh
// token travels exclusively in an HttpOnly cookie; it never appears in a
// JSON body.
type AuthHandler struct {
	service *service.SessionService
	cookie  CookieSettings
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(svc *service.SessionService, cookie CookieSettings, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, cookie: cookie, logger: logger}
}

// --- Request DTOs ---

// RegisterRequest is the JSON request body for user registration.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Username string `json:"username" validate:"required,min=1,max=50"`
}

// LoginRequest is the JSON request body for user login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// --- Handlers ---

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req RegisterRequest
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

	input := service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
	}

	user, err := h.service.Register(r.Context(), input)
	if err != nil {
		writeAppError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, response{
		Data: map[string]string{
			"id":    user.ID,
			"email": user.Email,
		},
	})
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req LoginRequest
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

	input := service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	}

	_, pair, err := h.service.Login(r.Context(), input)
	if err != nil {
		writeAppError(w, err, h.logger)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, response{
		Data: map[string]string{"access_token": pair.AccessToken},
	})
}

// Refresh handles POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(h.cookie.Name)
	if err != nil || cookie.Value == "" {
		writeJSON(w, http.StatusUnauthorized, response{
			Error: &errorResponse{Code: "UNAUTHENTICATED", Message: "authentication required"},
		})
		return
	}

	pair, err := h.service.Refresh(r.Context(), cookie.Value)
	if err != nil {
		h.clearRefreshCookie(w)
		writeAppError(w, err, h.logger)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, response{
		Data: map[string]string{"access_token": pair.AccessToken},
	})
}

// Logout handles POST /api/v1/auth/logout. It always reports success to the
// client; a store failure is logged but the cookie is cleared regardless.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	raw := ""
	if cookie, err := r.Cookie(h.cookie.Name); err == nil {
		raw = cookie.Value
	}

	if err := h.service.Logout(r.Context(), raw); err != nil {
		h.logger.ErrorContext(r.Context(), "logout revocation failed",
			slog.String("error", err.Error()),
		)
	}

	h.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, response{
		Data: map[string]bool{"success": true},
	})
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, response{
			Error: &errorResponse{Code: "UNAUTHENTICATED", Message: "authentication required"},
		})
		return
	}

	user, profile, err := h.service.Me(r.Context(), userID)
	if err != nil {
		writeAppError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, response{
		Data: map[string]any{
			"user":    user,
			"profile": profile,
		},
	})
}

// --- Cookie helpers ---

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     cookiePath,
		MaxAge:   int(h.cookie.TTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     cookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
