package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/versebook/versebook/internal/service"
)

// AuthHandler exposes registration, login, token refresh, and password reset.
type AuthHandler struct {
	svc    *service.AuthService
	logger zerolog.Logger
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(svc *service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:    svc,
		logger: logger.With().Str("handler", "auth").Logger(),
	}
}

// RegisterRoutes mounts the auth endpoints. None of them require a token.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Post("/refresh", h.refresh)
	r.Post("/reset-password", h.resetPassword)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeBody(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.svc.Register(r.Context(), payload)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "user registered successfully",
		"user":    user,
	})
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeBody(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.svc.Login(r.Context(), payload.String("email"), payload.String("password"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      "login successful",
		"accessToken":  result.AccessToken,
		"refreshToken": result.RefreshToken,
		"user":         result.User,
	})
}

func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeBody(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.svc.Refresh(r.Context(), payload.String("refreshToken"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      "token refreshed successfully",
		"accessToken":  result.AccessToken,
		"refreshToken": result.RefreshToken,
		"user":         result.User,
	})
}

func (h *AuthHandler) resetPassword(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeBody(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.svc.ResetPassword(r.Context(), payload.String("email"), payload.String("newPassword")); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "password reset successfully",
	})
}
