package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"hapienAPI/internal/session"
	"hapienAPI/internal/user"
	"hapienAPI/middleware"
	"hapienAPI/services"
)

type AuthHandler struct {
	authService    *services.AuthService
	sessionService *services.SessionService
}

func NewAuthHandler(authService *services.AuthService, sessionService *services.SessionService) *AuthHandler {
	return &AuthHandler{authService: authService, sessionService: sessionService}
}

type requestOTPBody struct {
	Phone string `json:"phone"`
}

type verifyOTPBody struct {
	Phone  string `json:"phone"`
	OTP    string `json:"otp"`
	Device string `json:"device,omitempty"`
}

type refreshBody struct {
	RefreshToken string `json:"refresh_token"`
}

type signInResponse struct {
	Session         *session.SessionTokens `json:"session"`
	User            *user.User             `json:"user"`
	ProfileComplete bool                   `json:"profileComplete"`
}

func (h *AuthHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	var body requestOTPBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Phone == "" {
		respondWithError(w, http.StatusBadRequest, "phone is required")
		return
	}

	if err := h.authService.RequestOTP(ctx, body.Phone); err != nil {
		log.Printf("RequestOTP Handler: service error: %v", err)
		if err.Error() == "invalid phone number" {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to send OTP")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var body verifyOTPBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Phone == "" || body.OTP == "" {
		respondWithError(w, http.StatusBadRequest, "phone and otp are required")
		return
	}
	if body.Device == "" {
		body.Device = "default"
	}

	tokens, u, err := h.authService.VerifyOTP(ctx, body.Phone, body.OTP, body.Device)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidOTP):
			respondWithError(w, http.StatusUnauthorized, "invalid otp")
		case errors.Is(err, services.ErrOTPExpired):
			respondWithError(w, http.StatusUnauthorized, "otp expired")
		default:
			log.Printf("VerifyOTP Handler: service error: %v", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to verify OTP")
		}
		return
	}

	middleware.SetSessionCookie(w, tokens.AccessToken)
	respondWithJSON(w, http.StatusOK, signInResponse{
		Session:         tokens,
		User:            u,
		ProfileComplete: u.ProfileComplete(),
	})
}

// Refresh is the restoration step: clients exchange a previously
// persisted refresh token before treating "no session" as final.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var body refreshBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RefreshToken == "" {
		respondWithError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	tokens, err := h.sessionService.Restore(ctx, body.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSessionNotFound), errors.Is(err, services.ErrSessionExpired):
			respondWithError(w, http.StatusUnauthorized, "session expired, sign in again")
		default:
			log.Printf("Refresh Handler: service error: %v", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to refresh session")
		}
		return
	}

	middleware.SetSessionCookie(w, tokens.AccessToken)
	respondWithJSON(w, http.StatusOK, map[string]any{"session": tokens})
}

func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var body refreshBody
	if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.RefreshToken != "" {
		h.sessionService.Revoke(ctx, body.RefreshToken)
	}

	middleware.ClearSessionCookie(w)
	respondWithJSON(w, http.StatusOK, map[string]any{"success": true})
}
