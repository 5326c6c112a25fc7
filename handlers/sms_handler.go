package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"hapienAPI/services"
)

// SMSHandler exposes the OTP-delivery webhook the auth flow calls out
// to. Payload shape matches the auth backend's SMS hook contract.
type SMSHandler struct {
	smsService *services.SMSService
}

func NewSMSHandler(smsService *services.SMSService) *SMSHandler {
	return &SMSHandler{smsService: smsService}
}

type sendOTPWebhookBody struct {
	User struct {
		Phone string `json:"phone"`
	} `json:"user"`
	SMS struct {
		OTP string `json:"otp"`
	} `json:"sms"`
}

func (h *SMSHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	var body sendOTPWebhookBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.User.Phone == "" || body.SMS.OTP == "" {
		respondWithError(w, http.StatusBadRequest, "user.phone and sms.otp are required")
		return
	}

	requestID, err := h.smsService.SendOTP(ctx, body.User.Phone, body.SMS.OTP)
	if err != nil {
		if errors.Is(err, services.ErrSMSNotConfigured) {
			respondWithError(w, http.StatusServiceUnavailable, "sms provider not configured")
			return
		}
		log.Printf("SendOTP Webhook: provider error: %v", err)
		respondWithError(w, http.StatusBadGateway, "Failed to send SMS")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"request_id": requestID,
	})
}
