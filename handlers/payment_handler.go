package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"hapienAPI/internal/types/payment"
	"hapienAPI/middleware"
	"hapienAPI/services"
)

type PaymentHandler struct {
	razorpayService *services.RazorpayService
	paymentService  *services.PaymentService
}

func NewPaymentHandler(razorpayService *services.RazorpayService, paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{razorpayService: razorpayService, paymentService: paymentService}
}

func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req payment.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Amount <= 0 {
		respondWithError(w, http.StatusBadRequest, "amount must be positive")
		return
	}
	if !payment.ValidPaymentType(req.PaymentType) {
		respondWithError(w, http.StatusBadRequest, "payment_type must be one of hangout, subscription, feature")
		return
	}
	if req.Currency == "" {
		req.Currency = "INR"
	}

	providerOrder, err := h.razorpayService.CreateOrder(ctx, req.Amount, req.Currency, "", req.Metadata)
	if err != nil {
		if errors.Is(err, services.ErrPaymentsNotConfigured) {
			respondWithError(w, http.StatusServiceUnavailable, "payments are not available")
			return
		}
		log.Printf("CreateOrder Handler: provider error: %v", err)
		respondWithError(w, http.StatusBadGateway, "Failed to create payment order")
		return
	}

	// The provider order is already live; a failed local write is
	// logged and the client still gets its order.
	if _, err := h.paymentService.CreatePendingOrder(ctx, userID, providerOrder.ID, &req); err != nil {
		log.Printf("CreateOrder Handler: failed to persist order %s: %v", providerOrder.ID, err)
	}

	respondWithJSON(w, http.StatusOK, payment.CreateOrderResponse{
		Success: true,
		Order:   *providerOrder,
		Key:     h.razorpayService.KeyID(),
	})
}

func (h *PaymentHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req payment.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.RazorpayOrderID == "" || req.RazorpayPaymentID == "" || req.RazorpaySignature == "" {
		respondWithError(w, http.StatusBadRequest, "razorpay_order_id, razorpay_payment_id and razorpay_signature are required")
		return
	}

	if !h.razorpayService.VerifySignature(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		if err := h.paymentService.MarkFailed(ctx, userID, req.RazorpayOrderID); err != nil {
			log.Printf("VerifyPayment Handler: failed to mark order failed: %v", err)
		}
		respondWithError(w, http.StatusBadRequest, "invalid payment signature")
		return
	}

	row, err := h.paymentService.MarkCompleted(ctx, userID, req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature)
	if err != nil {
		if errors.Is(err, services.ErrOrderUpdateFailed) {
			respondWithError(w, http.StatusInternalServerError, "failed to update payment record")
			return
		}
		log.Printf("VerifyPayment Handler: service error: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to verify payment")
		return
	}

	respondWithJSON(w, http.StatusOK, payment.VerifyResponse{Success: true, Payment: row})
}
