package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"hapienAPI/internal/notification"
	"hapienAPI/middleware"
	"hapienAPI/services"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	notifs, err := h.notificationService.GetNotifications(ctx, userID)
	if err != nil {
		log.Printf("GetNotifications Handler: service error: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to get notifications")
		return
	}

	respondWithJSON(w, http.StatusOK, notifs)
}

func (h *NotificationHandler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	count, err := h.notificationService.GetUnreadCount(ctx, userID)
	if err != nil {
		log.Printf("GetUnreadCount Handler: service error: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to count notifications")
		return
	}

	respondWithJSON(w, http.StatusOK, notification.UnreadCountResponse{Count: count})
}

func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	notificationID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	if err := h.notificationService.MarkAsRead(ctx, userID, notificationID); err != nil {
		if errors.Is(err, services.ErrNotificationNotFound) {
			respondWithError(w, http.StatusNotFound, "notification not found")
			return
		}
		log.Printf("MarkAsRead Handler: service error: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to update notification")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Notification marked as read"})
}

func (h *NotificationHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req notification.RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		respondWithError(w, http.StatusBadRequest, "token is required")
		return
	}

	if err := h.notificationService.RegisterDevice(ctx, userID, req.Token, req.Platform); err != nil {
		log.Printf("RegisterDevice Handler: service error: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to register device")
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]string{"message": "Device registered"})
}
