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

	"hapienAPI/internal/types/friendship"
	"hapienAPI/middleware"
	"hapienAPI/services"
)

type FriendshipHandler struct {
	friendshipService *services.FriendshipService
}

func NewFriendshipHandler(friendshipService *services.FriendshipService) *FriendshipHandler {
	return &FriendshipHandler{friendshipService: friendshipService}
}

func (h *FriendshipHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var body friendship.SendRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	addresseeID, err := uuid.Parse(body.AddresseeID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "addresseeId must be a valid id")
		return
	}

	result, err := h.friendshipService.SendRequest(ctx, userID, addresseeID)
	if err != nil {
		log.Printf("SendRequest Handler: service error: %v", err)
		switch {
		case errors.Is(err, services.ErrSelfRequest):
			respondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrUserNotFound):
			respondWithError(w, http.StatusNotFound, "user not found")
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to send friend request")
		}
		return
	}

	code := http.StatusOK
	if result.Status == friendship.ResultRequestSent {
		code = http.StatusCreated
	}
	respondWithJSON(w, code, result)
}

func (h *FriendshipHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	h.resolveRequest(w, r, h.friendshipService.Accept)
}

func (h *FriendshipHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.resolveRequest(w, r, h.friendshipService.Reject)
}

func (h *FriendshipHandler) resolveRequest(
	w http.ResponseWriter,
	r *http.Request,
	action func(context.Context, uuid.UUID, uuid.UUID) (*friendship.Friendship, error),
) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	friendshipID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid friendship id")
		return
	}

	f, err := action(ctx, userID, friendshipID)
	if err != nil {
		if errors.Is(err, services.ErrRequestNotFound) {
			respondWithError(w, http.StatusNotFound, "friend request not found")
			return
		}
		log.Printf("ResolveRequest Handler: service error: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to update friend request")
		return
	}

	respondWithJSON(w, http.StatusOK, f)
}

func (h *FriendshipHandler) GetFriends(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	friends, err := h.friendshipService.ListFriends(ctx, userID)
	if err != nil {
		log.Printf("GetFriends Handler: service error: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to list friends")
		return
	}

	respondWithJSON(w, http.StatusOK, friends)
}

func (h *FriendshipHandler) GetPendingRequests(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	requests, err := h.friendshipService.ListPendingRequests(ctx, userID)
	if err != nil {
		log.Printf("GetPendingRequests Handler: service error: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to list friend requests")
		return
	}

	respondWithJSON(w, http.StatusOK, requests)
}
