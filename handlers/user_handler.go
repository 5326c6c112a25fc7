package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"hapienAPI/internal/user"
	"hapienAPI/middleware"
	"hapienAPI/services"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	u, err := h.userService.GetUserByID(ctx, userID)
	if err != nil {
		if err == services.ErrUserNotFound {
			respondWithError(w, http.StatusNotFound, "user not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	respondWithJSON(w, http.StatusOK, user.ProfileResponse{User: u, ProfileComplete: u.ProfileComplete()})
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req user.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name == nil && req.AvatarURL == nil && req.Bio == nil {
		respondWithError(w, http.StatusBadRequest, "Nothing to update")
		return
	}

	u, err := h.userService.UpdateProfile(ctx, userID, &req)
	if err != nil {
		log.Printf("UpdateProfile Handler: service error: %v", err)
		switch {
		case err == services.ErrUserNotFound:
			respondWithError(w, http.StatusNotFound, "user not found")
		case err.Error() == "name cannot be empty":
			respondWithError(w, http.StatusBadRequest, err.Error())
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to update profile")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, user.ProfileResponse{User: u, ProfileComplete: u.ProfileComplete()})
}

func (h *UserHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	q := r.URL.Query().Get("q")
	if q == "" {
		respondWithError(w, http.StatusBadRequest, "Search query parameter 'q' is required")
		return
	}

	users, err := h.userService.SearchUsers(ctx, userID, q)
	if err != nil {
		log.Printf("SearchUsers Handler: service error: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to search users")
		return
	}

	respondWithJSON(w, http.StatusOK, users)
}

func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	if err := h.userService.DeleteAccount(ctx, userID); err != nil {
		log.Printf("DeleteAccount Handler: service error: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to delete account")
		return
	}

	middleware.ClearSessionCookie(w)
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Account deleted"})
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
