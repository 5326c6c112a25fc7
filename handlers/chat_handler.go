package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"hapienAPI/internal/types/chat"
	"hapienAPI/services"
)

type ChatHandler struct {
	chatService *services.ChatService
}

func NewChatHandler(chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Chat relays the user's message to the model. Apart from an empty
// message this endpoint never returns an error; provider trouble comes
// back as a fallback reply.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 45*time.Second)
	defer cancel()

	var req chat.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		respondWithError(w, http.StatusBadRequest, "message is required")
		return
	}

	respondWithJSON(w, http.StatusOK, h.chatService.Chat(ctx, &req))
}
