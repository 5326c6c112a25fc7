package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"hapienAPI/internal/types/chat"
)

const (
	chatModel         = "claude-3-5-haiku-latest"
	chatMaxTokens     = 512
	chatHistoryLimit  = 10
	chatSystemPrompt  = "You are Hapien's in-app companion. Keep replies short, warm and conversational. Help users plan hangouts and stay in touch with friends. Never invent facts about people."
	chatFallbackReply = "I'm having a little trouble thinking right now. Give me a moment and try again!"
)

// ChatService relays user messages to the Anthropic messages API. It
// never returns a hard failure: a missing key or a provider error
// degrades to a canned reply with the fallback flag set.
type ChatService struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewChatService() *ChatService {
	return &ChatService{
		apiKey:     os.Getenv("ANTHROPIC_API_KEY"),
		baseURL:    "https://api.anthropic.com",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Chat produces a reply for the user's message plus a short context
// window. Empty messages are the handler's problem; everything that can
// go wrong here resolves to the fallback reply.
func (s *ChatService) Chat(ctx context.Context, req *chat.ChatRequest) *chat.ChatResponse {
	if s.apiKey == "" {
		return &chat.ChatResponse{Response: chatFallbackReply, Fallback: true}
	}

	body, err := json.Marshal(anthropicRequest{
		Model:     chatModel,
		MaxTokens: chatMaxTokens,
		System:    chatSystemPrompt,
		Messages:  buildMessages(req),
	})
	if err != nil {
		log.Printf("ChatService: payload marshal: %v", err)
		return &chat.ChatResponse{Response: chatFallbackReply, Fallback: true}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		log.Printf("ChatService: request build: %v", err)
		return &chat.ChatResponse{Response: chatFallbackReply, Fallback: true}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", s.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		log.Printf("ChatService: request failed: %v", err)
		return &chat.ChatResponse{Response: chatFallbackReply, Fallback: true}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("ChatService: provider status %d: %s", resp.StatusCode, string(respBody))
		return &chat.ChatResponse{Response: chatFallbackReply, Fallback: true}
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		log.Printf("ChatService: response unmarshal: %v", err)
		return &chat.ChatResponse{Response: chatFallbackReply, Fallback: true}
	}

	for _, block := range parsed.Content {
		if block.Type == "text" && block.Text != "" {
			return &chat.ChatResponse{Response: block.Text, Fallback: false}
		}
	}

	log.Printf("ChatService: no text block in provider response")
	return &chat.ChatResponse{Response: chatFallbackReply, Fallback: true}
}

// buildMessages maps the last few history entries onto provider roles
// and appends the current message annotated with any context tags.
func buildMessages(req *chat.ChatRequest) []anthropicMessage {
	history := req.ConversationHistory
	if len(history) > chatHistoryLimit {
		history = history[len(history)-chatHistoryLimit:]
	}

	messages := make([]anthropicMessage, 0, len(history)+1)
	for _, entry := range history {
		role := "assistant"
		if entry.FromUser {
			role = "user"
		}
		messages = append(messages, anthropicMessage{Role: role, Content: entry.Text})
	}

	messages = append(messages, anthropicMessage{Role: "user", Content: annotateMessage(req)})
	return messages
}

func annotateMessage(req *chat.ChatRequest) string {
	if req.Context == nil {
		return req.Message
	}

	var tags []string
	if req.Context.Name != "" {
		tags = append(tags, fmt.Sprintf("[name: %s]", req.Context.Name))
	}
	if req.Context.Stat != "" {
		tags = append(tags, fmt.Sprintf("[stat: %s]", req.Context.Stat))
	}
	if req.Context.LastSeen != "" {
		tags = append(tags, fmt.Sprintf("[last seen: %s]", req.Context.LastSeen))
	}
	if len(tags) == 0 {
		return req.Message
	}

	return strings.Join(tags, " ") + " " + req.Message
}
