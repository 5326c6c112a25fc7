package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hapienAPI/internal/types/chat"
)

func TestChat_MissingKeyFallsBack(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	chatService := NewChatService()

	resp := chatService.Chat(context.Background(), &chat.ChatRequest{Message: "hello"})
	require.NotNil(t, resp)
	assert.True(t, resp.Fallback)
	assert.NotEmpty(t, resp.Response)
}

func TestBuildMessages_HistoryRolesAndCap(t *testing.T) {
	var history []chat.HistoryEntry
	for i := 0; i < 15; i++ {
		history = append(history, chat.HistoryEntry{
			Text:     fmt.Sprintf("msg %d", i),
			FromUser: i%2 == 0,
		})
	}

	messages := buildMessages(&chat.ChatRequest{
		Message:             "latest",
		ConversationHistory: history,
	})

	// Ten history entries plus the current message.
	require.Len(t, messages, chatHistoryLimit+1)

	// The oldest entries fell off the front.
	assert.Equal(t, "msg 5", messages[0].Content)

	for i, m := range messages[:chatHistoryLimit] {
		want := "assistant"
		if history[5+i].FromUser {
			want = "user"
		}
		assert.Equal(t, want, m.Role)
	}

	last := messages[len(messages)-1]
	assert.Equal(t, "user", last.Role)
	assert.Equal(t, "latest", last.Content)
}

func TestAnnotateMessage(t *testing.T) {
	plain := annotateMessage(&chat.ChatRequest{Message: "hi"})
	assert.Equal(t, "hi", plain)

	tagged := annotateMessage(&chat.ChatRequest{
		Message: "how are they doing?",
		Context: &chat.Context{
			Name:     "Priya",
			Stat:     "3 hangouts this month",
			LastSeen: "yesterday",
		},
	})
	assert.Equal(t, "[name: Priya] [stat: 3 hangouts this month] [last seen: yesterday] how are they doing?", tagged)

	// An empty context struct adds nothing.
	empty := annotateMessage(&chat.ChatRequest{Message: "hi", Context: &chat.Context{}})
	assert.Equal(t, "hi", empty)
}
