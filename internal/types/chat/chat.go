package chat

type HistoryEntry struct {
	Text     string `json:"text"`
	FromUser bool   `json:"from_user"`
}

// Context carries optional tags the client attaches to a message so the
// model can ground its reply (who the user is talking about, a headline
// stat, how recently they were active).
type Context struct {
	Name     string `json:"name,omitempty"`
	Stat     string `json:"stat,omitempty"`
	LastSeen string `json:"last_seen,omitempty"`
}

type ChatRequest struct {
	Message             string         `json:"message"`
	Context             *Context       `json:"context,omitempty"`
	ConversationHistory []HistoryEntry `json:"conversationHistory,omitempty"`
}

type ChatResponse struct {
	Response string `json:"response"`
	Fallback bool   `json:"fallback"`
}
