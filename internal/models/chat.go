package models

// Sender identifies who authored a ChatMessage.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// ChatMessage is one line of the rendered transcript. Messages are never
// modified once appended.
type ChatMessage struct {
	ID          string `json:"id,omitempty"`
	Text        string `json:"text"`
	Sender      Sender `json:"sender"` // "user" or "ai"
	Error       bool   `json:"error,omitempty"`
	IsStreaming bool   `json:"isStreaming,omitempty"` // cosmetic only
}

// ChatRequest is the only payload shape sent through the relay.
type ChatRequest struct {
	Text string `json:"text"`
}

// ChatResponse is what /api/chat returns when the backend replied with a
// {"message": ...} envelope.
type ChatResponse struct {
	Content string `json:"content"`
}
