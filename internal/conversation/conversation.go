// Package conversation holds the transcript state of one chat client and
// the pure reducers that move it forward. A State is never mutated in
// place: every reducer returns a new snapshot.
package conversation

import (
	"strings"

	"github.com/google/uuid"

	"chat-relay/internal/models"
)

type State struct {
	Messages []models.ChatMessage
	Input    string
	Loading  bool
}

// NewID returns a message id with the given prefix ("user", "ai", "error").
var NewID = func(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// appendMessage copies the transcript so earlier snapshots keep their view.
func (s State) appendMessage(m models.ChatMessage) State {
	msgs := make([]models.ChatMessage, len(s.Messages), len(s.Messages)+1)
	copy(msgs, s.Messages)
	s.Messages = append(msgs, m)
	return s
}

// SetInput replaces the input buffer.
func (s State) SetInput(text string) State {
	s.Input = text
	return s
}

// CanSubmit reports whether Submit would accept the current input.
func (s State) CanSubmit() bool {
	return !s.Loading && strings.TrimSpace(s.Input) != ""
}

// Submit appends the input as a user message, clears the input and marks
// the state as loading. It returns the text to relay and false when the
// input is empty or a request is already in flight; the state is then
// returned unchanged.
func (s State) Submit() (State, string, bool) {
	if !s.CanSubmit() {
		return s, "", false
	}

	text := s.Input
	next := s.appendMessage(models.ChatMessage{
		ID:     NewID("user"),
		Text:   text,
		Sender: models.SenderUser,
	})
	next.Input = ""
	next.Loading = true
	return next, text, true
}

// Succeed appends the ai reply and ends loading.
func (s State) Succeed(text string) State {
	next := s.appendMessage(models.ChatMessage{
		ID:     NewID("ai"),
		Text:   text,
		Sender: models.SenderAI,
	})
	next.Loading = false
	return next
}

// Fail appends an ai error message and ends loading.
func (s State) Fail(text string) State {
	next := s.appendMessage(models.ChatMessage{
		ID:     NewID("error"),
		Text:   text,
		Sender: models.SenderAI,
		Error:  true,
	})
	next.Loading = false
	return next
}

// Last returns the newest message, if any.
func (s State) Last() (models.ChatMessage, bool) {
	if len(s.Messages) == 0 {
		return models.ChatMessage{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}
