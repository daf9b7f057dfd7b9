package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"chat-relay/internal/client"
	"chat-relay/internal/models"
	"chat-relay/internal/relay"
)

type stubSender struct {
	outcome client.Outcome
	calls   int
	texts   []string
	ctxErrs []error
}

func (s *stubSender) Send(ctx context.Context, text string) client.Outcome {
	s.calls++
	s.texts = append(s.texts, text)
	s.ctxErrs = append(s.ctxErrs, ctx.Err())
	return s.outcome
}

func press(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func enter() tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyEnter}
}

func TestEnterWithBlankInputDoesNothing(t *testing.T) {
	sender := &stubSender{}
	m := New(sender, "chat")
	m.input.SetValue("   ")

	m, cmd := press(m, enter())
	if cmd != nil {
		t.Fatalf("expected no command for blank input")
	}
	if len(m.State().Messages) != 0 || m.State().Loading {
		t.Fatalf("expected untouched state, got %+v", m.State())
	}
}

func TestRoundTripRendersReply(t *testing.T) {
	sender := &stubSender{outcome: client.Outcome{Text: "X"}}
	m := New(sender, "chat")
	m.input.SetValue("X")

	m, cmd := press(m, enter())
	if cmd == nil {
		t.Fatalf("expected send command")
	}
	if !m.State().Loading || m.input.Value() != "" {
		t.Fatalf("expected loading with cleared input")
	}

	m, _ = press(m, cmd())
	if sender.calls != 1 || sender.texts[0] != "X" {
		t.Fatalf("unexpected sends %v", sender.texts)
	}

	msgs := m.State().Messages
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[1].Sender != models.SenderAI || msgs[1].Text != "X" || msgs[1].Error {
		t.Fatalf("unexpected reply %+v", msgs[1])
	}
	if m.State().Loading {
		t.Fatalf("expected loading to be cleared")
	}
	if !strings.Contains(m.View(), "X") {
		t.Fatalf("expected reply to be rendered")
	}
}

func TestFailureAppendsErrorMessage(t *testing.T) {
	sender := &stubSender{outcome: client.Outcome{Err: &relay.Error{Kind: relay.KindNetwork}}}
	m := New(sender, "chat")
	m.input.SetValue("hello")

	m, cmd := press(m, enter())
	m, _ = press(m, cmd())

	last, _ := m.State().Last()
	if !last.Error || last.Text != client.UserMessage(&relay.Error{Kind: relay.KindNetwork}) {
		t.Fatalf("unexpected error message %+v", last)
	}
}

func TestSubmitDisabledWhileLoading(t *testing.T) {
	sender := &stubSender{outcome: client.Outcome{Text: "ok"}}
	m := New(sender, "chat")
	m.input.SetValue("first")
	m, _ = press(m, enter())

	m.input.SetValue("second")
	m, cmd := press(m, enter())
	if cmd != nil {
		t.Fatalf("expected second submit to be ignored while loading")
	}
	if len(m.State().Messages) != 1 {
		t.Fatalf("expected only the first user message, got %d", len(m.State().Messages))
	}
}

func TestQuitCancelsInFlightSend(t *testing.T) {
	sender := &stubSender{outcome: client.Outcome{Text: "late"}}
	m := New(sender, "chat")
	m.input.SetValue("hello")

	m, send := press(m, enter())
	if send == nil {
		t.Fatalf("expected send command")
	}

	_, quit := press(m, tea.KeyMsg{Type: tea.KeyEsc})
	if quit == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := quit().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}

	send()
	if len(sender.ctxErrs) != 1 || sender.ctxErrs[0] != context.Canceled {
		t.Fatalf("expected send context to be cancelled, got %v", sender.ctxErrs)
	}
}
