package conversation

import (
	"strings"
	"testing"

	"chat-relay/internal/models"
)

func TestSubmit_RejectsBlankInput(t *testing.T) {
	for _, input := range []string{"", " ", "\n\t  "} {
		s := State{}.SetInput(input)
		next, text, ok := s.Submit()
		if ok || text != "" {
			t.Fatalf("input %q: expected rejection", input)
		}
		if len(next.Messages) != 0 || next.Loading {
			t.Fatalf("input %q: state must be unchanged, got %+v", input, next)
		}
	}
}

func TestSubmit_AppendsUserMessage(t *testing.T) {
	s := State{}.SetInput("hello there")

	next, text, ok := s.Submit()
	if !ok || text != "hello there" {
		t.Fatalf("expected submit to accept input, got ok=%v text=%q", ok, text)
	}
	if next.Input != "" || !next.Loading {
		t.Fatalf("expected cleared input and loading, got %+v", next)
	}
	last, _ := next.Last()
	if last.Sender != models.SenderUser || last.Text != "hello there" || !strings.HasPrefix(last.ID, "user-") {
		t.Fatalf("unexpected user message %+v", last)
	}
}

func TestSubmit_RefusedWhileLoading(t *testing.T) {
	s, _, _ := State{}.SetInput("first").Submit()
	s = s.SetInput("second")

	next, _, ok := s.Submit()
	if ok {
		t.Fatalf("expected submit to be refused while loading")
	}
	if len(next.Messages) != 1 {
		t.Fatalf("expected a single message, got %d", len(next.Messages))
	}
}

func TestExactlyOneTerminalMessagePerSubmit(t *testing.T) {
	tests := []struct {
		name   string
		settle func(State) State
		isErr  bool
	}{
		{"success", func(s State) State { return s.Succeed("X") }, false},
		{"failure", func(s State) State { return s.Fail("Network error.") }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, _, _ := State{}.SetInput("X").Submit()
			s = tc.settle(s)

			if len(s.Messages) != 2 {
				t.Fatalf("expected user + one terminal message, got %d", len(s.Messages))
			}
			if s.Loading {
				t.Fatalf("expected loading to be cleared")
			}
			last, _ := s.Last()
			if last.Sender != models.SenderAI || last.Error != tc.isErr {
				t.Fatalf("unexpected terminal message %+v", last)
			}
		})
	}
}

func TestReducersDoNotMutatePreviousSnapshots(t *testing.T) {
	base, _, _ := State{}.SetInput("one").Submit()
	base = base.Succeed("reply one")
	// spare capacity would let a careless append write into base's array
	base.Messages = append(make([]models.ChatMessage, 0, 4), base.Messages...)

	a := base.SetInput("two")
	a, _, _ = a.Submit()
	b := base.Fail("oops")

	if len(base.Messages) != 2 {
		t.Fatalf("base snapshot changed: %d messages", len(base.Messages))
	}
	if a.Messages[2].Text != "two" || b.Messages[2].Text != "oops" {
		t.Fatalf("snapshots share backing storage: a=%q b=%q", a.Messages[2].Text, b.Messages[2].Text)
	}
	if &a.Messages[0] == &base.Messages[0] || &b.Messages[0] == &base.Messages[0] {
		t.Fatalf("expected reducers to copy the message slice")
	}
}

func TestMessageIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	s := State{}
	for i := 0; i < 20; i++ {
		s, _, _ = s.SetInput("msg").Submit()
		s = s.Succeed("ok")
	}
	for _, m := range s.Messages {
		if seen[m.ID] {
			t.Fatalf("duplicate id %s", m.ID)
		}
		seen[m.ID] = true
	}
}
