package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chat-relay/internal/models"
	"chat-relay/internal/relay"
	"chat-relay/internal/retry"
)

type stubRelay struct {
	out      json.RawMessage
	err      error
	calls    int
	lastBody any
}

func (s *stubRelay) Forward(ctx context.Context, body any) (json.RawMessage, error) {
	s.calls++
	s.lastBody = body
	return s.out, s.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func postChat(h *ChatHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.Chat(rr, req)
	return rr
}

func TestChatHandler_Success(t *testing.T) {
	stub := &stubRelay{out: json.RawMessage(`{"content":"hello"}`)}
	h := NewChatHandler(stub, false, quietLogger())

	rr := postChat(h, `{"text":"hi"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if rr.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Expected Content-Type 'application/json', got %q", rr.Header().Get("Content-Type"))
	}
	if rr.Body.String() != `{"content":"hello"}` {
		t.Fatalf("unexpected body %q", rr.Body.String())
	}
	sent, ok := stub.lastBody.(models.ChatRequest)
	if !ok || sent.Text != "hi" {
		t.Fatalf("unexpected relayed body %#v", stub.lastBody)
	}
}

func TestChatHandler_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"invalid json", `{"text":`, "Invalid request body"},
		{"empty text", `{"text":""}`, "Text is required"},
		{"whitespace text", `{"text":"   \n\t"}`, "Text is required"},
		{"missing text", `{}`, "Text is required"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubRelay{}
			rr := postChat(NewChatHandler(stub, false, quietLogger()), tc.body)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
			}
			if stub.calls != 0 {
				t.Fatalf("relay must not be called for rejected input")
			}
			var resp models.ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Error != tc.message {
				t.Errorf("Expected %q, got %q", tc.message, resp.Error)
			}
		})
	}
}

func TestChatHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"network", &relay.Error{Kind: relay.KindNetwork, Err: errors.New("connection refused")}, http.StatusServiceUnavailable, "Failed to connect to backend service"},
		{"timeout", &relay.Error{Kind: relay.KindTimeout, Err: context.DeadlineExceeded}, http.StatusGatewayTimeout, "Backend service took too long to respond"},
		{"backend status", &relay.Error{Kind: relay.KindBackendStatus, Status: 502}, http.StatusInternalServerError, "Backend responded with status: 502"},
		{"parse", &relay.Error{Kind: relay.KindParse, Err: errors.New("bad json")}, http.StatusInternalServerError, "Failed to process request"},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, "Failed to process request"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := postChat(NewChatHandler(&stubRelay{err: tc.err}, false, quietLogger()), `{"text":"hi"}`)

			if rr.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, rr.Code)
			}
			var raw map[string]any
			if err := json.NewDecoder(rr.Body).Decode(&raw); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if raw["error"] != tc.message {
				t.Errorf("Expected %q, got %v", tc.message, raw["error"])
			}
			if _, ok := raw["details"]; ok {
				t.Errorf("details must be omitted outside development")
			}
		})
	}
}

func TestChatHandler_DetailsInDevelopment(t *testing.T) {
	err := &relay.Error{Kind: relay.KindNetwork, Err: errors.New("dial tcp: connection refused")}
	rr := postChat(NewChatHandler(&stubRelay{err: err}, true, quietLogger()), `{"text":"hi"}`)

	var resp models.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Details != err.Error() {
		t.Fatalf("expected details %q, got %q", err.Error(), resp.Details)
	}
}

func TestChatHandler_AbortReturnsNoContent(t *testing.T) {
	stub := &stubRelay{err: &relay.Error{Kind: relay.KindAbort, Err: context.Canceled}}
	rr := postChat(NewChatHandler(stub, true, quietLogger()), `{"text":"hi"}`)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rr.Code)
	}
	if rr.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", rr.Body.String())
	}
}

func TestChatHandler_CancelledRequestReturnsNoContent(t *testing.T) {
	stub := &stubRelay{err: errors.New("something downstream")}
	h := NewChatHandler(stub, false, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"text":"hi"}`)).WithContext(ctx)
	rr := httptest.NewRecorder()
	h.Chat(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rr.Code)
	}
}

func TestChatHandler_RoundTripThroughRelay(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat" {
			t.Errorf("unexpected backend path %s", r.URL.Path)
		}
		var req models.ChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		writeJSON(w, http.StatusOK, map[string]string{"message": req.Text})
	}))
	defer backend.Close()

	noSleep := retry.SleeperFunc(func(ctx context.Context, _ time.Duration) error { return ctx.Err() })
	rl := relay.New(backend.URL+"/chat", relay.WithSleeper(noSleep), relay.WithLogger(quietLogger()))
	rr := postChat(NewChatHandler(rl, false, quietLogger()), `{"text":"X"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var resp models.ChatResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Content != "X" {
		t.Fatalf("expected content X, got %q", resp.Content)
	}
}

func TestHealth(t *testing.T) {
	rr := httptest.NewRecorder()
	Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected health response %d %q", rr.Code, rr.Body.String())
	}
}
