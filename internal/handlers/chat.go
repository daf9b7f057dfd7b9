package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"chat-relay/internal/models"
	"chat-relay/internal/relay"
)

// maxChatBody caps the inbound /api/chat payload.
const maxChatBody = 1 << 20

type chatRelay interface {
	Forward(ctx context.Context, body any) (json.RawMessage, error)
}

type ChatHandler struct {
	relay   chatRelay
	devMode bool
	logger  *slog.Logger
}

func NewChatHandler(relay chatRelay, devMode bool, logger *slog.Logger) *ChatHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatHandler{relay: relay, devMode: devMode, logger: logger}
}

// Chat relays {"text": ...} to the backend and returns its reply.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Text is required"})
		return
	}

	out, err := h.relay.Forward(r.Context(), models.ChatRequest{Text: req.Text})
	if err != nil {
		h.writeRelayError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

func (h *ChatHandler) writeRelayError(w http.ResponseWriter, r *http.Request, err error) {
	if relay.IsAbort(err) || errors.Is(r.Context().Err(), context.Canceled) {
		h.logger.Info("chat request aborted", slog.String("request_id", requestID(r)))
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.logger.Error("Error in chat API route",
		slog.String("request_id", requestID(r)),
		slog.String("error", err.Error()))

	status, message := statusForError(err)
	resp := models.ErrorResponse{Error: message}
	if h.devMode {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// statusForError maps a relay failure to the status and message returned
// to the browser.
func statusForError(err error) (int, string) {
	kind, _ := relay.KindOf(err)
	switch kind {
	case relay.KindNetwork:
		return http.StatusServiceUnavailable, "Failed to connect to backend service"
	case relay.KindTimeout:
		return http.StatusGatewayTimeout, "Backend service took too long to respond"
	case relay.KindBackendStatus:
		return http.StatusInternalServerError, err.Error()
	default:
		return http.StatusInternalServerError, "Failed to process request"
	}
}
