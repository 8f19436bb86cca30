package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/koopa0/helpdesk/internal/agent"
	"github.com/koopa0/helpdesk/internal/retrieval"
	"github.com/koopa0/helpdesk/internal/session"
)

// maxChatBodyBytes caps request bodies; user messages are short.
const maxChatBodyBytes = 64 << 10

// chatRequest is the JSON body of the chat endpoints.
type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
	UserID         string `json:"user_id,omitempty"`
}

// chatResponse is the JSON reply of the chat endpoints.
type chatResponse struct {
	Message        string             `json:"message"`
	ConversationID string             `json:"conversation_id"`
	Sources        []retrieval.Source `json:"sources"`
	Confidence     float64            `json:"confidence"`
	Metadata       chatMetadata       `json:"metadata"`
}

type chatMetadata struct {
	GuardrailTriggered bool   `json:"guardrail_triggered"`
	GuardrailType      string `json:"guardrail_type,omitempty"`
	ToolUsed           string `json:"tool_used,omitempty"`
	MeetingID          string `json:"meeting_id,omitempty"`
	Error              string `json:"error,omitempty"`
}

type chatHandler struct {
	agent    Responder
	sessions *session.MemoryStore
	logger   *slog.Logger
}

func newChatHandler(responder Responder, sessions *session.MemoryStore, logger *slog.Logger) *chatHandler {
	return &chatHandler{agent: responder, sessions: sessions, logger: logger}
}

func (h *chatHandler) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.chat)
	mux.HandleFunc("POST /api/voice", h.voice)
	mux.HandleFunc("POST /api/products/{product}/chat", h.productChat)

	mux.HandleFunc("GET /api/conversations", h.listConversations)
	mux.HandleFunc("GET /api/conversations/{id}", h.getConversation)
	mux.HandleFunc("DELETE /api/conversations/{id}", h.deleteConversation)
	mux.HandleFunc("POST /api/conversations/{id}/clear", h.clearConversation)
}

func (h *chatHandler) chat(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(req agent.Request) *agent.Result {
		return h.agent.Generate(r.Context(), req)
	})
}

func (h *chatHandler) voice(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(req agent.Request) *agent.Result {
		return h.agent.GenerateVoice(r.Context(), req)
	})
}

func (h *chatHandler) productChat(w http.ResponseWriter, r *http.Request) {
	product := strings.TrimSpace(r.PathValue("product"))
	if product == "" {
		writeError(w, http.StatusBadRequest, "product is required")
		return
	}
	h.respond(w, r, func(req agent.Request) *agent.Result {
		return h.agent.GenerateForProduct(r.Context(), req, product)
	})
}

// respond runs the shared conversation flow: load or create the thread,
// capture history, record the user turn, generate, record the assistant
// turn with its annotations.
func (h *chatHandler) respond(w http.ResponseWriter, r *http.Request, generate func(agent.Request) *agent.Result) {
	body, ok := h.decodeChatRequest(w, r)
	if !ok {
		return
	}

	var convID uuid.UUID
	if body.ConversationID != "" {
		parsed, err := uuid.Parse(body.ConversationID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid conversation_id")
			return
		}
		convID = parsed
	}

	conv := h.sessions.GetOrCreate(convID, body.UserID)

	// History is captured before the new turn is recorded; the pipeline
	// appends the user message itself.
	history := h.sessions.History(conv.ID, 10)

	if err := h.sessions.Append(conv.ID, session.Message{
		Role:    agent.RoleUser,
		Content: body.Message,
	}); err != nil {
		h.logger.Error("recording user turn failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record message")
		return
	}

	result := generate(agent.Request{
		Message: body.Message,
		UserID:  body.UserID,
		History: history,
	})

	if err := h.sessions.Append(conv.ID, session.Message{
		Role:    agent.RoleAssistant,
		Content: result.Message,
		Metadata: map[string]any{
			"confidence":          result.Confidence,
			"sources":             result.Sources,
			"guardrail_triggered": result.GuardrailTriggered,
		},
	}); err != nil {
		h.logger.Error("recording assistant turn failed", "error", err)
	}

	sources := result.Sources
	if sources == nil {
		sources = []retrieval.Source{}
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Message:        result.Message,
		ConversationID: conv.ID.String(),
		Sources:        sources,
		Confidence:     result.Confidence,
		Metadata: chatMetadata{
			GuardrailTriggered: result.GuardrailTriggered,
			GuardrailType:      string(result.GuardrailType),
			ToolUsed:           result.ToolUsed,
			MeetingID:          result.MeetingID,
			Error:              result.Error,
		},
	})
}

func (h *chatHandler) decodeChatRequest(w http.ResponseWriter, r *http.Request) (chatRequest, bool) {
	var body chatRequest

	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return body, false
	}
	if strings.TrimSpace(body.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return body, false
	}
	return body, true
}

func (h *chatHandler) listConversations(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	conversations := h.sessions.List(r.URL.Query().Get("user_id"), limit)
	writeJSON(w, http.StatusOK, conversations)
}

func (h *chatHandler) getConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseConversationID(w, r)
	if !ok {
		return
	}

	conv, err := h.sessions.Get(id)
	if err != nil {
		h.conversationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (h *chatHandler) deleteConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseConversationID(w, r)
	if !ok {
		return
	}

	if err := h.sessions.Delete(id); err != nil {
		h.conversationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "conversation deleted"})
}

func (h *chatHandler) clearConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseConversationID(w, r)
	if !ok {
		return
	}

	if err := h.sessions.Clear(id); err != nil {
		h.conversationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "conversation cleared"})
}

func (h *chatHandler) parseConversationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid conversation id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *chatHandler) conversationError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}
