package agent

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/fabric-console/internal/api"
	"github.com/ashureev/fabric-console/internal/identity"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// defaultMaxRequestBodySize is the default maximum allowed request body size (1MB).
const defaultMaxRequestBodySize = 1 << 20

const errNoMessagesBody = "No messages array provided"

// Handler serves the Fabric Intelligence chat endpoint.
type Handler struct {
	agent       *Service
	rateLimiter *RateLimiter
	log         ConversationLogger
	maxBodySize int64
}

// NewHandler creates a chat handler. A nil logger disables conversation logging.
func NewHandler(agent *Service, rateLimiter *RateLimiter, conversationLogger ConversationLogger) *Handler {
	if conversationLogger == nil {
		conversationLogger = noopConversationLogger{}
	}
	return &Handler{
		agent:       agent,
		rateLimiter: rateLimiter,
		log:         conversationLogger,
		maxBodySize: defaultMaxRequestBodySize,
	}
}

// RegisterRoutes registers agent routes under the /api router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/fabric-intelligence-chat", h.HandleChat)
}

// HandleChat handles POST /api/fabric-intelligence-chat.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	reqID := chiMiddleware.GetReqID(r.Context())

	// Anonymous callers without the identity middleware share one bucket.
	limitKey := userID
	if limitKey == "" {
		limitKey = identity.IPFromRequest(r)
	}
	if h.rateLimiter != nil && !h.rateLimiter.Allow(limitKey) {
		api.JSON(w, http.StatusTooManyRequests, ChatResponse{Error: "rate limit exceeded"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.JSON(w, http.StatusRequestEntityTooLarge, ChatResponse{Error: "request body too large"})
			return
		}
		slog.Warn("Bad chat request body", "user_id", userID, "error", err)
		api.JSON(w, http.StatusBadRequest, ChatResponse{Error: errNoMessagesBody})
		return
	}
	if len(req.Messages) == 0 {
		slog.Warn("Bad chat request, no messages", "user_id", userID)
		api.JSON(w, http.StatusBadRequest, ChatResponse{Error: errNoMessagesBody})
		return
	}

	last := req.Messages[len(req.Messages)-1]
	slog.Info("Agent chat request",
		"user_id", userID,
		"session_id", sessionID,
		"messages", len(req.Messages),
		"last_length", len(last.Content),
	)
	h.log.Log(ConversationLogEvent{
		UserID:     userID,
		SessionID:  sessionID,
		Channel:    "chat_http",
		Direction:  "outbound",
		EventType:  "chat_user_message",
		ContentRaw: last.Content,
		Meta: map[string]any{
			"request_id": reqID,
			"history":    len(req.Messages),
		},
	})

	start := time.Now()
	reply, err := h.agent.Chat(r.Context(), req.Messages)
	if errors.Is(err, ErrNoMessages) {
		api.JSON(w, http.StatusBadRequest, ChatResponse{Error: errNoMessagesBody})
		return
	}
	if err != nil {
		slog.Error("Agent chat failed", "user_id", userID, "session_id", sessionID, "error", err)
		h.logAssistant(userID, sessionID, "", reqID, err.Error(), nil)
		api.JSON(w, http.StatusInternalServerError, ChatResponse{Error: err.Error()})
		return
	}

	h.logAssistant(userID, sessionID, reply.Text, reqID, "", map[string]any{
		"type":        reply.Type,
		"tools_used":  reply.ToolsUsed,
		"suggestions": len(reply.Suggestions),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	api.JSON(w, http.StatusOK, ChatResponse{
		Response:    reply.Text,
		Suggestions: reply.Suggestions,
		ToolsUsed:   reply.ToolsUsed,
	})
}

func (h *Handler) logAssistant(userID, sessionID, content, requestID, errMsg string, meta map[string]any) {
	if meta == nil {
		meta = map[string]any{}
	}
	meta["request_id"] = requestID
	if errMsg != "" {
		meta["error"] = errMsg
	}
	h.log.Log(ConversationLogEvent{
		UserID:     userID,
		SessionID:  sessionID,
		Channel:    "chat_http",
		Direction:  "inbound",
		EventType:  "chat_assistant_message",
		ContentRaw: content,
		Meta:       meta,
	})
}

// Close releases handler resources.
func (h *Handler) Close() {
	if h.rateLimiter != nil {
		h.rateLimiter.Stop()
	}
	if err := h.log.Close(); err != nil {
		slog.Warn("failed to close conversation logger", "error", err)
	}
}
