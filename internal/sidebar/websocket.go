package sidebar

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/fabric-console/internal/chat"
	"github.com/ashureev/fabric-console/internal/identity"
	"github.com/coder/websocket"
)

const (
	writeTimeout = 10 * time.Second
	// commandQueueSize bounds the turns a tab can queue behind the current one.
	commandQueueSize = 8
)

// Event types sent to the browser.
const (
	EventMessage = "message"
	EventDismiss = "dismiss"
	EventState   = "state"
	EventError   = "error"
	EventPong    = "pong"
)

// Command types accepted from the browser.
const (
	CommandSubmit     = "submit"
	CommandSuggestion = "suggestion"
	CommandPing       = "ping"
)

// AgentFactory builds the agent a connection's transcript talks to.
type AgentFactory func(userID, sessionID string) (chat.Agent, error)

// LastSeenUpdater records user activity.
type LastSeenUpdater interface {
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error
}

// Event is one server-to-browser message.
type Event struct {
	Type  string      `json:"type"`
	Entry *chat.Entry `json:"entry,omitempty"`
	ID    int64       `json:"id,omitempty"`
	State string      `json:"state,omitempty"`
	Error string      `json:"error,omitempty"`
}

// Command is one browser-to-server message.
type Command struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	ID   string `json:"id,omitempty"`
}

// Handler upgrades /ws/chat requests and runs one chat transcript per
// connection.
type Handler struct {
	agents        AgentFactory
	users         LastSeenUpdater
	sm            *SessionManager
	allowedOrigin string
	isDev         bool
}

// NewHandler creates a sidebar handler. users may be nil.
func NewHandler(agents AgentFactory, users LastSeenUpdater, sm *SessionManager, allowedOrigin string, isDev bool) *Handler {
	return &Handler{
		agents:        agents,
		users:         users,
		sm:            sm,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// wsView writes transcript changes to the connection.
type wsView struct {
	conn *websocket.Conn
	ctx  context.Context
}

func (v *wsView) Show(e chat.Entry) {
	v.send(Event{Type: EventMessage, Entry: &e})
}

func (v *wsView) Dismiss(id int64) {
	v.send(Event{Type: EventDismiss, ID: id})
}

func (v *wsView) SetState(s chat.State) {
	v.send(Event{Type: EventState, State: s.String()})
}

func (v *wsView) send(ev Event) {
	if v.ctx.Err() != nil {
		return
	}
	if err := writeJSON(v.ctx, v.conn, ev); err != nil {
		slog.Debug("WebSocket write error", "type", ev.Type, "error", err)
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	slog.Info("Chat connection request", "user_id", userID, "session_id", sessionID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	agent, err := h.agents(userID, sessionID)
	if err != nil {
		slog.Error("Failed to create chat agent", "user_id", userID, "error", err)
		http.Error(w, "chat unavailable", http.StatusServiceUnavailable)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	h.sm.Register(userID, sessionID, ws)
	defer h.sm.Unregister(userID, sessionID, ws)

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	mgr := chat.NewManager(agent, &wsView{conn: ws, ctx: ctx},
		chat.WithLogger(slog.Default().With("user_id", userID, "session_id", sessionID)))
	mgr.Initialize()

	commands := make(chan Command, commandQueueSize)
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.runCommands(ctx, ws, mgr, commands)
	}()

	h.readLoop(ctx, ws, commands, userID)
	close(commands)
	cancel()
	<-done
	slog.Info("Chat session ended", "user_id", userID, "session_id", sessionID)
}

// runCommands executes queued turns one at a time, in arrival order.
func (h *Handler) runCommands(ctx context.Context, ws *websocket.Conn, mgr *chat.Manager, commands <-chan Command) {
	for cmd := range commands {
		switch cmd.Type {
		case CommandSubmit:
			mgr.Submit(ctx, cmd.Text)
		case CommandSuggestion:
			if err := mgr.SuggestionClick(ctx, cmd.ID); err != nil {
				if werr := writeJSON(ctx, ws, Event{Type: EventError, Error: err.Error()}); werr != nil {
					slog.Debug("Failed to send suggestion error", "error", werr)
				}
			}
		}
	}
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, commands chan<- Command, userID string) {
	for {
		_, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				slog.Debug("WebSocket closed by client", "user_id", userID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(message, &cmd); err != nil {
			h.sendError(ctx, ws, "invalid command")
			continue
		}

		switch cmd.Type {
		case CommandPing:
			if err := writeJSON(ctx, ws, Event{Type: EventPong}); err != nil {
				slog.Debug("Failed to send pong", "error", err)
			}
			continue
		case CommandSubmit, CommandSuggestion:
			select {
			case commands <- cmd:
			default:
				h.sendError(ctx, ws, "too many pending messages")
			}
		default:
			h.sendError(ctx, ws, "unknown command type: "+cmd.Type)
			continue
		}

		h.touch(userID)
	}
}

func (h *Handler) touch(userID string) {
	if h.users == nil || userID == "" {
		return
	}
	go func() {
		updateCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.users.UpdateLastSeen(updateCtx, userID, time.Now()); err != nil {
			slog.Warn("Failed to update last seen", "error", err)
		}
	}()
}

func (h *Handler) sendError(ctx context.Context, ws *websocket.Conn, msg string) {
	if err := writeJSON(ctx, ws, Event{Type: EventError, Error: msg}); err != nil {
		slog.Debug("Failed to send error event", "error", err)
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	// Same-origin pages served by this process.
	if origin == "http://"+r.Host || origin == "https://"+r.Host {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func writeJSON(ctx context.Context, ws *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(writeCtx, websocket.MessageText, data)
}
