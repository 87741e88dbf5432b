package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ashureev/fabric-console/internal/domain"
)

// ErrUnknownSuggestion is returned by SuggestionClick for ids no reply offered.
var ErrUnknownSuggestion = errors.New("unknown suggestion")

// Manager owns one conversation: the displayed entries, the persisted
// history used as agent context, and the suggestions offered so far.
type Manager struct {
	agent  Agent
	view   View
	logger *slog.Logger

	// turnMu serializes request cycles so at most one is in flight.
	turnMu sync.Mutex

	mu          sync.Mutex
	state       State
	history     []domain.ChatMessage
	display     []Entry
	suggestions map[string]domain.Suggestion
	nextID      int64
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for request failures.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a manager bound to agent. A nil view discards rendering.
// Call Initialize before the first turn.
func NewManager(agent Agent, view View, opts ...Option) *Manager {
	if view == nil {
		view = noopView{}
	}
	m := &Manager{
		agent:       agent,
		view:        view,
		logger:      slog.Default(),
		suggestions: make(map[string]domain.Suggestion),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize resets the transcript and seeds it with the greeting.
func (m *Manager) Initialize() {
	m.mu.Lock()
	removed := make([]int64, 0, len(m.display))
	for _, e := range m.display {
		removed = append(removed, e.ID)
	}
	m.history = nil
	m.display = nil
	m.suggestions = make(map[string]domain.Suggestion)
	m.state = StateIdle
	m.mu.Unlock()

	for _, id := range removed {
		m.view.Dismiss(id)
	}
	m.view.SetState(StateIdle)
	m.Append(Greeting, domain.RoleAssistant)
}

// Append displays a message. Assistant messages containing WorkingMarker are
// transient: shown, but never added to the history sent to the agent.
func (m *Manager) Append(content, role string) Entry {
	return m.append(content, role, nil)
}

func (m *Manager) append(content, role string, suggestions []domain.Suggestion) Entry {
	if role != domain.RoleUser {
		role = domain.RoleAssistant
	}

	m.mu.Lock()
	m.nextID++
	e := Entry{
		ID:          m.nextID,
		Role:        role,
		Content:     content,
		Transient:   role == domain.RoleAssistant && strings.Contains(content, WorkingMarker),
		Suggestions: suggestions,
	}
	m.display = append(m.display, e)
	if !e.Transient {
		m.history = append(m.history, domain.ChatMessage{Role: role, Content: strings.TrimSpace(content)})
	}
	for _, s := range suggestions {
		m.suggestions[s.ID] = s
	}
	m.mu.Unlock()

	m.view.Show(e)
	return e
}

// Submit handles a user-typed message. Whitespace-only text is ignored and
// reports false; otherwise the message is appended, the agent is asked for a
// reply, and Submit reports true. Failures become assistant messages.
func (m *Manager) Submit(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	m.turnMu.Lock()
	defer m.turnMu.Unlock()

	m.append(text, domain.RoleUser, nil)
	m.runTurn(ctx)
	return true
}

// SuggestionClick applies a suggestion offered by an earlier reply.
func (m *Manager) SuggestionClick(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.suggestions[id]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSuggestion, id)
	}

	m.turnMu.Lock()
	defer m.turnMu.Unlock()

	title := s.Title
	if strings.TrimSpace(title) == "" {
		title = "a suggestion"
	}
	m.append(fmt.Sprintf(`%s"%s"`, domain.SuggestionConfirmPrefix, title), domain.RoleUser, nil)
	m.runTurn(ctx)
	return nil
}

func (m *Manager) runTurn(ctx context.Context) {
	m.setState(StateSending)
	working := m.append(workingText, domain.RoleAssistant, nil)
	history := m.History()

	m.setState(StateAwaitingReply)
	reply, err := m.agent.Chat(ctx, history)
	m.dismiss(working.ID)

	switch {
	case err != nil:
		m.logger.Error("failed to call agent", "error", err)
		m.append(requestErrorPrefix+err.Error(), domain.RoleAssistant, nil)
	case reply != nil && reply.Response != "":
		m.append(reply.Response, domain.RoleAssistant, reply.Suggestions)
	case reply != nil && reply.Error != "":
		m.append(agentErrorPrefix+reply.Error, domain.RoleAssistant, nil)
	default:
		m.append(unexpectedReply, domain.RoleAssistant, nil)
	}

	m.setState(StateIdle)
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
	m.view.SetState(s)
}

func (m *Manager) dismiss(id int64) {
	m.mu.Lock()
	for i, e := range m.display {
		if e.ID == id {
			m.display = append(m.display[:i], m.display[i+1:]...)
			break
		}
	}
	m.mu.Unlock()
	m.view.Dismiss(id)
}

// History returns a copy of the persisted transcript used as agent context.
func (m *Manager) History() []domain.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ChatMessage, len(m.history))
	copy(out, m.history)
	return out
}

// Displayed returns a copy of the entries currently shown.
func (m *Manager) Displayed() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.display))
	copy(out, m.display)
	return out
}

// State returns the current request state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}
