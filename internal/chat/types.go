// Package chat implements the Fabric Intelligence chat transcript and its
// request/response cycle against the agent endpoint.
package chat

import (
	"context"

	"github.com/ashureev/fabric-console/internal/domain"
)

// Fixed assistant texts.
const (
	// WorkingMarker identifies transient "in progress" assistant messages.
	WorkingMarker = "Working on that"
	// Greeting seeds every freshly initialized transcript.
	Greeting = "Hi there! How can I help you with Fabric Intelligence today?"

	workingText        = WorkingMarker + "."
	unexpectedReply    = "Received an unexpected response from the agent."
	agentErrorPrefix   = "Error from agent: "
	requestErrorPrefix = "Sorry, I encountered an error: "
)

// State is the request state of a Manager.
type State int

const (
	// StateIdle accepts new turns.
	StateIdle State = iota
	// StateSending has recorded the user message and is issuing the request.
	StateSending
	// StateAwaitingReply has a request in flight.
	StateAwaitingReply
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateAwaitingReply:
		return "awaiting_reply"
	default:
		return "unknown"
	}
}

// Reply is the agent endpoint's response body. Either field may be empty.
type Reply struct {
	Response    string              `json:"response,omitempty"`
	Error       string              `json:"error,omitempty"`
	Suggestions []domain.Suggestion `json:"suggestions,omitempty"`
}

// Agent sends the persisted transcript to the remote agent.
type Agent interface {
	Chat(ctx context.Context, history []domain.ChatMessage) (*Reply, error)
}

// Entry is one displayed chat bubble.
type Entry struct {
	ID          int64               `json:"id"`
	Role        string              `json:"role"`
	Content     string              `json:"content"`
	Transient   bool                `json:"transient,omitempty"`
	Suggestions []domain.Suggestion `json:"suggestions,omitempty"`
}

// View renders transcript changes. Implementations must not call back into
// the Manager synchronously.
type View interface {
	Show(e Entry)
	Dismiss(id int64)
	SetState(s State)
}

type noopView struct{}

func (noopView) Show(Entry)     {}
func (noopView) Dismiss(int64)  {}
func (noopView) SetState(State) {}
