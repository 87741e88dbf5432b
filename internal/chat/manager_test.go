package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/ashureev/fabric-console/internal/domain"
)

type fakeAgent struct {
	mu      sync.Mutex
	calls   [][]domain.ChatMessage
	replies []*Reply
	errs    []error
}

func (f *fakeAgent) Chat(_ context.Context, history []domain.ChatMessage) (*Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.calls)
	f.calls = append(f.calls, history)
	var reply *Reply
	var err error
	if i < len(f.replies) {
		reply = f.replies[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return reply, err
}

func (f *fakeAgent) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type recordingView struct {
	mu        sync.Mutex
	shown     []Entry
	dismissed []int64
	states    []State
}

func (v *recordingView) Show(e Entry) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.shown = append(v.shown, e)
}

func (v *recordingView) Dismiss(id int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dismissed = append(v.dismissed, id)
}

func (v *recordingView) SetState(s State) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.states = append(v.states, s)
}

func TestInitializeSeedsGreeting(t *testing.T) {
	t.Parallel()

	m := NewManager(&fakeAgent{}, nil)
	m.Append("stale", domain.RoleUser)
	m.Initialize()

	history := m.History()
	if len(history) != 1 {
		t.Fatalf("expected 1 message after Initialize, got %d", len(history))
	}
	if history[0].Role != domain.RoleAssistant || history[0].Content != Greeting {
		t.Errorf("unexpected greeting: %+v", history[0])
	}
	if got := len(m.Displayed()); got != 1 {
		t.Errorf("expected 1 displayed entry, got %d", got)
	}
}

func TestAppendWorkingMarkerIsTransient(t *testing.T) {
	t.Parallel()

	view := &recordingView{}
	m := NewManager(&fakeAgent{}, view)
	m.Initialize()

	e := m.Append("Working on that. Please wait", domain.RoleAssistant)
	if !e.Transient {
		t.Error("expected working message to be transient")
	}
	if got := len(m.History()); got != 1 {
		t.Errorf("working message leaked into history: %d messages", got)
	}
	if got := len(m.Displayed()); got != 2 {
		t.Errorf("expected working message to be displayed, got %d entries", got)
	}

	// The marker only applies to assistant messages.
	u := m.Append("Working on that for me?", domain.RoleUser)
	if u.Transient {
		t.Error("user message must not be transient")
	}
	if got := len(m.History()); got != 2 {
		t.Errorf("expected user message in history, got %d", got)
	}
}

func TestSubmitWhitespaceIsNoop(t *testing.T) {
	t.Parallel()

	agent := &fakeAgent{}
	m := NewManager(agent, nil)
	m.Initialize()

	for _, text := range []string{"", "   ", "\n\t "} {
		if m.Submit(context.Background(), text) {
			t.Errorf("Submit(%q) reported a turn", text)
		}
	}
	if agent.callCount() != 0 {
		t.Errorf("expected no agent calls, got %d", agent.callCount())
	}
	if got := len(m.History()); got != 1 {
		t.Errorf("expected only the greeting, got %d messages", got)
	}
}

func TestSubmitSendsHistoryWithoutWorkingMarker(t *testing.T) {
	t.Parallel()

	agent := &fakeAgent{replies: []*Reply{{Response: "Order 123 has shipped."}}}
	view := &recordingView{}
	m := NewManager(agent, view)
	m.Initialize()

	if !m.Submit(context.Background(), "  where is order 123?  ") {
		t.Fatal("expected Submit to run a turn")
	}

	if agent.callCount() != 1 {
		t.Fatalf("expected 1 agent call, got %d", agent.callCount())
	}
	sent := agent.calls[0]
	if len(sent) != 2 {
		t.Fatalf("expected greeting + user message, got %+v", sent)
	}
	if sent[1].Role != domain.RoleUser || sent[1].Content != "where is order 123?" {
		t.Errorf("unexpected user message: %+v", sent[1])
	}
	for _, msg := range sent {
		if strings.Contains(msg.Content, WorkingMarker) {
			t.Errorf("working marker sent to agent: %+v", msg)
		}
	}

	history := m.History()
	if last := history[len(history)-1]; last.Content != "Order 123 has shipped." {
		t.Errorf("expected reply appended, got %+v", last)
	}

	// The working bubble was shown and then dismissed.
	var workingID int64
	for _, e := range view.shown {
		if e.Transient {
			workingID = e.ID
		}
	}
	if workingID == 0 {
		t.Fatal("working indicator was never shown")
	}
	if len(view.dismissed) != 1 || view.dismissed[0] != workingID {
		t.Errorf("expected working indicator %d dismissed, got %v", workingID, view.dismissed)
	}
	for _, e := range m.Displayed() {
		if e.Transient {
			t.Errorf("transient entry still displayed: %+v", e)
		}
	}

	wantStates := []State{StateIdle, StateSending, StateAwaitingReply, StateIdle}
	if len(view.states) != len(wantStates) {
		t.Fatalf("states = %v, want %v", view.states, wantStates)
	}
	for i := range wantStates {
		if view.states[i] != wantStates[i] {
			t.Errorf("states[%d] = %v, want %v", i, view.states[i], wantStates[i])
		}
	}
	if m.State() != StateIdle {
		t.Errorf("expected idle after turn, got %v", m.State())
	}
}

func TestSubmitReplyVariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		reply *Reply
		err   error
		want  string
	}{
		{name: "response", reply: &Reply{Response: "hello"}, want: "hello"},
		{name: "agent error", reply: &Reply{Error: "X"}, want: "Error from agent: X"},
		{name: "empty reply", reply: &Reply{}, want: unexpectedReply},
		{name: "nil reply", want: unexpectedReply},
		{name: "transport error", err: errors.New("connection refused"), want: "Sorry, I encountered an error: connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			agent := &fakeAgent{replies: []*Reply{tt.reply}, errs: []error{tt.err}}
			m := NewManager(agent, nil)
			m.Initialize()
			before := len(m.History())

			m.Submit(context.Background(), "hi")

			history := m.History()
			if len(history) != before+2 {
				t.Fatalf("expected exactly one user and one assistant message, got %+v", history[before:])
			}
			last := history[len(history)-1]
			if last.Role != domain.RoleAssistant || last.Content != tt.want {
				t.Errorf("got %+v, want assistant %q", last, tt.want)
			}
			if m.State() != StateIdle {
				t.Errorf("expected idle, got %v", m.State())
			}
		})
	}
}

func TestSubmitAfterAgentErrorStillWorks(t *testing.T) {
	t.Parallel()

	agent := &fakeAgent{replies: []*Reply{{Error: "X"}, {Response: "recovered"}}}
	m := NewManager(agent, nil)
	m.Initialize()

	m.Submit(context.Background(), "first")
	m.Submit(context.Background(), "second")

	if agent.callCount() != 2 {
		t.Fatalf("expected 2 agent calls, got %d", agent.callCount())
	}
	// Second request carries the error message as context.
	second := agent.calls[1]
	if !strings.Contains(second[2].Content, "X") {
		t.Errorf("expected error reply in context, got %+v", second)
	}
	history := m.History()
	if last := history[len(history)-1]; last.Content != "recovered" {
		t.Errorf("expected recovered reply, got %+v", last)
	}
}

func TestSuggestionClick(t *testing.T) {
	t.Parallel()

	agent := &fakeAgent{replies: []*Reply{
		{Response: "SKU 100084-000012-2 is low.", Suggestions: []domain.Suggestion{{ID: "reorder-1", Title: "Reorder 3-Shelf Bookcase"}}},
		{Response: "Reorder placed."},
	}}
	m := NewManager(agent, nil)
	m.Initialize()
	m.Submit(context.Background(), "check sku 100084-000012-2")

	if err := m.SuggestionClick(context.Background(), "missing"); !errors.Is(err, ErrUnknownSuggestion) {
		t.Errorf("expected ErrUnknownSuggestion, got %v", err)
	}
	if agent.callCount() != 1 {
		t.Fatalf("unknown suggestion must not call the agent, got %d calls", agent.callCount())
	}

	if err := m.SuggestionClick(context.Background(), "reorder-1"); err != nil {
		t.Fatalf("SuggestionClick: %v", err)
	}
	history := m.History()
	confirm := history[len(history)-2]
	want := `Okay, I will try to apply suggestion: "Reorder 3-Shelf Bookcase"`
	if confirm.Role != domain.RoleUser || confirm.Content != want {
		t.Errorf("confirmation = %+v, want %q", confirm, want)
	}
	if last := history[len(history)-1]; last.Content != "Reorder placed." {
		t.Errorf("expected reply after suggestion, got %+v", last)
	}
}

func TestInitializeClearsSuggestions(t *testing.T) {
	t.Parallel()

	agent := &fakeAgent{replies: []*Reply{
		{Response: "ok", Suggestions: []domain.Suggestion{{ID: "s1", Title: "Do it"}}},
	}}
	m := NewManager(agent, nil)
	m.Initialize()
	m.Submit(context.Background(), "hi")
	m.Initialize()

	if err := m.SuggestionClick(context.Background(), "s1"); !errors.Is(err, ErrUnknownSuggestion) {
		t.Errorf("expected suggestions cleared, got %v", err)
	}
}

func TestSubmitSerializesTurns(t *testing.T) {
	t.Parallel()

	agent := &fakeAgent{}
	for range 8 {
		agent.replies = append(agent.replies, &Reply{Response: "ok"})
	}
	m := NewManager(agent, nil)
	m.Initialize()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Submit(context.Background(), "ping")
		}()
	}
	wg.Wait()

	history := m.History()
	if len(history) != 1+8*2 {
		t.Fatalf("expected 17 messages, got %d", len(history))
	}
	// Serialized turns alternate user/assistant after the greeting.
	for i := 1; i < len(history); i += 2 {
		if history[i].Role != domain.RoleUser || history[i+1].Role != domain.RoleAssistant {
			t.Fatalf("turns interleaved at %d: %+v %+v", i, history[i], history[i+1])
		}
	}
}
