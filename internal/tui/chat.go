package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ashureev/fabric-console/internal/chat"
	"github.com/ashureev/fabric-console/internal/domain"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

const applyCommand = "/apply"

type entryMsg struct{ entry chat.Entry }
type dismissMsg struct{ id int64 }
type stateMsg struct{ state chat.State }
type noticeMsg struct{ text string }

// Sender delivers messages into a running program. *tea.Program implements it.
type Sender interface {
	Send(msg tea.Msg)
}

// programView forwards manager events into the bubbletea program.
type programView struct {
	sender Sender
}

func (v *programView) Show(e chat.Entry)     { v.sender.Send(entryMsg{entry: e}) }
func (v *programView) Dismiss(id int64)      { v.sender.Send(dismissMsg{id: id}) }
func (v *programView) SetState(s chat.State) { v.sender.Send(stateMsg{state: s}) }

// lazySender lets the manager be built before the program it reports to.
type lazySender struct {
	program *tea.Program
}

func (l *lazySender) Send(msg tea.Msg) { l.program.Send(msg) }

// ChatModel is the bubbletea model of the chat sidebar.
type ChatModel struct {
	ctx     context.Context
	mgr     *chat.Manager
	vp      viewport.Model
	ti      textinput.Model
	sp      spinner.Model
	entries []chat.Entry
	offered []domain.Suggestion
	state   chat.State
	notice  string
	width   int
	height  int
}

// NewChatModel creates the model. The manager must report to a View that
// delivers into the same program.
func NewChatModel(ctx context.Context, mgr *chat.Manager) *ChatModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about orders or inventory (Enter to send, /apply N for a suggestion)"
	ti.CharLimit = 0
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &ChatModel{
		ctx: ctx,
		mgr: mgr,
		vp:  viewport.New(80, 20),
		ti:  ti,
		sp:  sp,
	}
}

// Init starts the transcript and the spinner.
func (m *ChatModel) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.sp.Tick,
		func() tea.Msg {
			m.mgr.Initialize()
			return nil
		},
	)
}

// Update handles input and manager events.
func (m *ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ti.Width = msg.Width - 4
		m.vp.Width = msg.Width
		m.vp.Height = max(msg.Height-3, 3)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			text := strings.TrimSpace(m.ti.Value())
			m.ti.SetValue("")
			return m, m.command(text)
		}

	case entryMsg:
		m.entries = append(m.entries, msg.entry)
		if len(msg.entry.Suggestions) > 0 {
			m.offered = msg.entry.Suggestions
		}
		m.refresh()
		return m, nil

	case dismissMsg:
		for i, e := range m.entries {
			if e.ID == msg.id {
				m.entries = append(m.entries[:i], m.entries[i+1:]...)
				break
			}
		}
		m.refresh()
		return m, nil

	case stateMsg:
		m.state = msg.state
		return m, nil

	case noticeMsg:
		m.notice = msg.text
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.sp, cmd = m.sp.Update(msg)
		if m.state != chat.StateIdle {
			m.refresh()
		}
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	cmds = append(cmds, cmd)
	m.vp, cmd = m.vp.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// command turns an input line into a manager call run off the UI loop.
func (m *ChatModel) command(text string) tea.Cmd {
	m.notice = ""
	if text == "" {
		return nil
	}
	if rest, ok := strings.CutPrefix(text, applyCommand); ok {
		n, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil || n < 1 || n > len(m.offered) {
			m.notice = fmt.Sprintf("No suggestion %q to apply.", strings.TrimSpace(rest))
			return nil
		}
		id := m.offered[n-1].ID
		return func() tea.Msg {
			if err := m.mgr.SuggestionClick(m.ctx, id); err != nil {
				return noticeMsg{text: err.Error()}
			}
			return nil
		}
	}
	return func() tea.Msg {
		m.mgr.Submit(m.ctx, text)
		return nil
	}
}

func (m *ChatModel) refresh() {
	width := m.vp.Width - 4
	if width < 1 {
		width = 1
	}
	var b strings.Builder
	for _, e := range m.entries {
		switch {
		case e.Transient:
			b.WriteString(workingStyle.Render(m.sp.View() + " " + e.Content))
		case e.Role == domain.RoleUser:
			b.WriteString(userStyle.Width(width).Render(e.Content))
		default:
			b.WriteString(assistantStyle.Width(width).Render(e.Content))
		}
		b.WriteString("\n")
		for i, s := range e.Suggestions {
			b.WriteString(suggestionStyle.Render(fmt.Sprintf("  [%d] %s", i+1, s.Title)) + "\n")
		}
	}
	m.vp.SetContent(b.String())
	m.vp.GotoBottom()
}

// View renders the transcript above the input line.
func (m *ChatModel) View() string {
	status := mutedStyle.Render(m.state.String())
	if m.notice != "" {
		status = errorStyle.Render(m.notice)
	}
	return m.vp.View() + "\n" + status + "\n" + m.ti.View()
}

// RunChat runs the chat sidebar in the terminal until the user quits.
func RunChat(ctx context.Context, agent chat.Agent, opts ...tea.ProgramOption) error {
	sender := &lazySender{}
	mgr := chat.NewManager(agent, &programView{sender: sender})
	program := tea.NewProgram(NewChatModel(ctx, mgr), append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)...)
	sender.program = program

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run chat: %w", err)
	}
	return nil
}
