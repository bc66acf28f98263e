package tui

import (
	"context"
	"iter"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragchat/internal/conversation"
)

type turn struct {
	user  string
	reply strings.Builder
}

// fragmentMsg carries one pulled piece of the reply being streamed.
type fragmentMsg struct {
	seq  int
	text string
	err  error
	done bool
}

// Model is the Bubble Tea model for the chat front-end.
type Model struct {
	ctx       context.Context
	responder conversation.Responder
	input     textinput.Model
	viewport  viewport.Model
	turns     []*turn
	title     string
	summary   string
	status    string
	ready     bool
	err       error

	// The reply in flight. next and stop are only called from pull commands;
	// Update ends a turn through cancel.
	seq     int
	next    func() (string, error, bool)
	stop    func()
	turnCtx context.Context
	cancel  context.CancelFunc
}

// New creates a chat model. Replies are produced by responder under ctx.
func New(ctx context.Context, responder conversation.Responder, title, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask something, or type exit"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		ctx:       ctx,
		responder: responder,
		input:     ti,
		viewport:  vp,
		title:     title,
		summary:   summary,
		status:    "Ready.",
	}
}

// Err is the collaborator error that ended the program, if any.
func (m Model) Err() error { return m.err }

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header + summary, status, input box, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-th)
		m.refresh()
		return m, nil
	case fragmentMsg:
		if m.next == nil || msg.seq != m.seq {
			return m, nil
		}
		if msg.err != nil {
			m.err = msg.err
			m.finish()
			return m, tea.Quit
		}
		if msg.done {
			m.finish()
			m.status = "Ready."
			m.refresh()
			return m, nil
		}
		m.turns[len(m.turns)-1].reply.WriteString(msg.text)
		m.refresh()
		return m, m.pull()
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			m.finish()
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			return m.submit()
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	line := m.input.Value()
	if conversation.IsExit(line) {
		m.finish()
		return m, tea.Quit
	}
	q := strings.TrimSpace(line)
	if q == "" || m.next != nil {
		return m, nil
	}
	m.input.Reset()
	m.turns = append(m.turns, &turn{user: q})
	m.seq++
	m.turnCtx, m.cancel = context.WithCancel(m.ctx)
	m.next, m.stop = iter.Pull2(m.responder.Respond(m.turnCtx, q))
	m.status = "Thinking..."
	m.refresh()
	return m, m.pull()
}

// pull reads the next fragment on the command goroutine. A turn that was
// cancelled or failed is stopped there too, so next and stop never run
// concurrently.
func (m Model) pull() tea.Cmd {
	next, stop, ctx, seq := m.next, m.stop, m.turnCtx, m.seq
	if next == nil {
		return nil
	}
	return func() tea.Msg {
		text, err, ok := next()
		switch {
		case ctx.Err() != nil:
			stop()
			return fragmentMsg{seq: seq, done: true}
		case !ok:
			return fragmentMsg{seq: seq, done: true}
		case err != nil:
			stop()
			return fragmentMsg{seq: seq, err: err}
		}
		return fragmentMsg{seq: seq, text: text}
	}
}

// finish releases the turn in flight without blocking on it.
func (m *Model) finish() {
	if m.cancel != nil {
		m.cancel()
	}
	m.next, m.stop, m.turnCtx, m.cancel = nil, nil, nil, nil
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render(m.title)
	summary := summaryStyle.Render(m.summary)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + summary + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) renderTranscript() string {
	if len(m.turns) == 0 {
		return "No messages yet."
	}
	wrap := lipgloss.NewStyle().Width(max(10, m.viewport.Width-4))
	var b strings.Builder
	for i, t := range m.turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(wrap.Render(userLabelStyle.Render("You:") + " " + t.user))
		b.WriteString("\n")
		b.WriteString(wrap.Render(aiLabelStyle.Render("AI:") + " " + t.reply.String()))
	}
	return b.String()
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	headerStyle        = lipgloss.NewStyle().Bold(true)
	summaryStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userLabelStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	aiLabelStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
)

// Run shows the chat until exit, ctrl+c or a collaborator error, which is
// returned.
func Run(ctx context.Context, responder conversation.Responder, title, summary string) error {
	p := tea.NewProgram(New(ctx, responder, title, summary), tea.WithContext(ctx), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(Model); ok {
		return m.Err()
	}
	return nil
}
