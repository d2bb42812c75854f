// Package tui is the terminal front-end of the chat. It drives a
// session.Session from bubbletea commands: each cycle runs in a command,
// one at a time, and the trigger it returns decides when the next one runs.
package tui

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/omochice/story-chat/internal/session"
)

const defaultWidth = 80

// Options configures the model.
type Options struct {
	Title string
	// MarkdownStyle is a glamour standard style name. Empty picks one from
	// the terminal background.
	MarkdownStyle string
}

type cycleDoneMsg struct {
	res session.Result
}

// wakeMsg ends a delay. gen identifies the delay it belongs to.
type wakeMsg struct {
	gen uint64
}

// queueMsg reports that the session queue was signalled.
type queueMsg struct{}

// Model is the root bubbletea model of the chat screen.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	sess   *session.Session
	opts   Options

	input   textinput.Model
	spinner spinner.Model
	md      *glamour.TermRenderer
	keyMap  KeyMap
	style   *Style

	view     *session.View
	errors   []string
	selected int

	// cycling is set while a cycle command is running. The session is only
	// touched from that command.
	cycling  bool
	queued   *session.Action
	gen      uint64
	// waiting is set while a command is blocked on the queue.
	waiting  bool
	quitting bool
	width    int
}

// New creates the model. The caller closes sess after the program ends.
func New(sess *session.Session, opts Options) Model {
	if opts.Title == "" {
		opts.Title = "Story chat"
	}

	ti := textinput.New()
	ti.Placeholder = "Type a message"
	ti.CharLimit = 1000
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot

	ctx, cancel := context.WithCancel(context.Background())

	m := Model{
		ctx:     ctx,
		cancel:  cancel,
		sess:    sess,
		opts:    opts,
		input:   ti,
		spinner: s,
		keyMap:  DefaultKeyMap,
		style:   DefaultStyles(),
		width:   defaultWidth,
		// Init starts the first cycle.
		cycling: true,
	}
	m.md = newMarkdownRenderer(opts.MarkdownStyle, m.width)
	return m
}

func newMarkdownRenderer(style string, width int) *glamour.TermRenderer {
	styleOpt := glamour.WithAutoStyle()
	if style != "" {
		styleOpt = glamour.WithStandardStyle(style)
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		log.Warn().Err(err).Str("component", "tui").Msg("Markdown rendering disabled")
		return nil
	}
	return r
}

// Snapshot returns the last rendered session view, or nil before the first.
func (m Model) Snapshot() *session.View {
	return m.view
}

// Init starts the first cycle.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.cycle(nil), m.spinner.Tick, textinput.Blink)
}

// cycle runs one session cycle with an optional action applied first.
func (m Model) cycle(a *session.Action) tea.Cmd {
	sess, ctx := m.sess, m.ctx
	return func() tea.Msg {
		if a != nil {
			sess.Act(*a)
		}
		return cycleDoneMsg{res: sess.Cycle(ctx)}
	}
}

func (m Model) startCycle(a *session.Action) (Model, tea.Cmd) {
	m.cycling = true
	m.gen++
	return m, m.cycle(a)
}

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if msg.Width > 0 && msg.Width != m.width {
			m.width = msg.Width
			m.md = newMarkdownRenderer(m.opts.MarkdownStyle, m.width)
		}
		m.input.Width = m.width - 4
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case cycleDoneMsg:
		m.cycling = false
		if m.quitting {
			return m, tea.Quit
		}
		if msg.res.View != nil {
			m.show(msg.res.View)
		}
		return m.schedule(msg.res.Trigger)

	case wakeMsg:
		if m.cycling || m.quitting || msg.gen != m.gen {
			return m, nil
		}
		return m.startCycle(nil)

	case queueMsg:
		m.waiting = false
		if m.cycling || m.quitting {
			return m, nil
		}
		return m.startCycle(nil)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) show(v *session.View) {
	if m.view == nil || !slices.Equal(m.view.Options, v.Options) {
		m.selected = 0
	}
	m.view = v
	// Errors stay up until a later cycle brings new ones.
	if len(v.Errors) > 0 {
		m.errors = v.Errors
	}
}

// schedule turns a trigger into the command that starts the next cycle.
func (m Model) schedule(t session.Trigger) (tea.Model, tea.Cmd) {
	if m.queued != nil {
		a := m.queued
		m.queued = nil
		return m.startCycle(a)
	}

	switch t.Cause {
	case session.RestartNow, session.Continue:
		return m.startCycle(nil)
	case session.RestartAfterDelay:
		m.gen++
		gen := m.gen
		return m, tea.Tick(t.Delay, func(time.Time) tea.Msg { return wakeMsg{gen: gen} })
	default:
		if m.waiting {
			return m, nil
		}
		m.waiting = true
		return m, m.waitQueue()
	}
}

func (m Model) waitQueue() tea.Cmd {
	q, ctx := m.sess.Queue(), m.ctx
	return func() tea.Msg {
		if !q.Empty() {
			return queueMsg{}
		}
		select {
		case <-q.Ready():
			return queueMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keyMap.Quit) {
		m.quitting = true
		m.cancel()
		if m.cycling {
			return m, nil
		}
		return m, tea.Quit
	}

	if m.view == nil {
		return m, nil
	}

	switch m.view.Input {
	case session.InputOptions:
		options := m.view.Options
		switch {
		case key.Matches(msg, m.keyMap.PrevOption):
			m.selected = (m.selected - 1 + len(options)) % len(options)
		case key.Matches(msg, m.keyMap.NextOption):
			m.selected = (m.selected + 1) % len(options)
		case key.Matches(msg, m.keyMap.Submit):
			return m.act(session.ChooseOption(options[m.selected]))
		default:
			if n, err := strconv.Atoi(msg.String()); err == nil && n >= 1 && n <= len(options) {
				m.selected = n - 1
				return m.act(session.ChooseOption(options[n-1]))
			}
		}
		return m, nil

	case session.InputText:
		if key.Matches(msg, m.keyMap.Submit) {
			text := m.input.Value()
			if strings.TrimSpace(text) == "" {
				return m, nil
			}
			m.input.Reset()
			return m.act(session.SubmitText(text))
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// act hands an action to the session, right away when no cycle is running.
func (m Model) act(a session.Action) (tea.Model, tea.Cmd) {
	if m.cycling {
		m.queued = &a
		return m, nil
	}
	return m.startCycle(&a)
}

// View renders the chat screen.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	parts := []string{m.style.Title.Render(m.opts.Title)}
	if m.view == nil {
		parts = append(parts, m.spinner.View()+" Starting...")
		return lipgloss.JoinVertical(lipgloss.Left, parts...) + "\n"
	}

	for _, msg := range m.view.Messages {
		parts = append(parts, m.renderMessage(msg))
	}

	if p := m.view.Pending; p != nil {
		label := m.style.AssistantLabel.Render(p.Name)
		parts = append(parts, label+" "+m.spinner.View(), m.style.Pending.Render(p.Text))
	}

	if len(m.view.Options) > 0 {
		for i, o := range m.view.Options {
			line := fmt.Sprintf("%d. %s", i+1, o)
			if i == m.selected {
				parts = append(parts, m.style.SelectedOption.Render(line))
			} else {
				parts = append(parts, m.style.Option.Render(line))
			}
		}
	}

	for _, e := range m.errors {
		parts = append(parts, m.style.Error.Render(e))
	}

	status := m.view.Status.Banner()
	if m.view.Status == session.StatusConnecting {
		status = m.spinner.View() + " " + status
	}
	parts = append(parts, m.style.Status[m.view.Status.String()].Render(status))

	switch m.view.Input {
	case session.InputText:
		parts = append(parts, m.input.View(), m.style.Help.Render("enter: send • esc: quit"))
	case session.InputOptions:
		parts = append(parts, m.style.Help.Render("1-9 or ↑/↓ + enter: choose • esc: quit"))
	default:
		parts = append(parts, m.style.Help.Render("esc: quit"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...) + "\n"
}

func (m Model) renderMessage(msg session.Message) string {
	if msg.Role == session.RoleUser {
		return m.style.UserLabel.Render("You") + "\n" + "  " + msg.Content
	}
	return m.style.AssistantLabel.Render(msg.Role) + "\n" + m.renderMarkdown(msg.Content)
}

func (m Model) renderMarkdown(content string) string {
	if m.md == nil {
		return "  " + content
	}
	rendered, err := m.md.Render(content)
	if err != nil {
		return "  " + content
	}
	return strings.TrimRight(rendered, "\n")
}
