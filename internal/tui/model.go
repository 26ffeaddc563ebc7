// Package tui is the full-screen chat presenter.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/career-chat/internal"
)

const (
	title       = "Career Mentor"
	tagline     = "Learning • Skills • Roadmaps"
	placeholder = "Ask me anything... (Enter to send, Ctrl+C to exit)"
	timeLayout  = "15:04"

	headerHeight = 2
	footerHeight = 2
	inputHeight  = 3
)

// scrollKeys leaves letter keys to the text input
var scrollKeys = viewport.KeyMap{
	PageDown: key.NewBinding(key.WithKeys("pgdown")),
	PageUp:   key.NewBinding(key.WithKeys("pgup")),
}

// Engine is the conversation the model presents
type Engine interface {
	Snapshot() []internal.Message
	State() internal.SendState
	Submit(ctx context.Context, text string) internal.Outcome
	Hydrate(ctx context.Context) error
	Subscribe(o internal.Observer) (unsubscribe func())
}

// Options controls presentation
type Options struct {
	Ephemeral bool
	// Markdown renders bot replies with glamour
	Markdown bool
}

type (
	transcriptMsg []internal.Message
	lifecycleMsg  internal.SendState
	hydratedMsg   struct{ err error }
	submittedMsg  struct{ outcome internal.Outcome }
)

// Model is the Bubble Tea model for a chat session
type Model struct {
	ctx    context.Context
	engine Engine
	opts   Options
	bridge *bridge

	textinput textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	renderer  *glamour.TermRenderer

	messages []internal.Message
	state    internal.SendState
	status   string
	width    int
	height   int
	ready    bool
}

// New creates a model over engine. Engine notifications are only delivered
// when the model is started with Run.
func New(ctx context.Context, engine Engine, opts Options) Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "› "
	ti.CharLimit = 4000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return Model{
		ctx:       ctx,
		engine:    engine,
		opts:      opts,
		textinput: ti,
		spinner:   sp,
		messages:  engine.Snapshot(),
		state:     engine.State(),
	}
}

// Run shows the chat full screen until the user quits or ctx is done
func Run(ctx context.Context, engine Engine, opts Options) error {
	b := newBridge()
	unsubscribe := engine.Subscribe(b)
	defer unsubscribe()
	defer b.close()

	m := New(ctx, engine, opts)
	m.bridge = b

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("chat UI failed: %w", err)
	}
	return nil
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.hydrateCmd(),
		m.listen(),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.handleSubmit()
		}
		m.textinput, tiCmd = m.textinput.Update(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := msg.Height - headerHeight - footerHeight - inputHeight
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, vpHeight)
			m.viewport.KeyMap = scrollKeys
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = vpHeight
		}
		m.textinput.Width = msg.Width - 6

		if m.opts.Markdown {
			m.renderer, _ = glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(m.bubbleWidth()),
			)
		}
		m.refresh()

	case transcriptMsg:
		m.messages = msg
		m.refresh()
		return m, m.listen()

	case lifecycleMsg:
		m.state = internal.SendState(msg)
		m.refresh()
		if m.state == internal.StatePending {
			return m, tea.Batch(m.listen(), m.spinner.Tick)
		}
		return m, m.listen()

	case hydratedMsg:
		if msg.err != nil && !errors.Is(msg.err, internal.ErrAlreadyHydrated) {
			m.status = "Could not load history: " + msg.err.Error()
		}
		m.messages = m.engine.Snapshot()
		m.refresh()

	case submittedMsg:
		m.messages = m.engine.Snapshot()
		m.state = m.engine.State()
		if msg.outcome == internal.OutcomeSettled {
			m.status = ""
		}
		m.refresh()

	case spinner.TickMsg:
		if m.state == internal.StatePending {
			var spCmd tea.Cmd
			m.spinner, spCmd = m.spinner.Update(msg)
			m.refresh()
			return m, spCmd
		}
		return m, nil
	}

	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd)
}

func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.textinput.Value())
	if text == "" || m.state == internal.StatePending {
		return m, nil
	}

	m.textinput.Reset()
	m.state = internal.StatePending
	m.refresh()

	return m, tea.Batch(
		m.spinner.Tick,
		m.submitCmd(text),
	)
}

func (m Model) View() string {
	if !m.ready {
		return "\n  Loading..."
	}

	header := lipgloss.JoinHorizontal(lipgloss.Top,
		brandStyle.Render(title),
		"  ",
		tagStyle.Render(tagline),
	)
	if m.opts.Ephemeral {
		header += "  " + statusStyle.Render("(temporary session)")
	}

	footer := helpStyle.Render("Enter to send • PgUp/PgDn to scroll • Ctrl+C to quit")
	if m.status != "" {
		footer = statusStyle.Render(m.status)
	}

	return fmt.Sprintf("%s\n\n%s\n%s\n%s",
		header,
		m.viewport.View(),
		inputStyle.Width(m.width-2).Render(m.textinput.View()),
		footer,
	)
}

func (m Model) hydrateCmd() tea.Cmd {
	engine, ctx := m.engine, m.ctx
	return func() tea.Msg {
		return hydratedMsg{err: engine.Hydrate(ctx)}
	}
}

func (m Model) submitCmd(text string) tea.Cmd {
	engine, ctx := m.engine, m.ctx
	return func() tea.Msg {
		return submittedMsg{outcome: engine.Submit(ctx, text)}
	}
}

func (m Model) listen() tea.Cmd {
	if m.bridge == nil {
		return nil
	}
	b := m.bridge
	return func() tea.Msg {
		select {
		case msg := <-b.events:
			return msg
		case <-b.done:
			return nil
		}
	}
}

// refresh re-renders the transcript into the viewport and keeps it scrolled
// to the newest message
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) bubbleWidth() int {
	w := m.width * 3 / 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m Model) renderTranscript() string {
	if len(m.messages) == 0 && m.state != internal.StatePending {
		return helpStyle.Render("No messages yet. Ask about skills or roadmaps to get started.")
	}

	blocks := make([]string, 0, len(m.messages)+1)
	for _, msg := range m.messages {
		blocks = append(blocks, m.renderMessage(msg))
	}
	if m.state == internal.StatePending {
		blocks = append(blocks, botLabelStyle.Render(internal.RoleBot.Label())+" "+m.spinner.View()+" "+timeStyle.Render("typing"))
	}
	return strings.Join(blocks, "\n\n")
}

func (m Model) renderMessage(msg internal.Message) string {
	labelStyle, bubble := botLabelStyle, botBubbleStyle
	switch {
	case msg.IsError:
		labelStyle, bubble = errorLabelStyle, errorBubbleStyle
	case msg.Role == internal.RoleUser:
		labelStyle, bubble = userLabelStyle, userBubbleStyle
	}

	meta := labelStyle.Render(msg.Role.Label())
	if !msg.ReceivedAt.IsZero() {
		meta += " " + timeStyle.Render(msg.ReceivedAt.Format(timeLayout))
	}

	content := msg.Content
	if msg.Role == internal.RoleBot && !msg.IsError && m.renderer != nil {
		if out, err := m.renderer.Render(content); err == nil {
			content = strings.Trim(out, "\n")
		}
	}

	width := m.bubbleWidth()
	if lipgloss.Width(content)+4 < width {
		width = lipgloss.Width(content) + 4
	}
	block := lipgloss.JoinVertical(lipgloss.Left, meta, bubble.Width(width).Render(content))

	if msg.Role == internal.RoleUser {
		return lipgloss.PlaceHorizontal(m.viewport.Width, lipgloss.Right, block)
	}
	return block
}

// bridge forwards engine notifications into the program
type bridge struct {
	events chan tea.Msg
	done   chan struct{}
	once   sync.Once
}

func newBridge() *bridge {
	return &bridge{
		events: make(chan tea.Msg),
		done:   make(chan struct{}),
	}
}

func (b *bridge) TranscriptChanged(snapshot []internal.Message) {
	b.send(transcriptMsg(snapshot))
}

func (b *bridge) LifecycleChanged(state internal.SendState) {
	b.send(lifecycleMsg(state))
}

func (b *bridge) send(msg tea.Msg) {
	select {
	case b.events <- msg:
	case <-b.done:
	}
}

func (b *bridge) close() {
	b.once.Do(func() { close(b.done) })
}
