package tui

import (
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/randomizedcoder/go-sidecar-shell/internal/readiness"
	"github.com/randomizedcoder/go-sidecar-shell/internal/resolver"
)

// =============================================================================
// Messages
// =============================================================================

// TickMsg is sent periodically to refresh the log pane.
type TickMsg time.Time

// EvalMsg applies a window script.
type EvalMsg struct {
	Assignments []resolver.Assignment
}

// StateMsg reports a resolver state change.
type StateMsg struct {
	State string
}

// PromptMsg opens the connection-failed dialog. The answer is sent on
// Reply, which must be buffered.
type PromptMsg struct {
	Prompt resolver.Prompt
	Reply  chan<- resolver.Decision
}

// DismissPromptMsg closes an open dialog without answering.
type DismissPromptMsg struct{}

// ResolvedMsg carries the final outcome.
type ResolvedMsg struct {
	Outcome readiness.Outcome
}

// QuitMsg signals the TUI should exit.
type QuitMsg struct{}

// =============================================================================
// Model
// =============================================================================

// LogSource renders captured sidecar output.
type LogSource interface {
	String() string
}

// buttons are the dialog choices in display order.
var buttons = []struct {
	decision resolver.Decision
	label    string
}{
	{resolver.DecisionRetry, "Retry"},
	{resolver.DecisionFallbackToLocal, "Start Local"},
	{resolver.DecisionCancel, "Cancel"},
}

type pendingPrompt struct {
	prompt   resolver.Prompt
	reply    chan<- resolver.Decision
	selected int
}

func (p pendingPrompt) active() bool {
	return p.reply != nil
}

// Model represents the TUI state.
type Model struct {
	// Configuration
	version     string
	metricsAddr string

	// Window globals set by scripts
	port           int
	serverReady    bool
	serverURL      string
	updaterEnabled bool

	// Resolution
	state      string
	outcome    *readiness.Outcome
	prompt     pendingPrompt
	startTime  time.Time
	resolvedAt time.Time

	// Logs
	logs       LogSource
	logContent string
	showLogs   bool
	viewport   viewport.Model

	spinner spinner.Model
	keys    keyMap

	width  int
	height int

	quitting bool
}

// Config holds TUI configuration.
type Config struct {
	Version     string
	MetricsAddr string
	Logs        LogSource

	// InitScript is applied before the first frame, like a window
	// initialization script.
	InitScript string
}

// New creates a new TUI model.
func New(cfg Config) Model {
	m := Model{
		version:     cfg.Version,
		metricsAddr: cfg.MetricsAddr,
		logs:        cfg.Logs,
		state:       "init",
		startTime:   time.Now(),
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(statusWarning)),
		viewport:    viewport.New(80, logPaneHeight),
		keys:        defaultKeyMap(),
		width:       80,
		height:      24,
	}
	if cfg.InitScript != "" {
		m.apply(resolver.ParseScript(cfg.InitScript))
	}
	return m
}

// =============================================================================
// Key Bindings
// =============================================================================

type keyMap struct {
	Retry  key.Binding
	Local  key.Binding
	Cancel key.Binding
	Next   key.Binding
	Prev   key.Binding
	Select key.Binding
	Logs   key.Binding
	Quit   key.Binding
	Force  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Retry:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
		Local:  key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "start local")),
		Cancel: key.NewBinding(key.WithKeys("c", "esc"), key.WithHelp("c", "cancel")),
		Next:   key.NewBinding(key.WithKeys("right", "tab"), key.WithHelp("→", "next")),
		Prev:   key.NewBinding(key.WithKeys("left", "shift+tab"), key.WithHelp("←", "prev")),
		Select: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Logs:   key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "logs")),
		Quit:   key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		Force:  key.NewBinding(key.WithKeys("ctrl+c")),
	}
}

// =============================================================================
// Bubble Tea Interface
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		return m, nil

	case TickMsg:
		m.refreshLogs()
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case EvalMsg:
		m.apply(msg.Assignments)
		return m, nil

	case StateMsg:
		m.state = msg.State
		return m, nil

	case PromptMsg:
		// A superseded dialog is answered with cancel so its asker unblocks.
		m.answer(resolver.DecisionCancel)
		m.prompt = pendingPrompt{prompt: msg.Prompt, reply: msg.Reply}
		return m, nil

	case DismissPromptMsg:
		m.prompt = pendingPrompt{}
		return m, nil

	case ResolvedMsg:
		o := msg.Outcome
		m.outcome = &o
		m.resolvedAt = time.Now()
		if !o.OK() {
			m.showLogs = true
		}
		m.refreshLogs()
		return m, nil

	case QuitMsg:
		m.answer(resolver.DecisionCancel)
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Force) {
		m.answer(resolver.DecisionCancel)
		m.quitting = true
		return m, tea.Quit
	}

	if m.prompt.active() {
		switch {
		case key.Matches(msg, m.keys.Retry):
			m.answer(resolver.DecisionRetry)
		case key.Matches(msg, m.keys.Local):
			m.answer(resolver.DecisionFallbackToLocal)
		case key.Matches(msg, m.keys.Cancel):
			m.answer(resolver.DecisionCancel)
		case key.Matches(msg, m.keys.Next):
			m.prompt.selected = (m.prompt.selected + 1) % len(buttons)
		case key.Matches(msg, m.keys.Prev):
			m.prompt.selected = (m.prompt.selected + len(buttons) - 1) % len(buttons)
		case key.Matches(msg, m.keys.Select):
			m.answer(buttons[m.prompt.selected].decision)
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Logs):
		m.showLogs = !m.showLogs
		m.refreshLogs()
	default:
		if m.showLogs {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

// answer replies to the open dialog, if any, and closes it.
func (m *Model) answer(d resolver.Decision) {
	if !m.prompt.active() {
		return
	}
	select {
	case m.prompt.reply <- d:
	default:
	}
	m.prompt = pendingPrompt{}
}

func (m *Model) apply(as []resolver.Assignment) {
	for _, a := range as {
		switch a.Key {
		case "serverReady":
			m.serverReady = a.Bool()
		case "serverUrl":
			m.serverURL = a.Value
		case "port":
			if p, err := strconv.Atoi(a.Value); err == nil {
				m.port = p
			}
		case "updaterEnabled":
			m.updaterEnabled = a.Bool()
		}
	}
}

func (m *Model) refreshLogs() {
	if m.logs == nil {
		return
	}
	content := m.logs.String()
	if content == m.logContent {
		return
	}
	m.logContent = content
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(content)
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// Commands
// =============================================================================

// tickCmd returns a command that sends a tick after 500ms.
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// =============================================================================
// Accessors
// =============================================================================

// ServerReady reports whether the ready script has run.
func (m Model) ServerReady() bool {
	return m.serverReady
}

// ServerURL returns the remote URL handed to the window, if any.
func (m Model) ServerURL() string {
	return m.serverURL
}

// Port returns the port from the init script.
func (m Model) Port() int {
	return m.port
}

// State returns the last reported resolver state.
func (m Model) State() string {
	return m.state
}

// Prompting reports whether the dialog is open.
func (m Model) Prompting() bool {
	return m.prompt.active()
}

// Outcome returns the final outcome once resolved.
func (m Model) Outcome() (readiness.Outcome, bool) {
	if m.outcome == nil {
		return readiness.Outcome{}, false
	}
	return *m.outcome, true
}
