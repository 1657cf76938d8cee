package tui

import (
	"context"
	"errors"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/randomizedcoder/go-sidecar-shell/internal/readiness"
	"github.com/randomizedcoder/go-sidecar-shell/internal/resolver"
)

// ErrClosed is returned once the window has exited.
var ErrClosed = errors.New("window closed")

// Shell runs the Bubble Tea program and exposes it as the resolver's
// window and prompter.
type Shell struct {
	program *tea.Program
	done    chan struct{}

	mu    sync.Mutex
	final tea.Model
}

// NewShell creates the window. Call Run to show it.
func NewShell(cfg Config, opts ...tea.ProgramOption) *Shell {
	return &Shell{
		program: tea.NewProgram(New(cfg), opts...),
		done:    make(chan struct{}),
	}
}

// Run blocks until the window exits.
func (s *Shell) Run() error {
	defer close(s.done)
	m, err := s.program.Run()
	s.mu.Lock()
	s.final = m
	s.mu.Unlock()
	return err
}

// Done is closed when the window has exited.
func (s *Shell) Done() <-chan struct{} {
	return s.done
}

// Final returns the model the program exited with.
func (s *Shell) Final() (Model, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.final.(Model)
	return m, ok
}

func (s *Shell) send(msg tea.Msg) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	s.program.Send(msg)
	return nil
}

// Eval implements resolver.Window.
func (s *Shell) Eval(script string) error {
	return s.send(EvalMsg{Assignments: resolver.ParseScript(script)})
}

// Ask implements resolver.Prompter.
func (s *Shell) Ask(ctx context.Context, p resolver.Prompt) (resolver.Decision, error) {
	reply := make(chan resolver.Decision, 1)
	if err := s.send(PromptMsg{Prompt: p, Reply: reply}); err != nil {
		return resolver.DecisionCancel, err
	}

	select {
	case d := <-reply:
		return d, nil
	case <-ctx.Done():
		_ = s.send(DismissPromptMsg{})
		return resolver.DecisionCancel, ctx.Err()
	case <-s.done:
		return resolver.DecisionCancel, ErrClosed
	}
}

// SetState reports a resolver state change.
func (s *Shell) SetState(name string) {
	_ = s.send(StateMsg{State: name})
}

// Resolved shows the final outcome.
func (s *Shell) Resolved(o readiness.Outcome) {
	_ = s.send(ResolvedMsg{Outcome: o})
}

// Quit closes the window.
func (s *Shell) Quit() {
	_ = s.send(QuitMsg{})
}
