package tui

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/randomizedcoder/go-sidecar-shell/internal/readiness"
	"github.com/randomizedcoder/go-sidecar-shell/internal/resolver"
)

func timeSeconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func startShell(t *testing.T) *Shell {
	t.Helper()
	s := NewShell(Config{InitScript: resolver.InitScript(5000, false)},
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
		tea.WithoutRenderer(),
		tea.WithoutSignalHandler(),
	)
	errc := make(chan error, 1)
	go func() { errc <- s.Run() }()
	t.Cleanup(func() {
		s.Quit()
		select {
		case <-errc:
		case <-time.After(2 * time.Second):
			t.Error("shell did not exit")
		}
	})
	return s
}

func TestShell_AskAnsweredByKey(t *testing.T) {
	s := startShell(t)

	got := make(chan resolver.Decision, 1)
	go func() {
		d, _ := s.Ask(context.Background(), resolver.NewRemoteFailurePrompt("http://r"))
		got <- d
	}()

	// Keep pressing until the dialog has opened and consumed the key.
	deadline := time.After(2 * time.Second)
	for {
		s.program.Send(keyMsg("l"))
		select {
		case d := <-got:
			if d != resolver.DecisionFallbackToLocal {
				t.Errorf("Ask() = %v, want local", d)
			}
			return
		case <-deadline:
			t.Fatal("Ask() never returned")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestShell_AskContextCancelled(t *testing.T) {
	s := startShell(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	d, err := s.Ask(ctx, resolver.Prompt{})
	if d != resolver.DecisionCancel || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Ask() = %v, %v", d, err)
	}
}

func TestShell_EvalAndFinal(t *testing.T) {
	s := NewShell(Config{InitScript: resolver.InitScript(5000, false)},
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
		tea.WithoutRenderer(),
		tea.WithoutSignalHandler(),
	)
	errc := make(chan error, 1)
	go func() { errc <- s.Run() }()

	if err := s.Eval(resolver.ReadyScript()); err != nil {
		t.Fatal(err)
	}
	s.SetState("resolved")
	s.Resolved(readiness.Ok(readiness.Local(5000), nil))
	s.Quit()

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("shell did not exit")
	}

	m, ok := s.Final()
	if !ok {
		t.Fatal("Final() not a Model")
	}
	if !m.ServerReady() || m.Port() != 5000 || m.State() != "resolved" {
		t.Errorf("final = ready %v port %d state %q", m.ServerReady(), m.Port(), m.State())
	}

	if err := s.Eval(resolver.ReadyScript()); !errors.Is(err, ErrClosed) {
		t.Errorf("Eval() after exit = %v, want ErrClosed", err)
	}
	if _, err := s.Ask(context.Background(), resolver.Prompt{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Ask() after exit = %v, want ErrClosed", err)
	}
}
