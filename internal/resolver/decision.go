package resolver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Decision is the user's answer when the configured remote server is
// unreachable.
type Decision int

const (
	DecisionRetry Decision = iota
	DecisionFallbackToLocal
	DecisionCancel
)

func (d Decision) String() string {
	switch d {
	case DecisionRetry:
		return "retry"
	case DecisionFallbackToLocal:
		return "local"
	case DecisionCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// ParseDecision accepts the long names and single-letter shortcuts.
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "retry", "r":
		return DecisionRetry, nil
	case "local", "l", "fallback", "start local":
		return DecisionFallbackToLocal, nil
	case "cancel", "c":
		return DecisionCancel, nil
	}
	return DecisionCancel, fmt.Errorf("unknown decision %q", s)
}

// Prompt is the dialog shown when the remote probe fails.
type Prompt struct {
	Title   string
	Message string
	URL     string
}

// NewRemoteFailurePrompt builds the dialog for an unreachable server.
func NewRemoteFailurePrompt(url string) Prompt {
	return Prompt{
		Title: "Connection Failed",
		Message: fmt.Sprintf("Could not connect to configured server:\n%s\n\n"+
			"Would you like to retry or start a local server instead?", url),
		URL: url,
	}
}

// Prompter asks the user what to do about an unreachable remote server.
// Ask blocks until the user answers or ctx ends.
type Prompter interface {
	Ask(ctx context.Context, p Prompt) (Decision, error)
}

// PromptFunc adapts a function to Prompter.
type PromptFunc func(ctx context.Context, p Prompt) (Decision, error)

func (f PromptFunc) Ask(ctx context.Context, p Prompt) (Decision, error) {
	return f(ctx, p)
}

// FixedPrompter always returns the same decision.
type FixedPrompter struct {
	Decision Decision
}

func (f FixedPrompter) Ask(ctx context.Context, _ Prompt) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return DecisionCancel, err
	}
	return f.Decision, nil
}

// RetryPrompter answers Retry up to Max times, sleeping with exponential
// backoff before each answer, then answers Then.
type RetryPrompter struct {
	Max     int
	Then    Decision
	backoff *Backoff

	mu sync.Mutex
}

// NewRetryPrompter creates a RetryPrompter.
func NewRetryPrompter(max int, then Decision, seed int64, cfg BackoffConfig) *RetryPrompter {
	return &RetryPrompter{
		Max:     max,
		Then:    then,
		backoff: NewBackoff(seed, cfg),
	}
}

func (r *RetryPrompter) Ask(ctx context.Context, _ Prompt) (Decision, error) {
	r.mu.Lock()
	if r.backoff.Attempts() >= r.Max {
		r.mu.Unlock()
		return r.Then, nil
	}
	delay := r.backoff.Next()
	r.mu.Unlock()

	if !sleep(ctx, delay) {
		return DecisionCancel, ctx.Err()
	}
	return DecisionRetry, nil
}

// Attempts returns how many retries have been answered.
func (r *RetryPrompter) Attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backoff.Attempts()
}

// ConsolePrompter asks on a line-oriented terminal. A single reader
// goroutine owns the input for the prompter's lifetime, so an Ask abandoned
// through its context leaves any typed answer for the next Ask.
type ConsolePrompter struct {
	out   io.Writer
	in    *bufio.Reader
	once  sync.Once
	lines chan consoleLine

	mu      sync.Mutex
	readErr error
}

type consoleLine struct {
	text string
	err  error
}

// NewConsolePrompter creates a ConsolePrompter reading answers from in.
func NewConsolePrompter(in io.Reader, out io.Writer) *ConsolePrompter {
	return &ConsolePrompter{
		in:    bufio.NewReader(in),
		out:   out,
		lines: make(chan consoleLine),
	}
}

// readLoop feeds lines until the input fails, then closes lines.
func (c *ConsolePrompter) readLoop() {
	defer close(c.lines)
	for {
		text, err := c.in.ReadString('\n')
		c.lines <- consoleLine{text: text, err: err}
		if err != nil {
			return
		}
	}
}

func (c *ConsolePrompter) Ask(ctx context.Context, p Prompt) (Decision, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.once.Do(func() { go c.readLoop() })

	fmt.Fprintf(c.out, "\n%s\n\n%s\n\n", p.Title, p.Message)

	for {
		fmt.Fprint(c.out, "[r]etry, start [l]ocal, [c]ancel: ")

		var l consoleLine
		var ok bool
		select {
		case <-ctx.Done():
			return DecisionCancel, ctx.Err()
		case l, ok = <-c.lines:
		}
		if !ok {
			return DecisionCancel, c.readErr
		}

		if strings.TrimSpace(l.text) != "" {
			d, err := ParseDecision(l.text)
			if err == nil {
				if l.err != nil && !errors.Is(l.err, io.EOF) {
					c.readErr = l.err
				}
				return d, nil
			}
			fmt.Fprintf(c.out, "%v\n", err)
		}
		if l.err != nil {
			if errors.Is(l.err, io.EOF) {
				return DecisionCancel, nil
			}
			c.readErr = l.err
			return DecisionCancel, l.err
		}
	}
}
