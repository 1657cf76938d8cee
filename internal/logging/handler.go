package logging

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// MaxLineLength is the maximum length of a single captured line before truncation.
const MaxLineLength = 4096

// OutputHandler receives the sidecar's output lines. Each line is mirrored
// to the shell's own console writers, appended to the shared LogRing and
// logged at a level derived from its content.
type OutputHandler struct {
	ring    *LogRing
	logger  *slog.Logger
	stdout  io.Writer
	stderr  io.Writer
	verbose bool
}

// NewOutputHandler creates a handler. Nil writers discard the mirror copy.
func NewOutputHandler(ring *LogRing, logger *slog.Logger, stdout, stderr io.Writer, verbose bool) *OutputHandler {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	return &OutputHandler{
		ring:    ring,
		logger:  logger,
		stdout:  stdout,
		stderr:  stderr,
		verbose: verbose,
	}
}

// Ring returns the ring the handler appends to.
func (h *OutputHandler) Ring() *LogRing {
	return h.ring
}

// HandleLine processes one line read from the given stream.
func (h *OutputHandler) HandleLine(stream Stream, line string) {
	if len(line) > MaxLineLength {
		cut := MaxLineLength
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		line = line[:cut] + "...(truncated)"
	}

	switch stream {
	case StreamStderr:
		fmt.Fprintln(h.stderr, line)
	default:
		fmt.Fprintln(h.stdout, line)
	}

	if h.ring != nil {
		h.ring.Append(stream, line)
	}

	h.logLine(stream, line)
}

// logLine logs the line at appropriate level based on content.
func (h *OutputHandler) logLine(stream Stream, line string) {
	if h.logger == nil {
		return
	}

	level := classifyLine(line)
	if !h.verbose && level == slog.LevelDebug {
		return
	}

	h.logger.Log(context.Background(), level, "sidecar_output",
		"stream", stream.String(),
		"line", line,
	)
}

// classifyLine determines the log level for a line based on content.
func classifyLine(line string) slog.Level {
	lower := strings.ToLower(line)

	if strings.Contains(lower, "error") ||
		strings.Contains(lower, "panic") ||
		strings.Contains(lower, "address already in use") ||
		strings.Contains(lower, "eaddrinuse") ||
		strings.Contains(lower, "command not found") {
		return slog.LevelWarn
	}

	if strings.Contains(lower, "warn") {
		return slog.LevelWarn
	}

	return slog.LevelDebug
}

// ReadLines reads r line by line and calls fn for each line with the
// trailing newline removed. It returns when r reaches EOF or fails.
// At most MaxLineLength+1 bytes of a line are kept, so HandleLine still
// marks it truncated; the rest is discarded up to the next newline.
func ReadLines(r io.Reader, fn func(line string)) error {
	br := bufio.NewReaderSize(r, MaxLineLength)
	buf := make([]byte, 0, MaxLineLength+1)
	for {
		chunk, err := br.ReadSlice('\n')
		if room := cap(buf) - len(buf); room > 0 {
			buf = append(buf, chunk[:min(len(chunk), room)]...)
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if len(buf) > 0 {
			fn(strings.TrimRight(string(buf), "\r\n"))
			buf = buf[:0]
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}
