package logging

import (
	"fmt"
	"strings"
	"sync"
)

// MaxLogEntries is the number of sidecar output lines kept for diagnostics.
const MaxLogEntries = 200

// Stream identifies which output stream of the sidecar a line came from.
type Stream int

const (
	// StreamStdout is the child's standard output.
	StreamStdout Stream = iota

	// StreamStderr is the child's standard error.
	StreamStderr
)

// String returns the tag used when formatting captured lines.
func (s Stream) String() string {
	switch s {
	case StreamStdout:
		return "STDOUT"
	case StreamStderr:
		return "STDERR"
	default:
		return "UNKNOWN"
	}
}

// Entry is a single captured output line.
type Entry struct {
	Stream Stream
	Line   string
}

// Format renders the entry the way it is stored for diagnostics,
// e.g. "[STDERR] address already in use\n".
func (e Entry) Format() string {
	return fmt.Sprintf("[%s] %s\n", e.Stream, e.Line)
}

// LogRing is a fixed-capacity FIFO of captured output lines.
// When full, the oldest entry is evicted before each append.
// It is safe for concurrent use.
type LogRing struct {
	mu      sync.Mutex
	entries []Entry
	start   int // index of the oldest entry
	count   int
}

// NewLogRing creates a ring holding at most capacity entries.
// A non-positive capacity means MaxLogEntries.
func NewLogRing(capacity int) *LogRing {
	if capacity <= 0 {
		capacity = MaxLogEntries
	}
	return &LogRing{
		entries: make([]Entry, capacity),
	}
}

// Append stores a line at the tail, evicting the oldest line if full.
func (r *LogRing) Append(stream Stream, line string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	capacity := len(r.entries)
	if r.count == capacity {
		r.entries[r.start] = Entry{}
		r.start = (r.start + 1) % capacity
		r.count--
	}

	idx := (r.start + r.count) % capacity
	r.entries[idx] = Entry{Stream: stream, Line: line}
	r.count++
}

// Entries returns a copy of the buffered entries, oldest first.
func (r *LogRing) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.entries[(r.start+i)%len(r.entries)]
	}
	return out
}

// Lines returns the formatted entries, oldest first.
func (r *LogRing) Lines() []string {
	entries := r.Entries()
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.Format()
	}
	return lines
}

// String concatenates every formatted entry. This is the text embedded
// into start-timeout failures and served by the /logs endpoint.
func (r *LogRing) String() string {
	return strings.Join(r.Lines(), "")
}

// Len returns the number of buffered entries.
func (r *LogRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Cap returns the ring capacity.
func (r *LogRing) Cap() int {
	return len(r.entries)
}
