// Package port selects the TCP port the local sidecar will listen on.
package port

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// loopback is where the ephemeral listener is bound.
const loopback = "127.0.0.1"

// Select returns override verbatim when it is positive. Otherwise it binds
// an ephemeral listener on loopback, reads back the OS-assigned port and
// closes the listener before returning.
func Select(override int) (int, error) {
	if override > 0 {
		return override, nil
	}
	return Ephemeral()
}

// Ephemeral asks the OS for a free loopback port and releases it.
func Ephemeral() (int, error) {
	ln, err := net.Listen("tcp", net.JoinHostPort(loopback, "0"))
	if err != nil {
		return 0, fmt.Errorf("failed to bind to find free port: %w", err)
	}
	addr, ok := ln.Addr().(*net.TCPAddr)
	if !ok {
		ln.Close()
		return 0, fmt.Errorf("unexpected listener address type %T", ln.Addr())
	}
	p := addr.Port
	if err := ln.Close(); err != nil {
		return 0, fmt.Errorf("failed to release port %d: %w", p, err)
	}
	return p, nil
}

// ParseOverride interprets an override value from the environment or the
// build. Empty or unparseable values yield 0 (no override).
func ParseOverride(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0
	}
	return int(n)
}

// FirstOverride returns the first non-zero override among candidates,
// which are checked in priority order.
func FirstOverride(candidates ...string) int {
	for _, c := range candidates {
		if p := ParseOverride(c); p > 0 {
			return p
		}
	}
	return 0
}
