// Package readiness holds the result of backend resolution and the
// one-shot broadcast that hands it to every interested consumer.
package readiness

import (
	"fmt"
	"net"
	"strconv"
)

// EndpointKind distinguishes remote from local servers.
type EndpointKind int

const (
	// KindNone is the zero value; no endpoint was chosen.
	KindNone EndpointKind = iota

	// KindRemote is a user-configured server URL.
	KindRemote

	// KindLocal is a sidecar listening on loopback.
	KindLocal
)

// String returns a human-readable name for the kind.
func (k EndpointKind) String() string {
	switch k {
	case KindRemote:
		return "remote"
	case KindLocal:
		return "local"
	default:
		return "none"
	}
}

// Endpoint is the backend server chosen for the session.
type Endpoint struct {
	Kind EndpointKind
	URL  string // set for KindRemote
	Port int    // set for KindLocal
}

// Remote returns a remote endpoint.
func Remote(url string) Endpoint {
	return Endpoint{Kind: KindRemote, URL: url}
}

// Local returns a loopback endpoint.
func Local(port int) Endpoint {
	return Endpoint{Kind: KindLocal, Port: port}
}

// BaseURL returns the URL clients should talk to.
func (e Endpoint) BaseURL() string {
	switch e.Kind {
	case KindRemote:
		return e.URL
	case KindLocal:
		return "http://" + net.JoinHostPort("127.0.0.1", strconv.Itoa(e.Port))
	default:
		return ""
	}
}

// String implements fmt.Stringer.
func (e Endpoint) String() string {
	switch e.Kind {
	case KindRemote:
		return fmt.Sprintf("remote(%s)", e.URL)
	case KindLocal:
		return fmt.Sprintf("local(%d)", e.Port)
	default:
		return "none"
	}
}
