package bestserver

import (
	"time"
)

// Server identifies one candidate in a Manager's pool. The caller supplies the concrete type when
// constructing a Manager - either its own, if it wants to carry extra state (an address, connection,
// whatever), or the plain one returned by ServersFromNames.
type Server interface {
	Name() string
}

// Manager picks which of a fixed set of Servers to use next, and adjusts its pick in response to
// reported outcomes. overlaydns uses it, via internal/overlay, to choose which overlay nameserver a
// query goes to.
type Manager interface {
	// Algorithm names the selection strategy in use.
	Algorithm() string

	// Best returns the current best server along with its index into the original Servers slice.
	// Always returns a valid value - it never returns nil or an out-of-range index.
	Best() (Server, int)

	// Result reports the outcome of using server, possibly changing which server Best returns next.
	//
	// server must be a value previously returned by Best, not just any Server with a matching
	// name - callers must supply it explicitly rather than relying on Best still returning the
	// same value, since another goroutine's Result call may have changed it in the meantime.
	//
	// Returns false if server is not part of this Manager's pool.
	Result(server Server, success bool, now time.Time, latency time.Duration) bool

	// Servers returns every configured server, in the order the Manager was constructed with.
	Servers() []Server

	// Len returns the number of configured servers.
	Len() int
}
