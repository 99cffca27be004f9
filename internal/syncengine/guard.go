package syncengine

import (
	"sync"
	"time"
)

// EchoGuard distinguishes document changes that originated from the
// remote store (which must not be written back) from genuine user edits.
//
// This is a time-based heuristic, not a causality token: Suppress is
// called immediately before a remote snapshot is applied to the local
// store, and any store change observed while the window is active is
// treated as remote-origin. The assumption — documented, not silently
// strengthened — is that no genuine user edit lands within the window.
type EchoGuard struct {
	mu    sync.Mutex
	until time.Time
	now   func() time.Time
}

// NewEchoGuard creates a guard with no active suppression window.
func NewEchoGuard() *EchoGuard {
	return &EchoGuard{now: time.Now}
}

// Suppress opens (or extends) the suppression window for the given
// duration from now.
func (g *EchoGuard) Suppress(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	deadline := g.now().Add(d)
	if deadline.After(g.until) {
		g.until = deadline
	}
}

// Active reports whether the suppression window is currently open.
func (g *EchoGuard) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.now().Before(g.until)
}
