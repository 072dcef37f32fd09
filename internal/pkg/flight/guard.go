// Package flight holds small concurrency guards shared by services.
package flight

import "sync"

// Guard runs at most one function per key at a time. A caller that finds the key
// busy is turned away instead of queued.
type Guard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewGuard creates an empty Guard
func NewGuard() *Guard {
	return &Guard{active: make(map[string]struct{})}
}

// TryRun executes fn unless another call for key is still running. It reports
// whether fn was executed.
func (g *Guard) TryRun(key string, fn func()) bool {
	if !g.acquire(key) {
		return false
	}
	defer g.release(key)
	fn()
	return true
}

// Busy reports whether a call for key is in progress
func (g *Guard) Busy(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.active[key]
	return ok
}

func (g *Guard) acquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.active[key]; ok {
		return false
	}
	g.active[key] = struct{}{}
	return true
}

func (g *Guard) release(key string) {
	g.mu.Lock()
	delete(g.active, key)
	g.mu.Unlock()
}
