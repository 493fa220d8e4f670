// Package realtime tracks which live connection currently belongs to each
// user and frames the events pushed over those connections.
package realtime

import (
	"sync"

	"github.com/s7654raj/Friends-Skill-Exchange/internal/metrics"
)

// Handle is a live push channel to one client.
type Handle interface {
	ID() string
	Send(payload []byte) error
	Close()
}

// Registry maps a user id to the handle that most recently announced it.
// A user has at most one handle; a handle may announce several users.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]Handle
}

func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]Handle)}
}

// Announce binds userID to h and returns the handle it replaced, if any.
// The replaced handle is left open.
func (r *Registry) Announce(userID string, h Handle) Handle {
	r.mu.Lock()
	previous := r.handles[userID]
	r.handles[userID] = h
	n := len(r.handles)
	r.mu.Unlock()

	metrics.OnlineUsers.Set(float64(n))
	if previous != nil && previous.ID() == h.ID() {
		return nil
	}
	return previous
}

func (r *Registry) Lookup(userID string) (Handle, bool) {
	r.mu.RLock()
	h, ok := r.handles[userID]
	r.mu.RUnlock()
	return h, ok
}

// Remove unbinds userID only while it is still bound to h, so a stale
// connection closing never evicts a newer one.
func (r *Registry) Remove(userID string, h Handle) bool {
	r.mu.Lock()
	current, ok := r.handles[userID]
	removed := ok && current.ID() == h.ID()
	if removed {
		delete(r.handles, userID)
	}
	n := len(r.handles)
	r.mu.Unlock()

	if removed {
		metrics.OnlineUsers.Set(float64(n))
	}
	return removed
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// Close drops every binding and closes each distinct handle once.
func (r *Registry) Close() {
	r.mu.Lock()
	handles := r.handles
	r.handles = make(map[string]Handle)
	r.mu.Unlock()

	closed := make(map[string]struct{}, len(handles))
	for _, h := range handles {
		if _, done := closed[h.ID()]; done {
			continue
		}
		closed[h.ID()] = struct{}{}
		h.Close()
	}
	metrics.OnlineUsers.Set(0)
}
