package realtime

import "sync"

// userPresence is the live-connection record for a single user. A record
// exists in the registry iff its connection set is non-empty.
type userPresence struct {
	workspaceID string
	conns       map[string]struct{}
}

// ConnectionRegistry maps a user to the set of transport connections they
// currently hold. All mutations are atomic per user: the first/last signals
// returned by Register and Unregister are computed inside the same critical
// section as the insert/remove, so two racing connects cannot both observe
// "first" and two racing disconnects cannot both observe "last".
type ConnectionRegistry struct {
	mu    sync.RWMutex
	users map[string]*userPresence
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		users: make(map[string]*userPresence),
	}
}

// Register adds connID to the user's connection set, creating the presence
// record if absent. Returns true if this was the user's first connection.
// Registering the same connID twice is idempotent.
func (r *ConnectionRegistry) Register(userID, workspaceID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	up, ok := r.users[userID]
	if !ok {
		up = &userPresence{
			workspaceID: workspaceID,
			conns:       make(map[string]struct{}),
		}
		r.users[userID] = up
	}
	up.conns[connID] = struct{}{}
	return !ok
}

// Unregister removes connID from the user's connection set and returns true
// if the set is now empty. The record is removed in the same step, so no
// reader can observe a presence record with an empty set. Unregistering a
// connection that is not present is a no-op.
func (r *ConnectionRegistry) Unregister(userID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	up, ok := r.users[userID]
	if !ok {
		return false
	}
	if _, ok := up.conns[connID]; !ok {
		return false
	}
	delete(up.conns, connID)
	if len(up.conns) == 0 {
		delete(r.users, userID)
		return true
	}
	return false
}

// IsOnline reports whether the user has at least one live connection.
func (r *ConnectionRegistry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[userID]
	return ok
}

// ConnectionCount returns the number of live connections for a user.
func (r *ConnectionRegistry) ConnectionCount(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if up, ok := r.users[userID]; ok {
		return len(up.conns)
	}
	return 0
}
