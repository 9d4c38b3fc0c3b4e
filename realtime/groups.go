package realtime

import "sync"

// GroupMembership tracks which connections are subscribed to which broadcast
// groups with both forward and reverse indexes.
// Forward: group → set of connIDs (for fan-out lookup)
// Reverse: connID → set of groups (for O(1) teardown on disconnect)
type GroupMembership struct {
	mu     sync.RWMutex
	groups map[string]map[string]struct{} // forward: group → conns
	conns  map[string]map[string]struct{} // reverse: conn → groups
}

func NewGroupMembership() *GroupMembership {
	return &GroupMembership{
		groups: make(map[string]map[string]struct{}),
		conns:  make(map[string]map[string]struct{}),
	}
}

// Join adds the connection to the group. Idempotent.
func (g *GroupMembership) Join(connID, groupName string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.groups[groupName] == nil {
		g.groups[groupName] = make(map[string]struct{})
	}
	g.groups[groupName][connID] = struct{}{}
	if g.conns[connID] == nil {
		g.conns[connID] = make(map[string]struct{})
	}
	g.conns[connID][groupName] = struct{}{}
}

// Leave removes the connection from the group. Idempotent.
func (g *GroupMembership) Leave(connID, groupName string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.leaveLocked(connID, groupName)
}

// LeaveAll removes the connection from every group it belongs to. Invoked on
// connection teardown; safe to call for a connection with no memberships.
func (g *GroupMembership) LeaveAll(connID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for groupName := range g.conns[connID] {
		if members, ok := g.groups[groupName]; ok {
			delete(members, connID)
			if len(members) == 0 {
				delete(g.groups, groupName)
			}
		}
	}
	delete(g.conns, connID)
}

// MembersOf returns a snapshot of the connIDs subscribed to the group.
// Used by the broadcaster for delivery; not exposed through any API surface.
func (g *GroupMembership) MembersOf(groupName string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	members := g.groups[groupName]
	if len(members) == 0 {
		return nil
	}
	result := make([]string, 0, len(members))
	for connID := range members {
		result = append(result, connID)
	}
	return result
}

func (g *GroupMembership) leaveLocked(connID, groupName string) {
	if members, ok := g.groups[groupName]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(g.groups, groupName)
		}
	}
	if groups, ok := g.conns[connID]; ok {
		delete(groups, groupName)
		if len(groups) == 0 {
			delete(g.conns, connID)
		}
	}
}
