// Package presence tracks which users are currently reachable over the
// live transport and which users subscribed to each group's live channel.
//
// The Registry is a single shared instance for the process lifetime.
// All sessions mutate it concurrently; each logical map has its own lock,
// there is no global lock across the registry.
package presence

import "sync"

type Set map[string]struct{}

// Registry maps users to their live connection and groups to their
// channel subscribers. One live connection per user: a new connection
// from the same user silently supersedes the prior mapping.
type Registry struct {
	connMu sync.RWMutex
	byUser map[string]string // userID -> connectionID
	byConn map[string]string // connectionID -> userID

	chanMu   sync.RWMutex
	channels map[string]Set // groupID -> subscribed userIDs
}

func NewRegistry() *Registry {
	return &Registry{
		byUser:   make(map[string]string),
		byConn:   make(map[string]string),
		channels: make(map[string]Set),
	}
}

// Connect registers or overwrites the user's live connection. The online
// set is the key set of active connections, so the two stay consistent
// by construction.
func (r *Registry) Connect(userID, connectionID string) {
	r.connMu.Lock()
	defer r.connMu.Unlock()

	if prev, ok := r.byUser[userID]; ok {
		delete(r.byConn, prev)
	}
	r.byUser[userID] = connectionID
	r.byConn[connectionID] = userID
}

// Disconnect removes the mapping owned by connectionID and returns the
// owning user. An unknown connection is a no-op and returns "".
func (r *Registry) Disconnect(connectionID string) string {
	r.connMu.Lock()
	defer r.connMu.Unlock()

	userID, ok := r.byConn[connectionID]
	if !ok {
		return ""
	}
	delete(r.byConn, connectionID)
	// Only drop the forward mapping if it still points at this
	// connection; a newer connection may have superseded it.
	if r.byUser[userID] == connectionID {
		delete(r.byUser, userID)
	}
	return userID
}

func (r *Registry) IsOnline(userID string) bool {
	r.connMu.RLock()
	defer r.connMu.RUnlock()
	_, ok := r.byUser[userID]
	return ok
}

// ConnectionFor returns the user's live connection id, or "" when offline.
func (r *Registry) ConnectionFor(userID string) string {
	r.connMu.RLock()
	defer r.connMu.RUnlock()
	return r.byUser[userID]
}

func (r *Registry) OnlineUsers() []string {
	r.connMu.RLock()
	defer r.connMu.RUnlock()
	users := make([]string, 0, len(r.byUser))
	for userID := range r.byUser {
		users = append(users, userID)
	}
	return users
}

// JoinChannel subscribes userID to the group's live fan-out. Idempotent.
// Persisted membership is enforced by the caller before joining.
func (r *Registry) JoinChannel(groupID, userID string) {
	if groupID == "" || userID == "" {
		return
	}
	r.chanMu.Lock()
	defer r.chanMu.Unlock()

	if _, ok := r.channels[groupID]; !ok {
		r.channels[groupID] = make(Set)
	}
	r.channels[groupID][userID] = struct{}{}
}

// LeaveChannel removes userID from the group's subscriber set. Removing
// the last subscriber drops the set entirely so the map does not grow
// with dead groups.
func (r *Registry) LeaveChannel(groupID, userID string) {
	r.chanMu.Lock()
	defer r.chanMu.Unlock()

	members, ok := r.channels[groupID]
	if !ok {
		return
	}
	delete(members, userID)
	if len(members) == 0 {
		delete(r.channels, groupID)
	}
}

func (r *Registry) Subscribers(groupID string) []string {
	r.chanMu.RLock()
	defer r.chanMu.RUnlock()

	members, ok := r.channels[groupID]
	if !ok {
		return nil
	}
	subscribers := make([]string, 0, len(members))
	for userID := range members {
		subscribers = append(subscribers, userID)
	}
	return subscribers
}
