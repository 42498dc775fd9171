package presence

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ConnectedUser is the ephemeral per-user presence entry. It is never
// persisted; entries are replaced wholesale on every state change so readers
// holding a snapshot never observe a half-written entry.
type ConnectedUser struct {
	UserID       uuid.UUID
	ConnectionID string
	Username     string
	ConnectedAt  time.Time
	Online       bool
	LastSeenAt   time.Time
}

// OnlineUser is the wire shape used by presence snapshots and
// UserConnected events.
type OnlineUser struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Online   bool      `json:"online"`
}

// Registry tracks which users currently have a live connection. It keeps at
// most one connection per user: a second connect for the same user overwrites
// the stored connection id (last-connect-wins). Disconnect flips the entry
// offline but retains it; PruneOffline evicts stale entries later.
//
// All operations are safe for concurrent use from many connection
// goroutines. Updates go through compare-and-swap so concurrent connects and
// disconnects for the same user cannot corrupt an entry.
type Registry struct {
	entries sync.Map // uuid.UUID -> *ConnectedUser
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Connect upserts the user's presence entry and returns it. The first
// connect establishes ConnectedAt; reconnects keep it and only replace the
// connection id and online flag.
func (r *Registry) Connect(userID uuid.UUID, connectionID, username string) *ConnectedUser {
	now := time.Now()
	for {
		entry := &ConnectedUser{
			UserID:       userID,
			ConnectionID: connectionID,
			Username:     username,
			ConnectedAt:  now,
			Online:       true,
			LastSeenAt:   now,
		}

		cur, loaded := r.entries.Load(userID)
		if !loaded {
			if _, raced := r.entries.LoadOrStore(userID, entry); !raced {
				return entry
			}
			continue
		}

		prev := cur.(*ConnectedUser)
		entry.ConnectedAt = prev.ConnectedAt
		if username == "" {
			entry.Username = prev.Username
		}
		if r.entries.CompareAndSwap(userID, cur, entry) {
			return entry
		}
	}
}

// Disconnect marks the user's entry offline. Unknown users are a no-op. The
// entry is retained so "last seen" survives until the prune job runs.
func (r *Registry) Disconnect(userID uuid.UUID) {
	for {
		cur, ok := r.entries.Load(userID)
		if !ok {
			return
		}
		prev := cur.(*ConnectedUser)
		if !prev.Online {
			return
		}
		next := *prev
		next.Online = false
		next.LastSeenAt = time.Now()
		if r.entries.CompareAndSwap(userID, cur, &next) {
			return
		}
	}
}

// LookupConnection returns the user's live connection id. A user that is
// known but offline reports no connection.
func (r *Registry) LookupConnection(userID uuid.UUID) (string, bool) {
	cur, ok := r.entries.Load(userID)
	if !ok {
		return "", false
	}
	entry := cur.(*ConnectedUser)
	if !entry.Online {
		return "", false
	}
	return entry.ConnectionID, true
}

// Lookup returns the full presence entry regardless of online state.
func (r *Registry) Lookup(userID uuid.UUID) (*ConnectedUser, bool) {
	cur, ok := r.entries.Load(userID)
	if !ok {
		return nil, false
	}
	return cur.(*ConnectedUser), true
}

// ListOnline returns a snapshot of currently online users. Ordering is
// unspecified; a user connecting or disconnecting mid-snapshot may or may
// not be included.
func (r *Registry) ListOnline() []OnlineUser {
	var online []OnlineUser
	r.entries.Range(func(_, v any) bool {
		entry := v.(*ConnectedUser)
		if entry.Online {
			online = append(online, OnlineUser{
				UserID:   entry.UserID,
				Username: entry.Username,
				Online:   true,
			})
		}
		return true
	})
	return online
}

// PruneOffline evicts entries that have been offline for longer than
// olderThan and returns how many were removed. Entries that reconnected
// since the sweep started are left alone.
func (r *Registry) PruneOffline(olderThan time.Duration) int {
	cutoff := time.Now().Add(-olderThan)
	pruned := 0
	r.entries.Range(func(k, v any) bool {
		entry := v.(*ConnectedUser)
		if !entry.Online && entry.LastSeenAt.Before(cutoff) {
			if r.entries.CompareAndDelete(k, v) {
				pruned++
			}
		}
		return true
	})
	return pruned
}
