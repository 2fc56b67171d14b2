package core

import (
	"strconv"
	"sync"

	"github.com/rs/zerolog"
)

// UserRoom names the per-user inbox room used for direct-message delivery
// and join confirmations.
func UserRoom(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

// GroupRoom names the broadcast room for a group.
func GroupRoom(groupID int64) string {
	return "group:" + strconv.FormatInt(groupID, 10)
}

// Rooms maintains room membership. Rooms are created implicitly on first
// join and evicted as soon as the last member leaves, so the table never
// grows beyond the set of occupied rooms.
type Rooms struct {
	mu    sync.RWMutex
	rooms map[string]map[*Session]struct{}

	log *zerolog.Logger
}

// NewRooms creates an empty room manager.
func NewRooms(logger *zerolog.Logger) *Rooms {
	return &Rooms{
		rooms: make(map[string]map[*Session]struct{}),
		log:   logger,
	}
}

// Join adds the session to the room, creating the room if absent.
// Joining twice has no additional effect.
func (r *Rooms) Join(roomID string, s *Session) {
	r.mu.Lock()
	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[*Session]struct{})
		r.rooms[roomID] = members
	}
	members[s] = struct{}{}
	r.mu.Unlock()

	s.trackRoom(roomID)
}

// Leave removes the session from the room if present. Unknown rooms and
// non-members are tolerated silently so duplicate leave requests are safe.
func (r *Rooms) Leave(roomID string, s *Session) {
	r.mu.Lock()
	if members, ok := r.rooms[roomID]; ok {
		delete(members, s)
		if len(members) == 0 {
			delete(r.rooms, roomID)
		}
	}
	r.mu.Unlock()

	s.untrackRoom(roomID)
}

// Broadcast delivers the event to every current member of the room except
// exclude. The member set is snapshotted under the lock and delivery
// happens outside it, so concurrent joins and leaves never block or crash
// a fan-out; they simply may or may not see this broadcast. Returns the
// number of sessions the event was handed to.
func (r *Rooms) Broadcast(roomID string, ev *Event, exclude *Session) int {
	r.mu.RLock()
	members := r.rooms[roomID]
	snapshot := make([]*Session, 0, len(members))
	for s := range members {
		if s != exclude {
			snapshot = append(snapshot, s)
		}
	}
	r.mu.RUnlock()

	delivered := 0
	for _, s := range snapshot {
		if s.Deliver(ev) {
			delivered++
		} else {
			// Slow or dead consumer; its disconnect will evict it.
			r.log.Warn().Str("session_id", s.ID).Str("room", roomID).Msg("dropped event for slow session")
		}
	}
	return delivered
}

// MembersOf returns a snapshot of the session ids in the room.
func (r *Rooms) MembersOf(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[roomID]
	out := make([]string, 0, len(members))
	for s := range members {
		out = append(out, s.ID)
	}
	return out
}

// EvictSession removes the session from every room it occupies. Used by
// the registry's terminate cascade to restore the membership invariant
// before the session record is discarded.
func (r *Rooms) EvictSession(s *Session) {
	for _, roomID := range s.roomSnapshot() {
		r.Leave(roomID, s)
	}
}

// Len returns the number of currently occupied rooms.
func (r *Rooms) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
