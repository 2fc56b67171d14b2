package core

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// eventBuffer is the per-session outbound channel capacity. Delivery is
// fire-and-forget: a full buffer drops the event rather than blocking the
// broadcaster.
const eventBuffer = 32

// Session is the server-side representation of one live connection.
// The user id is zero until the first join event attaches one.
type Session struct {
	ID     string
	Events chan *Event

	mu     sync.Mutex
	userID int64
	rooms  map[string]struct{}
}

func newSession() *Session {
	return &Session{
		ID:     uuid.NewString(),
		Events: make(chan *Event, eventBuffer),
		rooms:  make(map[string]struct{}),
	}
}

// UserID returns the attached user id, or zero if none is attached yet.
func (s *Session) UserID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Deliver enqueues an event for the session's writer. Returns false if the
// event was dropped because the session is a slow consumer.
func (s *Session) Deliver(ev *Event) bool {
	select {
	case s.Events <- ev:
		return true
	default:
		return false
	}
}

func (s *Session) trackRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[roomID] = struct{}{}
}

func (s *Session) untrackRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomID)
}

// roomSnapshot returns the rooms the session currently occupies.
func (s *Session) roomSnapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		out = append(out, id)
	}
	return out
}

// Registry tracks live sessions and owns the terminate cascade into the
// room manager. All components receive it by reference at construction.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	rooms *Rooms
	log   *zerolog.Logger
}

// NewRegistry creates an empty session registry bound to a room manager.
func NewRegistry(rooms *Rooms, logger *zerolog.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		rooms:    rooms,
		log:      logger,
	}
}

// Register creates a session with no user attached and no room memberships.
func (r *Registry) Register() *Session {
	s := newSession()

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	r.log.Debug().Str("session_id", s.ID).Msg("session registered")
	return s
}

// AttachUser binds a user id to the session. Attaching the same id again is
// a no-op; attaching a different id fails with a conflict.
func (r *Registry) AttachUser(s *Session, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.userID {
	case 0:
		s.userID = userID
		return nil
	case userID:
		return nil
	default:
		return ErrUserConflict
	}
}

// Terminate removes the session and evicts it from every room it belongs
// to. Calling it for an unknown or already-terminated session is a no-op,
// so duplicate disconnect notifications from the transport are harmless.
func (r *Registry) Terminate(s *Session) {
	r.mu.Lock()
	_, known := r.sessions[s.ID]
	delete(r.sessions, s.ID)
	r.mu.Unlock()

	if !known {
		return
	}

	r.rooms.EvictSession(s)
	r.log.Debug().Str("session_id", s.ID).Msg("session terminated")
}

// Lookup returns the session with the given id, or nil.
func (r *Registry) Lookup(id string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
