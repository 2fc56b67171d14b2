package core

import (
	"time"

	"github.com/messageme/messageme-server/internal/store"
)

// EventKind is a notification the core emits to sessions.
type EventKind int

const (
	// EventConnectionResponse acknowledges a freshly registered session.
	EventConnectionResponse EventKind = iota
	// EventNewMessage delivers a persisted direct message to the recipient's inbox room.
	EventNewMessage
	// EventMessageSent confirms a direct message back to its sender.
	EventMessageSent
	// EventJoinedGroup confirms a group join via the user's inbox room.
	EventJoinedGroup
	// EventNewGroupMessage delivers a transient group broadcast.
	EventNewGroupMessage
	// EventMessageError reports an event-level failure to the originating session.
	EventMessageError
)

// Event is sent to sessions to describe what happened in the system.
type Event struct {
	Kind    EventKind
	Status  string          // for EventConnectionResponse
	Message *store.Message  // for EventNewMessage / EventMessageSent
	GroupID int64           // for EventJoinedGroup
	Group   *GroupBroadcast // for EventNewGroupMessage
	Err     *Error          // for EventMessageError
}

// GroupBroadcast is a transient group message. It exists only for the
// duration of one fan-out and is never persisted.
type GroupBroadcast struct {
	GroupID    int64
	SenderID   int64
	SenderName string
	Content    string
	SentAt     time.Time
}
