package core

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// fallbackDisplayName is used when the user directory cannot resolve a
// group sender.
const fallbackDisplayName = "unknown"

// Options controls engine behavior.
type Options struct {
	// EchoGroupSender includes the sender's own session in a group
	// broadcast when it is a member of the group room.
	EchoGroupSender bool
	// StoreTimeout bounds the message store call during send_message.
	StoreTimeout time.Duration
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		EchoGroupSender: true,
		StoreTimeout:    5 * time.Second,
	}
}

// Engine orchestrates the delivery protocol: it validates incoming events,
// persists direct messages, resolves target rooms and fans events out to
// the right sessions. Every event-level failure is converted into a
// message_error event to the originating session; none of them terminate
// the connection.
type Engine struct {
	registry *Registry
	rooms    *Rooms
	messages MessageStore
	users    UserDirectory
	opts     Options
	log      *zerolog.Logger
}

// NewEngine wires the engine to its shared registries and collaborators.
func NewEngine(registry *Registry, rooms *Rooms, messages MessageStore, users UserDirectory, opts Options, logger *zerolog.Logger) *Engine {
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = DefaultOptions().StoreTimeout
	}
	return &Engine{
		registry: registry,
		rooms:    rooms,
		messages: messages,
		users:    users,
		opts:     opts,
		log:      logger,
	}
}

// Connect registers a new session and acknowledges it.
func (e *Engine) Connect() *Session {
	s := e.registry.Register()
	s.Deliver(&Event{Kind: EventConnectionResponse, Status: "connected"})
	return s
}

// Disconnect terminates the session, cascading eviction from every room it
// occupies. Safe to call more than once.
func (e *Engine) Disconnect(s *Session) {
	e.registry.Terminate(s)
}

// Join subscribes the session to its own inbox room and attaches the user
// identity. Best-effort: failures are logged, never surfaced to the client.
func (e *Engine) Join(s *Session, userID int64) {
	if userID == 0 {
		e.log.Warn().Str("session_id", s.ID).Msg("join without user_id ignored")
		return
	}

	if err := e.registry.AttachUser(s, userID); err != nil {
		e.log.Warn().Err(err).Str("session_id", s.ID).Int64("user_id", userID).Msg("attach user failed")
		return
	}

	e.rooms.Join(UserRoom(userID), s)
	e.log.Debug().Str("session_id", s.ID).Int64("user_id", userID).Msg("joined inbox room")
}

// JoinGroup subscribes the session to a group room and confirms via the
// user's inbox room rather than the transient connection. Malformed ids
// are ignored.
func (e *Engine) JoinGroup(s *Session, groupID, userID int64) {
	if groupID == 0 || userID == 0 {
		e.log.Warn().Str("session_id", s.ID).Int64("group_id", groupID).Int64("user_id", userID).Msg("join_group with malformed ids ignored")
		return
	}

	e.rooms.Join(GroupRoom(groupID), s)
	e.rooms.Broadcast(UserRoom(userID), &Event{Kind: EventJoinedGroup, GroupID: groupID}, nil)
	e.log.Debug().Str("session_id", s.ID).Int64("group_id", groupID).Msg("joined group room")
}

// LeaveGroup unsubscribes the session from a group room. Malformed ids and
// non-membership are ignored.
func (e *Engine) LeaveGroup(s *Session, groupID int64) {
	if groupID == 0 {
		return
	}
	e.rooms.Leave(GroupRoom(groupID), s)
	e.log.Debug().Str("session_id", s.ID).Int64("group_id", groupID).Msg("left group room")
}

// SendDirect persists a direct message and fans it out: new_message to the
// recipient's inbox room and message_sent back to the originating session.
// A storage failure prevents the broadcast so the client never sees an
// unpersisted message.
func (e *Engine) SendDirect(ctx context.Context, s *Session, senderID, recipientID int64, content string) {
	if err := validateDirect(senderID, recipientID, content); err != nil {
		e.fail(s, err)
		return
	}

	// The store call may block; no registry or room lock is held here so
	// unrelated join/leave/broadcast traffic is unaffected by storage
	// latency.
	storeCtx, cancel := context.WithTimeout(ctx, e.opts.StoreTimeout)
	defer cancel()

	msg, err := e.messages.SaveDirectMessage(storeCtx, senderID, recipientID, content)
	if err != nil {
		e.log.Error().Err(err).Int64("sender_id", senderID).Int64("recipient_id", recipientID).Msg("persist direct message failed")
		e.fail(s, storageError("failed to store message"))
		return
	}

	delivered := e.rooms.Broadcast(UserRoom(recipientID), &Event{Kind: EventNewMessage, Message: msg}, nil)

	// The sender always gets an echo, even if it is not a member of its
	// own inbox room at this moment. A session that disconnected while
	// the persist was in flight simply misses the confirmation.
	if !s.Deliver(&Event{Kind: EventMessageSent, Message: msg}) {
		e.log.Warn().Str("session_id", s.ID).Int64("message_id", msg.ID).Msg("dropped message_sent confirmation")
	}

	e.log.Debug().Int64("message_id", msg.ID).Int64("recipient_id", recipientID).Int("delivered", delivered).Msg("direct message fanned out")
}

// SendGroup broadcasts a transient message to every current member of the
// group room. Nothing is persisted. The sender's display name is resolved
// best-effort via the user directory.
func (e *Engine) SendGroup(ctx context.Context, s *Session, senderID, groupID int64, content string) {
	if err := validateGroup(senderID, groupID, content); err != nil {
		e.fail(s, err)
		return
	}

	name, err := e.users.DisplayName(ctx, senderID)
	if err != nil || name == "" {
		e.log.Warn().Err(err).Int64("sender_id", senderID).Msg("display name unresolved, using placeholder")
		name = fallbackDisplayName
	}

	ev := &Event{Kind: EventNewGroupMessage, Group: &GroupBroadcast{
		GroupID:    groupID,
		SenderID:   senderID,
		SenderName: name,
		Content:    content,
		SentAt:     time.Now().UTC(),
	}}

	var exclude *Session
	if !e.opts.EchoGroupSender {
		exclude = s
	}
	delivered := e.rooms.Broadcast(GroupRoom(groupID), ev, exclude)
	e.log.Debug().Int64("group_id", groupID).Int64("sender_id", senderID).Int("delivered", delivered).Msg("group message fanned out")
}

// fail reports an event-level error to the originating session only.
func (e *Engine) fail(s *Session, derr *Error) {
	if !s.Deliver(&Event{Kind: EventMessageError, Err: derr}) {
		e.log.Warn().Str("session_id", s.ID).Str("code", derr.Code).Msg("dropped message_error event")
	}
}

func validateDirect(senderID, recipientID int64, content string) *Error {
	switch {
	case senderID == 0:
		return validationError(ErrMissingSender.Error())
	case recipientID == 0:
		return validationError(ErrMissingRecipient.Error())
	case strings.TrimSpace(content) == "":
		return validationError(ErrEmptyContent.Error())
	}
	return nil
}

func validateGroup(senderID, groupID int64, content string) *Error {
	switch {
	case senderID == 0:
		return validationError(ErrMissingSender.Error())
	case groupID == 0:
		return validationError(ErrMissingGroup.Error())
	case strings.TrimSpace(content) == "":
		return validationError(ErrEmptyContent.Error())
	}
	return nil
}
