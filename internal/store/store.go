package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("not found")

// ErrNotSender is returned when a delete targets a message the caller
// did not send.
var ErrNotSender = errors.New("not the sender")

// User represents a registered user.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Group represents a chat group.
type Group struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
}

// GroupMember represents group membership.
type GroupMember struct {
	GroupID  int64
	UserID   int64
	JoinedAt time.Time
}

// Message represents a persisted direct message. Immutable once stored
// except for the read flag.
type Message struct {
	ID          int64
	SenderID    int64
	RecipientID int64
	Content     string
	Timestamp   time.Time
	IsRead      bool
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, email, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByEmail retrieves a user by email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// ListUsers lists users, optionally filtered by a username substring.
	ListUsers(ctx context.Context, search string) ([]*User, error)
}

// GroupStore handles group persistence.
type GroupStore interface {
	// CreateGroup creates a new group.
	CreateGroup(ctx context.Context, name, description string) (*Group, error)

	// GetGroupByID retrieves a group by ID.
	GetGroupByID(ctx context.Context, id int64) (*Group, error)

	// ListGroups lists groups, optionally filtered by a name substring.
	ListGroups(ctx context.Context, search string) ([]*Group, error)

	// AddGroupMember adds a user to a group. Idempotent.
	AddGroupMember(ctx context.Context, groupID, userID int64) error

	// RemoveGroupMember removes a user from a group.
	RemoveGroupMember(ctx context.Context, groupID, userID int64) error

	// IsGroupMember checks whether a user belongs to a group.
	IsGroupMember(ctx context.Context, groupID, userID int64) (bool, error)

	// ListGroupMembers lists the users in a group.
	ListGroupMembers(ctx context.Context, groupID int64) ([]*User, error)

	// CountGroupMembers returns the number of users in a group.
	CountGroupMembers(ctx context.Context, groupID int64) (int, error)
}

// MessageStore handles direct message persistence.
type MessageStore interface {
	// SaveDirectMessage stores a direct message and returns it with the
	// generated id and server-assigned UTC timestamp.
	SaveDirectMessage(ctx context.Context, senderID, recipientID int64, content string) (*Message, error)

	// GetMessage retrieves a message by ID.
	GetMessage(ctx context.Context, id int64) (*Message, error)

	// ListMessagesForUser lists all messages sent or received by a user,
	// newest first. A positive days value restricts the window.
	ListMessagesForUser(ctx context.Context, userID int64, days int) ([]*Message, error)

	// ListConversation lists the messages between two users in
	// chronological order.
	ListConversation(ctx context.Context, userID, otherUserID int64) ([]*Message, error)

	// MarkConversationRead flags all messages from otherUserID to userID
	// as read.
	MarkConversationRead(ctx context.Context, userID, otherUserID int64) error

	// DeleteMessage deletes a message. Only the sender may delete.
	DeleteMessage(ctx context.Context, id, senderID int64) error
}

// Store combines all storage interfaces.
type Store interface {
	UserStore
	GroupStore
	MessageStore

	// Close closes the underlying storage.
	Close() error
}
