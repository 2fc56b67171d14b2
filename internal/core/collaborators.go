package core

import (
	"context"

	"github.com/messageme/messageme-server/internal/store"
)

// MessageStore persists direct messages. The store is the authority on
// message durability and recipient existence; the engine only keeps a
// transient copy of the returned record for fan-out.
type MessageStore interface {
	// SaveDirectMessage durably stores a direct message and returns it
	// with a generated id and server-assigned UTC timestamp.
	SaveDirectMessage(ctx context.Context, senderID, recipientID int64, content string) (*store.Message, error)
}

// UserDirectory resolves display names for group broadcasts.
type UserDirectory interface {
	// DisplayName returns the username for the given user id.
	DisplayName(ctx context.Context, userID int64) (string, error)
}
