package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/messageme/messageme-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedUser(t *testing.T, s *SQLiteStore, username, email string) *store.User {
	t.Helper()

	user, err := s.CreateUser(context.Background(), username, email, "hash")
	if err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return user
}

func TestSaveDirectMessageAssignsIDAndTimestamp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, s, "alice", "alice@example.com")
	bob := seedUser(t, s, "bob", "bob@example.com")

	msg, err := s.SaveDirectMessage(ctx, alice.ID, bob.ID, "hi")
	if err != nil {
		t.Fatalf("save message: %v", err)
	}
	if msg.ID == 0 {
		t.Fatalf("expected generated id")
	}
	if msg.Timestamp.IsZero() {
		t.Fatalf("expected server-assigned timestamp")
	}
	if msg.IsRead {
		t.Fatalf("new message must not be read")
	}

	got, err := s.GetMessage(ctx, msg.ID)
	if err != nil {
		t.Fatalf("get message: %v", err)
	}
	if got.Content != "hi" || got.SenderID != alice.ID || got.RecipientID != bob.ID {
		t.Fatalf("unexpected stored message: %+v", got)
	}
}

func TestListConversationChronological(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, s, "alice", "alice@example.com")
	bob := seedUser(t, s, "bob", "bob@example.com")
	carol := seedUser(t, s, "carol", "carol@example.com")

	first, _ := s.SaveDirectMessage(ctx, alice.ID, bob.ID, "one")
	second, _ := s.SaveDirectMessage(ctx, bob.ID, alice.ID, "two")
	if _, err := s.SaveDirectMessage(ctx, alice.ID, carol.ID, "other thread"); err != nil {
		t.Fatalf("save: %v", err)
	}

	conv, err := s.ListConversation(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("list conversation: %v", err)
	}
	if len(conv) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(conv))
	}
	if conv[0].ID != first.ID || conv[1].ID != second.ID {
		t.Fatalf("expected chronological order, got %d then %d", conv[0].ID, conv[1].ID)
	}
}

func TestMarkConversationRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, s, "alice", "alice@example.com")
	bob := seedUser(t, s, "bob", "bob@example.com")

	if _, err := s.SaveDirectMessage(ctx, alice.ID, bob.ID, "hi"); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := s.MarkConversationRead(ctx, bob.ID, alice.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	conv, err := s.ListConversation(ctx, bob.ID, alice.ID)
	if err != nil {
		t.Fatalf("list conversation: %v", err)
	}
	if !conv[0].IsRead {
		t.Fatalf("expected message flagged read")
	}
}

func TestDeleteMessageSenderOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, s, "alice", "alice@example.com")
	bob := seedUser(t, s, "bob", "bob@example.com")

	msg, err := s.SaveDirectMessage(ctx, alice.ID, bob.ID, "hi")
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	// Recipient cannot delete, and the failure is distinguishable from a
	// missing message.
	if err := s.DeleteMessage(ctx, msg.ID, bob.ID); !errors.Is(err, store.ErrNotSender) {
		t.Fatalf("expected ErrNotSender for non-sender delete, got %v", err)
	}
	if _, err := s.GetMessage(ctx, msg.ID); err != nil {
		t.Fatalf("message should survive non-sender delete: %v", err)
	}

	if err := s.DeleteMessage(ctx, msg.ID, alice.ID); err != nil {
		t.Fatalf("sender delete: %v", err)
	}
	if _, err := s.GetMessage(ctx, msg.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected message gone, got %v", err)
	}

	if err := s.DeleteMessage(ctx, msg.ID, alice.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for deleted message, got %v", err)
	}
}

func TestGroupMembership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := seedUser(t, s, "alice", "alice@example.com")
	bob := seedUser(t, s, "bob", "bob@example.com")

	group, err := s.CreateGroup(ctx, "general", "chit chat")
	if err != nil {
		t.Fatalf("create group: %v", err)
	}

	if err := s.AddGroupMember(ctx, group.ID, alice.ID); err != nil {
		t.Fatalf("add member: %v", err)
	}
	// Idempotent.
	if err := s.AddGroupMember(ctx, group.ID, alice.ID); err != nil {
		t.Fatalf("re-add member: %v", err)
	}
	if err := s.AddGroupMember(ctx, group.ID, bob.ID); err != nil {
		t.Fatalf("add member: %v", err)
	}

	count, err := s.CountGroupMembers(ctx, group.ID)
	if err != nil {
		t.Fatalf("count members: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 members, got %d", count)
	}

	ok, err := s.IsGroupMember(ctx, group.ID, alice.ID)
	if err != nil || !ok {
		t.Fatalf("expected alice to be a member, got %v %v", ok, err)
	}

	if err := s.RemoveGroupMember(ctx, group.ID, alice.ID); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	members, err := s.ListGroupMembers(ctx, group.ID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 1 || members[0].Username != "bob" {
		t.Fatalf("unexpected members: %+v", members)
	}
}

func TestListUsersSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, u := range []string{"alice", "alex", "alan", "bob"} {
		seedUser(t, s, u, u+"@example.com")
	}

	tests := []struct {
		name     string
		query    string
		expected []string
	}{
		{name: "search 'al'", query: "al", expected: []string{"alan", "alex", "alice"}},
		{name: "search all", query: "", expected: []string{"alan", "alex", "alice", "bob"}},
		{name: "search non-existent", query: "z", expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := s.ListUsers(ctx, tt.query)
			if err != nil {
				t.Fatalf("ListUsers failed: %v", err)
			}
			if len(results) != len(tt.expected) {
				t.Fatalf("expected %d results, got %d", len(tt.expected), len(results))
			}
			for i, u := range results {
				if u.Username != tt.expected[i] {
					t.Errorf("expected %s at index %d, got %s", tt.expected[i], i, u.Username)
				}
			}
		})
	}
}

func TestDuplicateEmailRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedUser(t, s, "alice", "alice@example.com")
	if _, err := s.CreateUser(ctx, "alice2", "alice@example.com", "hash"); err == nil {
		t.Fatalf("expected unique constraint violation")
	}
}
