package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/messageme/messageme-server/internal/store"
)

// schema is applied on startup. CREATE IF NOT EXISTS keeps restarts cheap.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS groups (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS user_groups (
	user_id   INTEGER NOT NULL,
	group_id  INTEGER NOT NULL,
	joined_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (user_id, group_id),
	FOREIGN KEY (user_id) REFERENCES users(id),
	FOREIGN KEY (group_id) REFERENCES groups(id)
);

CREATE TABLE IF NOT EXISTS messages (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	sender_id    INTEGER NOT NULL,
	recipient_id INTEGER NOT NULL,
	content      TEXT NOT NULL,
	timestamp    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	is_read      BOOLEAN NOT NULL DEFAULT 0,
	FOREIGN KEY (sender_id) REFERENCES users(id),
	FOREIGN KEY (recipient_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_messages_recipient ON messages(recipient_id, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_id, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_user_groups_group ON user_groups(group_id);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply a custom schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, email, passwordHash string) (*store.User, error) {
	query := `
		INSERT INTO users (username, email, password_hash)
		VALUES (?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, username, email, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE id = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE email = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE username = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, username))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*store.User, error) {
	var user store.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

// ListUsers lists users, optionally filtered by a username substring.
func (s *SQLiteStore) ListUsers(ctx context.Context, search string) ([]*store.User, error) {
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE username LIKE ?
		ORDER BY username ASC
	`
	rows, err := s.db.QueryContext(ctx, query, "%"+search+"%")
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := make([]*store.User, 0)
	for rows.Next() {
		var user store.User
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, &user)
	}
	return users, rows.Err()
}

// ==== GroupStore implementation ====

// CreateGroup creates a new group.
func (s *SQLiteStore) CreateGroup(ctx context.Context, name, description string) (*store.Group, error) {
	query := `
		INSERT INTO groups (name, description)
		VALUES (?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, name, description)
	if err != nil {
		return nil, fmt.Errorf("insert group: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetGroupByID(ctx, id)
}

// GetGroupByID retrieves a group by ID.
func (s *SQLiteStore) GetGroupByID(ctx context.Context, id int64) (*store.Group, error) {
	query := `
		SELECT id, name, description, created_at
		FROM groups
		WHERE id = ?
	`
	var group store.Group
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&group.ID,
		&group.Name,
		&group.Description,
		&group.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query group: %w", err)
	}
	return &group, nil
}

// ListGroups lists groups, optionally filtered by a name substring.
func (s *SQLiteStore) ListGroups(ctx context.Context, search string) ([]*store.Group, error) {
	query := `
		SELECT id, name, description, created_at
		FROM groups
		WHERE name LIKE ?
		ORDER BY name ASC
	`
	rows, err := s.db.QueryContext(ctx, query, "%"+search+"%")
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()

	groups := make([]*store.Group, 0)
	for rows.Next() {
		var group store.Group
		if err := rows.Scan(&group.ID, &group.Name, &group.Description, &group.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, &group)
	}
	return groups, rows.Err()
}

// AddGroupMember adds a user to a group. Idempotent.
func (s *SQLiteStore) AddGroupMember(ctx context.Context, groupID, userID int64) error {
	query := `
		INSERT OR IGNORE INTO user_groups (user_id, group_id)
		VALUES (?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, userID, groupID); err != nil {
		return fmt.Errorf("insert group member: %w", err)
	}
	return nil
}

// RemoveGroupMember removes a user from a group.
func (s *SQLiteStore) RemoveGroupMember(ctx context.Context, groupID, userID int64) error {
	query := `
		DELETE FROM user_groups
		WHERE user_id = ? AND group_id = ?
	`
	if _, err := s.db.ExecContext(ctx, query, userID, groupID); err != nil {
		return fmt.Errorf("delete group member: %w", err)
	}
	return nil
}

// IsGroupMember checks whether a user belongs to a group.
func (s *SQLiteStore) IsGroupMember(ctx context.Context, groupID, userID int64) (bool, error) {
	query := `
		SELECT COUNT(*)
		FROM user_groups
		WHERE user_id = ? AND group_id = ?
	`
	var count int
	if err := s.db.QueryRowContext(ctx, query, userID, groupID).Scan(&count); err != nil {
		return false, fmt.Errorf("query membership: %w", err)
	}
	return count > 0, nil
}

// ListGroupMembers lists the users in a group.
func (s *SQLiteStore) ListGroupMembers(ctx context.Context, groupID int64) ([]*store.User, error) {
	query := `
		SELECT u.id, u.username, u.email, u.password_hash, u.created_at
		FROM users u
		JOIN user_groups ug ON ug.user_id = u.id
		WHERE ug.group_id = ?
		ORDER BY u.username ASC
	`
	rows, err := s.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("query group members: %w", err)
	}
	defer rows.Close()

	users := make([]*store.User, 0)
	for rows.Next() {
		var user store.User
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan group member: %w", err)
		}
		users = append(users, &user)
	}
	return users, rows.Err()
}

// CountGroupMembers returns the number of users in a group.
func (s *SQLiteStore) CountGroupMembers(ctx context.Context, groupID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM user_groups
		WHERE group_id = ?
	`
	var count int
	if err := s.db.QueryRowContext(ctx, query, groupID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count group members: %w", err)
	}
	return count, nil
}

// ==== MessageStore implementation ====

// SaveDirectMessage stores a direct message and returns it with the
// generated id and server-assigned UTC timestamp.
func (s *SQLiteStore) SaveDirectMessage(ctx context.Context, senderID, recipientID int64, content string) (*store.Message, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO messages (sender_id, recipient_id, content, timestamp, is_read)
		VALUES (?, ?, ?, ?, 0)
	`
	result, err := s.db.ExecContext(ctx, query, senderID, recipientID, content, now)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return &store.Message{
		ID:          id,
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     content,
		Timestamp:   now,
	}, nil
}

// GetMessage retrieves a message by ID.
func (s *SQLiteStore) GetMessage(ctx context.Context, id int64) (*store.Message, error) {
	query := `
		SELECT id, sender_id, recipient_id, content, timestamp, is_read
		FROM messages
		WHERE id = ?
	`
	var msg store.Message
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&msg.ID,
		&msg.SenderID,
		&msg.RecipientID,
		&msg.Content,
		&msg.Timestamp,
		&msg.IsRead,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query message: %w", err)
	}
	return &msg, nil
}

// ListMessagesForUser lists all messages sent or received by a user,
// newest first.
func (s *SQLiteStore) ListMessagesForUser(ctx context.Context, userID int64, days int) ([]*store.Message, error) {
	query := `
		SELECT id, sender_id, recipient_id, content, timestamp, is_read
		FROM messages
		WHERE sender_id = ? OR recipient_id = ?
	`
	args := []any{userID, userID}
	if days > 0 {
		query += ` AND timestamp >= ?`
		args = append(args, time.Now().UTC().AddDate(0, 0, -days))
	}
	query += ` ORDER BY timestamp DESC`

	return s.queryMessages(ctx, query, args...)
}

// ListConversation lists the messages between two users in chronological
// order.
func (s *SQLiteStore) ListConversation(ctx context.Context, userID, otherUserID int64) ([]*store.Message, error) {
	query := `
		SELECT id, sender_id, recipient_id, content, timestamp, is_read
		FROM messages
		WHERE (sender_id = ? AND recipient_id = ?)
		   OR (sender_id = ? AND recipient_id = ?)
		ORDER BY timestamp ASC
	`
	return s.queryMessages(ctx, query, userID, otherUserID, otherUserID, userID)
}

// MarkConversationRead flags all messages from otherUserID to userID as read.
func (s *SQLiteStore) MarkConversationRead(ctx context.Context, userID, otherUserID int64) error {
	query := `
		UPDATE messages
		SET is_read = 1
		WHERE recipient_id = ? AND sender_id = ? AND is_read = 0
	`
	if _, err := s.db.ExecContext(ctx, query, userID, otherUserID); err != nil {
		return fmt.Errorf("mark conversation read: %w", err)
	}
	return nil
}

// DeleteMessage deletes a message. Only the sender may delete; a delete
// by anyone else fails with ErrNotSender so callers can tell it apart
// from a missing message.
func (s *SQLiteStore) DeleteMessage(ctx context.Context, id, senderID int64) error {
	var owner int64
	err := s.db.QueryRowContext(ctx, `SELECT sender_id FROM messages WHERE id = ?`, id).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return fmt.Errorf("query message sender: %w", err)
	}
	if owner != senderID {
		return store.ErrNotSender
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

func (s *SQLiteStore) queryMessages(ctx context.Context, query string, args ...any) ([]*store.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.Message, 0)
	for rows.Next() {
		var msg store.Message
		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.RecipientID, &msg.Content, &msg.Timestamp, &msg.IsRead); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}
