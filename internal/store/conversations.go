// ABOUTME: Conversation repository: create, list, append messages, cascade delete
// ABOUTME: Appends and deletes run as single transactions under the shared lock

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ConversationRepo persists conversations and their messages through the
// shared database handle.
type ConversationRepo struct {
	db     *DB
	logger *slog.Logger
}

// NewConversationRepo creates a conversation repository and enforces the
// conversation and message schemas (which pull in the user schema they
// reference).
func NewConversationRepo(db *DB) (*ConversationRepo, error) {
	if err := db.EnsureConversationSchema(); err != nil {
		return nil, err
	}
	return &ConversationRepo{
		db:     db,
		logger: db.logger.With("repo", "conversation"),
	}, nil
}

// CreateConversation inserts a conversation owned by userID and returns
// the fully populated record. An empty title is normalized to
// DefaultTitle rather than rejected. Returns ErrUserNotFound when userID
// does not resolve.
func (r *ConversationRepo) CreateConversation(ctx context.Context, userID RecordID, title string) (*Conversation, error) {
	if title == "" {
		title = DefaultTitle
	}

	id := NewRecordID("conversation")
	now := time.Now().UTC()
	nowStr := now.Format(timeLayout)

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	tx, err := r.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM user WHERE id = ?`, userID.String()).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", userID, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("resolving user %s: %w", userID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversation (id, user_id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, id.String(), userID.String(), title, nowStr, nowStr)
	if err != nil {
		return nil, fmt.Errorf("inserting conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing conversation: %w", err)
	}

	r.logger.Info("created conversation", "id", id, "user_id", userID, "title", title)

	created, _ := time.Parse(timeLayout, nowStr)
	return &Conversation{
		ID:        id,
		UserID:    userID,
		Title:     title,
		CreatedAt: created,
		UpdatedAt: created,
	}, nil
}

// GetUserConversations returns the conversations owned by userID ordered
// by creation time ascending. No conversations is an empty result, not an
// error.
func (r *ConversationRepo) GetUserConversations(ctx context.Context, userID RecordID) ([]*Conversation, error) {
	query := `
		SELECT id, user_id, title, created_at, updated_at
		FROM conversation
		WHERE user_id = ?
		ORDER BY created_at ASC
	`

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	rows, err := r.db.conn.QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("querying conversations for %s: %w", userID, err)
	}
	defer rows.Close()

	var conversations []*Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversation rows: %w", err)
	}

	return conversations, nil
}

// AppendMessages merges msgs into the conversation and bumps updated_at,
// all in one transaction under the shared lock so concurrent appenders
// cannot lose each other's messages. Messages get fresh ids and
// timestamps when unset, plus a batch-local sequence for stable ordering.
// Returns the conversation title, or ErrConversationNotFound with no
// partial write when the id does not resolve.
func (r *ConversationRepo) AppendMessages(ctx context.Context, conversationID RecordID, msgs []*Message) (string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	tx, err := r.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var title string
	err = tx.QueryRowContext(ctx, `SELECT title FROM conversation WHERE id = ?`, conversationID.String()).Scan(&title)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", conversationID, ErrConversationNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("resolving conversation %s: %w", conversationID, err)
	}

	var maxSeq int64
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM message WHERE conversation_id = ?
	`, conversationID.String()).Scan(&maxSeq)
	if err != nil {
		return "", fmt.Errorf("reading message sequence: %w", err)
	}

	now := time.Now().UTC()
	for i, msg := range msgs {
		if msg.ID.IsZero() {
			msg.ID = NewRecordID("message")
		}
		if msg.Timestamp.IsZero() {
			msg.Timestamp = now
		}
		msg.ConversationID = conversationID

		content, err := EncodeContent(msg.Content)
		if err != nil {
			return "", fmt.Errorf("encoding content for message %s: %w", msg.ID, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO message (id, conversation_id, seq, role, content, timestamp)
			VALUES (?, ?, ?, ?, ?, ?)
		`, msg.ID.String(), conversationID.String(), maxSeq+int64(i)+1, msg.Role, string(content),
			msg.Timestamp.UTC().Format(timeLayout))
		if err != nil {
			return "", fmt.Errorf("inserting message %s: %w", msg.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx, `UPDATE conversation SET updated_at = ? WHERE id = ?`,
		now.Format(timeLayout), conversationID.String())
	if err != nil {
		return "", fmt.Errorf("bumping updated_at: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing append: %w", err)
	}

	r.logger.Debug("appended messages", "conversation_id", conversationID, "count", len(msgs))
	return title, nil
}

// GetConversationMessages returns the conversation's messages ordered by
// timestamp ascending, content decoded into its polymorphic shape.
// Returns ErrConversationNotFound when the id does not resolve, including
// after deletion.
func (r *ConversationRepo) GetConversationMessages(ctx context.Context, conversationID RecordID) ([]*Message, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var exists int
	err := r.db.conn.QueryRowContext(ctx, `SELECT 1 FROM conversation WHERE id = ?`, conversationID.String()).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", conversationID, ErrConversationNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("resolving conversation %s: %w", conversationID, err)
	}

	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT id, role, content, timestamp
		FROM message
		WHERE conversation_id = ?
		ORDER BY timestamp ASC, seq ASC
	`, conversationID.String())
	if err != nil {
		return nil, fmt.Errorf("querying messages for %s: %w", conversationID, err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var (
			idStr, role, content, ts string
		)
		if err := rows.Scan(&idStr, &role, &content, &ts); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}

		id, err := ParseRecordID(idStr)
		if err != nil {
			return nil, fmt.Errorf("parsing message id: %w", err)
		}

		parts, err := DecodeContent([]byte(content))
		if err != nil {
			return nil, fmt.Errorf("message %s: %w", id, err)
		}

		timestamp, err := time.Parse(timeLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("parsing message timestamp: %w", err)
		}

		messages = append(messages, &Message{
			ID:             id,
			ConversationID: conversationID,
			Role:           role,
			Content:        parts,
			Timestamp:      timestamp,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}

	return messages, nil
}

// DeleteConversation removes the conversation and all its messages in one
// transaction; a crash cannot leave orphaned messages behind. Messages
// already absent is not an error. Returns ErrNotFound when the
// conversation record itself does not exist, so a second delete of the
// same id fails.
func (r *ConversationRepo) DeleteConversation(ctx context.Context, conversationID RecordID) (RecordID, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	tx, err := r.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return RecordID{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `DELETE FROM message WHERE conversation_id = ?`, conversationID.String())
	if err != nil {
		return RecordID{}, fmt.Errorf("deleting messages for %s: %w", conversationID, err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM conversation WHERE id = ?`, conversationID.String())
	if err != nil {
		return RecordID{}, fmt.Errorf("deleting conversation %s: %w", conversationID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return RecordID{}, fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return RecordID{}, fmt.Errorf("%s: %w", conversationID, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return RecordID{}, fmt.Errorf("committing delete: %w", err)
	}

	r.logger.Info("deleted conversation", "id", conversationID)
	return conversationID, nil
}

// scanRow is the subset of sql.Rows used by scanConversation.
type scanRow interface {
	Scan(dest ...any) error
}

func scanConversation(row scanRow) (*Conversation, error) {
	var (
		idStr, userIDStr, title string
		createdAt, updatedAt    string
	)
	if err := row.Scan(&idStr, &userIDStr, &title, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("scanning conversation row: %w", err)
	}

	id, err := ParseRecordID(idStr)
	if err != nil {
		return nil, fmt.Errorf("parsing conversation id: %w", err)
	}
	userID, err := ParseRecordID(userIDStr)
	if err != nil {
		return nil, fmt.Errorf("parsing user id: %w", err)
	}

	created, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	updated, err := time.Parse(timeLayout, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &Conversation{
		ID:        id,
		UserID:    userID,
		Title:     title,
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}

// Ensure ConversationRepo implements ConversationStore.
var _ ConversationStore = (*ConversationRepo)(nil)
