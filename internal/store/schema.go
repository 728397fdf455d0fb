// ABOUTME: Idempotent schema enforcement for the user/conversation/message tables
// ABOUTME: STRICT tables with CHECK assertions, unique indexes, and guarded migrations

package store

import (
	"fmt"
)

// EnsureUserSchema defines the user table and its indexes. Safe to call
// from every repository constructor; the statements run once per process
// and are themselves idempotent against an already-defined database.
func (db *DB) EnsureUserSchema() error {
	return db.userSchema.do(db.defineUserSchema)
}

// EnsureConversationSchema defines the conversation and message tables.
// The conversation table references user, so the user schema is enforced
// first.
func (db *DB) EnsureConversationSchema() error {
	if err := db.EnsureUserSchema(); err != nil {
		return err
	}
	return db.conversationSchema.do(db.defineConversationSchema)
}

func (db *DB) defineUserSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS user (
			id         TEXT PRIMARY KEY,
			first_name TEXT NOT NULL,
			last_name  TEXT NOT NULL,
			username   TEXT NOT NULL CHECK (username <> ''),
			email      TEXT NOT NULL,
			pass       TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		) STRICT;

		CREATE UNIQUE INDEX IF NOT EXISTS idx_user_username ON user(username);
	`

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("%w: user: %v", ErrSchemaDefinition, err)
	}

	db.logger.Info("schema enforced", "table", "user")
	return nil
}

func (db *DB) defineConversationSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS conversation (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES user(id),
			title      TEXT NOT NULL CHECK (title <> ''),
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		) STRICT;

		CREATE INDEX IF NOT EXISTS idx_conversation_user_created
			ON conversation(user_id, created_at);

		CREATE TABLE IF NOT EXISTS message (
			id              TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL REFERENCES conversation(id),
			seq             INTEGER NOT NULL DEFAULT 0,
			role            TEXT NOT NULL CHECK (role IN ('user', 'assistant', 'system')),
			content         TEXT NOT NULL,
			timestamp       TEXT NOT NULL
		) STRICT;

		CREATE INDEX IF NOT EXISTS idx_message_conversation_ts
			ON message(conversation_id, timestamp, seq);
	`

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("%w: conversation: %v", ErrSchemaDefinition, err)
	}

	if err := db.migrateConversationSchema(); err != nil {
		return fmt.Errorf("%w: conversation: %v", ErrSchemaDefinition, err)
	}

	db.logger.Info("schema enforced", "table", "conversation")
	return nil
}

// migrateConversationSchema applies column additions for databases created
// before the column existed. SQLite has no ADD COLUMN IF NOT EXISTS, so
// each migration checks pragma_table_info first. Caller holds db.mu.
func (db *DB) migrateConversationSchema() error {
	migrations := []struct {
		check  string
		apply  string
		column string
	}{
		{
			// seq orders messages appended in one batch with equal timestamps
			check:  `SELECT 1 FROM pragma_table_info('message') WHERE name = 'seq'`,
			apply:  `ALTER TABLE message ADD COLUMN seq INTEGER NOT NULL DEFAULT 0`,
			column: "seq",
		},
	}

	for _, m := range migrations {
		var exists int
		if err := db.conn.QueryRow(m.check).Scan(&exists); err == nil {
			continue
		}
		if _, err := db.conn.Exec(m.apply); err != nil {
			return fmt.Errorf("adding %s column to message: %v", m.column, err)
		}
		db.logger.Info("applied migration", "column", m.column, "table", "message")
	}

	return nil
}
