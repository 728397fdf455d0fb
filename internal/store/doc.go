// Package store provides conversation persistence on an embedded SQLite
// database.
//
// # Architecture
//
// One physical connection per process, owned by the DB type and shared by
// every repository:
//
//   - DB: connection manager; Initialize opens the file once per process
//     behind a sync.Once, Conn hands out the shared handle
//   - UserRepo: signup, credential verification, username lookup
//   - ConversationRepo: conversations and their messages
//
// Repositories receive *DB by injection and serialize their queries
// through its mutex, holding it only for the span of a single query or a
// short transaction. They keep no private state of their own.
//
// # Schema
//
// Three STRICT tables in one database file: user, conversation, message.
// Schema enforcement is idempotent (CREATE TABLE IF NOT EXISTS plus
// pragma_table_info-guarded migrations) and runs lazily the first time a
// repository is constructed. A unique index covers user.username;
// message.conversation_id and conversation.user_id are foreign keys with
// foreign_keys=ON.
//
// Record identifiers are "table:uuid" strings (RecordID), stable for the
// life of the record and never reused.
//
// # SQLite configuration
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// The (path, namespace, database) triple passed to Initialize maps to the
// file <path>/<namespace>/<database>.db.
//
// # Error handling
//
// Sentinel errors matched with errors.Is:
//
//   - ErrStorageUnavailable: the database file cannot be opened (fatal)
//   - ErrSchemaDefinition: schema statements failed (fatal at startup)
//   - ErrDuplicateUsername: the username uniqueness index rejected an insert
//   - ErrUserNotFound, ErrConversationNotFound, ErrNotFound: missing records
//   - ErrMalformedContent: stored content does not decode to a known variant
//
// No operation retries; transient faults on a local single-process engine
// are surfaced immediately.
//
// # Testing
//
// Use NewMockStore() for handler tests and Open with t.TempDir() for
// integration tests against real SQLite.
package store
