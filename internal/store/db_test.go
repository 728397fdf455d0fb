// ABOUTME: Tests for the connection manager and schema enforcement
// ABOUTME: Covers open failures, idempotent schema, and the process singleton

package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB opens an isolated database under t.TempDir().
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(t.TempDir(), "novaflow", "test")
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestOpen_CreatesNamespaceDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	db, err := Open(tmpDir, "novaflow", "conversations")
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, filepath.Join(tmpDir, "novaflow", "conversations.db"))
}

func TestOpen_UnwritablePath(t *testing.T) {
	// A file where the namespace directory should go makes MkdirAll fail.
	tmpDir := t.TempDir()
	blocker := filepath.Join(tmpDir, "novaflow")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0644))

	_, err := Open(tmpDir, "novaflow", "conversations")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	tmpDir := t.TempDir()

	db, err := Open(tmpDir, "novaflow", "test")
	require.NoError(t, err)
	require.NoError(t, db.EnsureConversationSchema())

	// Write a row, reopen, re-enforce, and check the row survived.
	repo, err := NewUserRepo(db)
	require.NoError(t, err)
	require.NoError(t, repo.CreateUser(t.Context(), "Ann", "Lee", "ann", "pw123", "a@x.com"))
	require.NoError(t, db.Close())

	db2, err := Open(tmpDir, "novaflow", "test")
	require.NoError(t, err)
	defer db2.Close()
	require.NoError(t, db2.EnsureConversationSchema())
	require.NoError(t, db2.EnsureConversationSchema())

	repo2, err := NewUserRepo(db2)
	require.NoError(t, err)
	_, err = repo2.GetUserID(t.Context(), "ann")
	assert.NoError(t, err)
}

func TestInitialize_OncePerProcess(t *testing.T) {
	first := t.TempDir()
	require.NoError(t, Initialize(first, "novaflow", "conversations"))

	handle := Conn()
	require.NotNil(t, handle)

	// A second call with a different path must not reopen.
	require.NoError(t, Initialize(t.TempDir(), "other", "other"))
	assert.Same(t, handle, Conn())
}
