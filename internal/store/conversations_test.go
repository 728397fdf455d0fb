// ABOUTME: Tests for the conversation repository
// ABOUTME: Covers ordering, append atomicity, cascade delete, and concurrent appends

package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupConversationRepo returns a conversation repo plus the id of a user
// it can own conversations with.
func setupConversationRepo(t *testing.T) (*ConversationRepo, RecordID) {
	t.Helper()
	db := setupTestDB(t)

	users, err := NewUserRepo(db)
	require.NoError(t, err)
	require.NoError(t, users.CreateUser(t.Context(), "Ann", "Lee", "ann", "pw123", "a@x.com"))
	userID, err := users.GetUserID(t.Context(), "ann")
	require.NoError(t, err)

	repo, err := NewConversationRepo(db)
	require.NoError(t, err)
	return repo, userID
}

func TestConversationRepo_Create(t *testing.T) {
	repo, userID := setupConversationRepo(t)

	conv, err := repo.CreateConversation(t.Context(), userID, "Trip planning")
	require.NoError(t, err)

	assert.Equal(t, "conversation", conv.ID.Table)
	assert.Equal(t, userID, conv.UserID)
	assert.Equal(t, "Trip planning", conv.Title)
	assert.False(t, conv.CreatedAt.IsZero())
	assert.Equal(t, conv.CreatedAt, conv.UpdatedAt)
}

func TestConversationRepo_EmptyTitleGetsDefault(t *testing.T) {
	repo, userID := setupConversationRepo(t)

	conv, err := repo.CreateConversation(t.Context(), userID, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultTitle, conv.Title)

	// Two untitled conversations may coexist; titles are not unique.
	_, err = repo.CreateConversation(t.Context(), userID, "")
	assert.NoError(t, err)
}

func TestConversationRepo_CreateUnknownUser(t *testing.T) {
	repo, _ := setupConversationRepo(t)

	_, err := repo.CreateConversation(t.Context(), NewRecordID("user"), "orphan")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestConversationRepo_ListOrderedByCreation(t *testing.T) {
	repo, userID := setupConversationRepo(t)
	ctx := t.Context()

	titles := []string{"first", "second", "third"}
	for _, title := range titles {
		_, err := repo.CreateConversation(ctx, userID, title)
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond) // distinct created_at
	}

	conversations, err := repo.GetUserConversations(ctx, userID)
	require.NoError(t, err)
	require.Len(t, conversations, 3)
	for i, conv := range conversations {
		assert.Equal(t, titles[i], conv.Title)
		assert.Equal(t, userID, conv.UserID)
	}
}

func TestConversationRepo_ListEmpty(t *testing.T) {
	repo, userID := setupConversationRepo(t)

	conversations, err := repo.GetUserConversations(t.Context(), userID)
	require.NoError(t, err)
	assert.Empty(t, conversations)
}

func TestConversationRepo_AppendAndGetMessages(t *testing.T) {
	repo, userID := setupConversationRepo(t)
	ctx := t.Context()

	conv, err := repo.CreateConversation(ctx, userID, "chat")
	require.NoError(t, err)

	title, err := repo.AppendMessages(ctx, conv.ID, []*Message{
		{Role: RoleUser, Content: []Content{TextContent("hello")}},
		{Role: RoleAssistant, Content: []Content{TextContent("hi there")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "chat", title)

	messages, err := repo.GetConversationMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, RoleUser, messages[0].Role)
	assert.Equal(t, "hello", messages[0].Content[0].Text)
	assert.Equal(t, RoleAssistant, messages[1].Role)
	assert.Equal(t, conv.ID, messages[1].ConversationID)
}

func TestConversationRepo_AppendBumpsUpdatedAt(t *testing.T) {
	repo, userID := setupConversationRepo(t)
	ctx := t.Context()

	conv, err := repo.CreateConversation(ctx, userID, "chat")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	_, err = repo.AppendMessages(ctx, conv.ID, []*Message{
		{Role: RoleUser, Content: []Content{TextContent("ping")}},
	})
	require.NoError(t, err)

	conversations, err := repo.GetUserConversations(ctx, userID)
	require.NoError(t, err)
	require.Len(t, conversations, 1)
	assert.True(t, conversations[0].UpdatedAt.After(conversations[0].CreatedAt))
}

func TestConversationRepo_AppendToNonexistent(t *testing.T) {
	repo, userID := setupConversationRepo(t)
	ctx := t.Context()

	missing := NewRecordID("conversation")
	_, err := repo.AppendMessages(ctx, missing, []*Message{
		{Role: RoleUser, Content: []Content{TextContent("lost")}},
	})
	assert.ErrorIs(t, err, ErrConversationNotFound)

	// No partial write: a real conversation sees no stray messages.
	conv, err := repo.CreateConversation(ctx, userID, "real")
	require.NoError(t, err)
	messages, err := repo.GetConversationMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestConversationRepo_DeleteCascades(t *testing.T) {
	repo, userID := setupConversationRepo(t)
	ctx := t.Context()

	conv, err := repo.CreateConversation(ctx, userID, "doomed")
	require.NoError(t, err)
	_, err = repo.AppendMessages(ctx, conv.ID, []*Message{
		{Role: RoleUser, Content: []Content{TextContent("bye")}},
	})
	require.NoError(t, err)

	deleted, err := repo.DeleteConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, deleted)

	// Deleted is terminal.
	_, err = repo.GetConversationMessages(ctx, conv.ID)
	assert.ErrorIs(t, err, ErrConversationNotFound)

	_, err = repo.AppendMessages(ctx, conv.ID, []*Message{
		{Role: RoleUser, Content: []Content{TextContent("zombie")}},
	})
	assert.ErrorIs(t, err, ErrConversationNotFound)

	// Second delete fails.
	_, err = repo.DeleteConversation(ctx, conv.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// No orphaned messages survive the cascade.
	var count int
	repo.db.mu.Lock()
	err = repo.db.conn.QueryRow(`SELECT COUNT(*) FROM message WHERE conversation_id = ?`, conv.ID.String()).Scan(&count)
	repo.db.mu.Unlock()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestConversationRepo_ConcurrentAppends(t *testing.T) {
	repo, userID := setupConversationRepo(t)
	ctx := t.Context()

	conv, err := repo.CreateConversation(ctx, userID, "busy")
	require.NoError(t, err)

	const appenders = 2
	const perAppender = 5

	var wg sync.WaitGroup
	errs := make([]error, appenders)
	for i := 0; i < appenders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			var msgs []*Message
			for j := 0; j < perAppender; j++ {
				msgs = append(msgs, &Message{
					Role:    RoleUser,
					Content: []Content{TextContent(fmt.Sprintf("appender %d message %d", n, j))},
				})
			}
			_, errs[n] = repo.AppendMessages(ctx, conv.ID, msgs)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	// Both batches landed; nothing was lost to a concurrent overwrite.
	messages, err := repo.GetConversationMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Len(t, messages, appenders*perAppender)
}
