// ABOUTME: In-memory UserStore/ConversationStore implementation for testing
// ABOUTME: Lets handler tests run without SQLite

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// MockStore is an in-memory implementation of the repository interfaces.
type MockStore struct {
	mu            sync.RWMutex
	users         map[string]*mockUser              // keyed by username
	conversations map[string]*Conversation          // keyed by conversation id string
	messages      map[string][]*Message             // keyed by conversation id string
	seq           int                               // creation-order tiebreak for equal timestamps
	created       map[string]int                    // conversation id -> creation order
}

type mockUser struct {
	view UserView
	hash []byte
}

// NewMockStore creates an empty MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		users:         make(map[string]*mockUser),
		conversations: make(map[string]*Conversation),
		messages:      make(map[string][]*Message),
		created:       make(map[string]int),
	}
}

// CreateUser stores a user with a bcrypt hash at minimum cost.
func (m *MockStore) CreateUser(ctx context.Context, first, last, username, password, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[username]; ok {
		return fmt.Errorf("user %q: %w", username, ErrDuplicateUsername)
	}

	// MinCost keeps tests fast; the SQLite repo uses DefaultCost.
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	m.users[username] = &mockUser{
		view: UserView{
			ID:        NewRecordID("user"),
			FirstName: first,
			LastName:  last,
			Username:  username,
			Email:     email,
			CreatedAt: now,
			UpdatedAt: now,
		},
		hash: hash,
	}
	return nil
}

// VerifyPassword mirrors the SQLite repo: (nil, nil) on unknown username
// or wrong password.
func (m *MockStore) VerifyPassword(ctx context.Context, username, password string) (*UserView, error) {
	m.mu.RLock()
	u, ok := m.users[username]
	m.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if bcrypt.CompareHashAndPassword(u.hash, []byte(password)) != nil {
		return nil, nil
	}

	view := u.view
	return &view, nil
}

// GetUserID resolves a username to its RecordID.
func (m *MockStore) GetUserID(ctx context.Context, username string) (RecordID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[username]
	if !ok {
		return RecordID{}, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	return u.view.ID, nil
}

// CreateConversation stores a conversation after resolving the owner.
func (m *MockStore) CreateConversation(ctx context.Context, userID RecordID, title string) (*Conversation, error) {
	if title == "" {
		title = DefaultTitle
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.userExists(userID) {
		return nil, fmt.Errorf("%s: %w", userID, ErrUserNotFound)
	}

	now := time.Now().UTC()
	conv := &Conversation{
		ID:        NewRecordID("conversation"),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.conversations[conv.ID.String()] = conv
	m.seq++
	m.created[conv.ID.String()] = m.seq

	result := *conv
	return &result, nil
}

func (m *MockStore) userExists(userID RecordID) bool {
	for _, u := range m.users {
		if u.view.ID == userID {
			return true
		}
	}
	return false
}

// GetUserConversations returns the user's conversations in creation order.
func (m *MockStore) GetUserConversations(ctx context.Context, userID RecordID) ([]*Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var conversations []*Conversation
	for _, conv := range m.conversations {
		if conv.UserID == userID {
			c := *conv
			conversations = append(conversations, &c)
		}
	}

	sort.Slice(conversations, func(i, j int) bool {
		return m.created[conversations[i].ID.String()] < m.created[conversations[j].ID.String()]
	})
	return conversations, nil
}

// AppendMessages merges msgs into the conversation's message list.
func (m *MockStore) AppendMessages(ctx context.Context, conversationID RecordID, msgs []*Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[conversationID.String()]
	if !ok {
		return "", fmt.Errorf("%s: %w", conversationID, ErrConversationNotFound)
	}

	now := time.Now().UTC()
	for _, msg := range msgs {
		stored := *msg
		if stored.ID.IsZero() {
			stored.ID = NewRecordID("message")
		}
		if stored.Timestamp.IsZero() {
			stored.Timestamp = now
		}
		stored.ConversationID = conversationID
		m.messages[conversationID.String()] = append(m.messages[conversationID.String()], &stored)
	}
	conv.UpdatedAt = now

	return conv.Title, nil
}

// GetConversationMessages returns messages in append order.
func (m *MockStore) GetConversationMessages(ctx context.Context, conversationID RecordID) ([]*Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.conversations[conversationID.String()]; !ok {
		return nil, fmt.Errorf("%s: %w", conversationID, ErrConversationNotFound)
	}

	stored := m.messages[conversationID.String()]
	messages := make([]*Message, len(stored))
	for i, msg := range stored {
		c := *msg
		messages[i] = &c
	}
	return messages, nil
}

// DeleteConversation removes the conversation and its messages.
func (m *MockStore) DeleteConversation(ctx context.Context, conversationID RecordID) (RecordID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conversations[conversationID.String()]; !ok {
		return RecordID{}, fmt.Errorf("%s: %w", conversationID, ErrNotFound)
	}

	delete(m.conversations, conversationID.String())
	delete(m.messages, conversationID.String())
	delete(m.created, conversationID.String())
	return conversationID, nil
}

// Ensure MockStore implements the repository interfaces.
var (
	_ UserStore         = (*MockStore)(nil)
	_ ConversationStore = (*MockStore)(nil)
)
