// ABOUTME: Data types and repository interfaces for conversation persistence
// ABOUTME: Defines User, Conversation, Message and the store interfaces served by SQLite

package store

import (
	"context"
	"time"
)

// timeLayout is the fixed-width UTC timestamp format used in all columns.
// Fixed width keeps lexicographic and chronological order identical, so
// ORDER BY on the raw text column is correct.
const timeLayout = "2006-01-02T15:04:05.000Z"

// Role constants for messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// DefaultTitle is substituted when a conversation is created with an empty
// title. Titles are not unique across conversations, so the substitution
// cannot collide.
const DefaultTitle = "New Conversation"

// UserView is the public projection of a user record. It never carries the
// credential hash.
type UserView struct {
	ID        RecordID  `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Conversation is a titled sequence of messages owned by a user.
type Conversation struct {
	ID        RecordID  `json:"id"`
	UserID    RecordID  `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is a single immutable entry in a conversation. Content is the
// polymorphic payload; a message may hold several parts.
type Message struct {
	ID             RecordID  `json:"id"`
	ConversationID RecordID  `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        []Content `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
}

// UserStore is the repository surface for user records.
type UserStore interface {
	CreateUser(ctx context.Context, first, last, username, password, email string) error
	VerifyPassword(ctx context.Context, username, password string) (*UserView, error)
	GetUserID(ctx context.Context, username string) (RecordID, error)
}

// ConversationStore is the repository surface for conversations and their
// messages.
type ConversationStore interface {
	CreateConversation(ctx context.Context, userID RecordID, title string) (*Conversation, error)
	GetUserConversations(ctx context.Context, userID RecordID) ([]*Conversation, error)
	AppendMessages(ctx context.Context, conversationID RecordID, msgs []*Message) (string, error)
	GetConversationMessages(ctx context.Context, conversationID RecordID) ([]*Message, error)
	DeleteConversation(ctx context.Context, conversationID RecordID) (RecordID, error)
}
