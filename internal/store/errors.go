// ABOUTME: Sentinel errors for the persistence layer
// ABOUTME: Matched with errors.Is by repositories and the HTTP surface

package store

import "errors"

// ErrStorageUnavailable is returned when the embedded database cannot be
// opened, for example when the path is unwritable or another process holds
// the file lock. It is fatal and never retried.
var ErrStorageUnavailable = errors.New("storage unavailable")

// ErrSchemaDefinition is returned when the schema statements for a table
// set cannot be applied. Fatal at startup.
var ErrSchemaDefinition = errors.New("schema definition failed")

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateUsername is returned when the unique index on user.username
// rejects an insert.
var ErrDuplicateUsername = errors.New("username already exists")

// ErrUserNotFound is returned when a user id does not resolve to a record.
var ErrUserNotFound = errors.New("user not found")

// ErrConversationNotFound is returned when a conversation id does not
// resolve to a record.
var ErrConversationNotFound = errors.New("conversation not found")

// ErrMalformedContent is returned when stored message content cannot be
// decoded into a known variant.
var ErrMalformedContent = errors.New("malformed message content")
