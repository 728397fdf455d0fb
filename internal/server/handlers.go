// ABOUTME: JSON request/response types and handlers for the HTTP surface
// ABOUTME: Maps repository sentinel errors onto HTTP status codes

package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/novaflow/novaflow/internal/store"
)

// SignupRequest is the JSON request body for POST /auth/signup.
type SignupRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Email     string `json:"email"`
}

// LoginRequest is the JSON request body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the JSON response for a successful login.
type LoginResponse struct {
	Token string          `json:"token"`
	User  *store.UserView `json:"user"`
}

// CreateConversationRequest is the JSON request body for POST /api/conversations.
type CreateConversationRequest struct {
	UserID string `json:"user_id"`
	Title  string `json:"title"`
}

// AppendMessagesRequest is the JSON request body for
// POST /api/conversations/{id}/messages.
type AppendMessagesRequest struct {
	Messages []*store.Message `json:"messages"`
}

// AppendMessagesResponse echoes the conversation title after an append.
type AppendMessagesResponse struct {
	Title string `json:"title"`
}

// ErrorResponse is the JSON body for error statuses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		s.sendJSONError(w, http.StatusBadRequest, "username and password required")
		return
	}

	err := s.users.CreateUser(r.Context(), req.FirstName, req.LastName, req.Username, req.Password, req.Email)
	if errors.Is(err, store.ErrDuplicateUsername) {
		s.sendJSONError(w, http.StatusConflict, "username already exists")
		return
	}
	if err != nil {
		s.logger.Error("signup failed", "username", req.Username, "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	view, err := s.users.VerifyPassword(r.Context(), req.Username, req.Password)
	if err != nil {
		s.logger.Error("login failed", "username", req.Username, "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if view == nil {
		// Unknown username and wrong password produce the same response.
		s.sendJSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.verifier.Generate(view.ID.String(), s.sessionTTL)
	if err != nil {
		s.logger.Error("minting session token", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.writeJSON(w, http.StatusOK, LoginResponse{Token: token, User: view})
}

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID, err := store.ParseRecordID(req.UserID)
	if err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid user_id")
		return
	}

	conv, err := s.conversations.CreateConversation(r.Context(), userID, req.Title)
	if errors.Is(err, store.ErrUserNotFound) {
		s.sendJSONError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		s.logger.Error("creating conversation", "user_id", userID, "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.writeJSON(w, http.StatusCreated, conv)
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	userID, err := store.ParseRecordID(r.URL.Query().Get("user_id"))
	if err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid user_id")
		return
	}

	conversations, err := s.conversations.GetUserConversations(r.Context(), userID)
	if err != nil {
		s.logger.Error("listing conversations", "user_id", userID, "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if conversations == nil {
		conversations = []*store.Conversation{}
	}
	s.writeJSON(w, http.StatusOK, conversations)
}

func (s *Server) handleAppendMessages(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := s.conversationIDFromPath(w, r)
	if !ok {
		return
	}

	var req AppendMessagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		s.sendJSONError(w, http.StatusBadRequest, "messages required")
		return
	}

	title, err := s.conversations.AppendMessages(r.Context(), conversationID, req.Messages)
	if errors.Is(err, store.ErrConversationNotFound) {
		s.sendJSONError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		s.logger.Error("appending messages", "conversation_id", conversationID, "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.writeJSON(w, http.StatusOK, AppendMessagesResponse{Title: title})
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := s.conversationIDFromPath(w, r)
	if !ok {
		return
	}

	messages, err := s.conversations.GetConversationMessages(r.Context(), conversationID)
	if errors.Is(err, store.ErrConversationNotFound) {
		s.sendJSONError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		s.logger.Error("listing messages", "conversation_id", conversationID, "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if messages == nil {
		messages = []*store.Message{}
	}
	s.writeJSON(w, http.StatusOK, messages)
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := s.conversationIDFromPath(w, r)
	if !ok {
		return
	}

	deleted, err := s.conversations.DeleteConversation(r.Context(), conversationID)
	if errors.Is(err, store.ErrNotFound) {
		s.sendJSONError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		s.logger.Error("deleting conversation", "conversation_id", conversationID, "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"id": deleted.String()})
}

// conversationIDFromPath parses the {id} path value. Accepts both the
// full "conversation:key" form and a bare key.
func (s *Server) conversationIDFromPath(w http.ResponseWriter, r *http.Request) (store.RecordID, bool) {
	raw := r.PathValue("id")
	if raw == "" {
		s.sendJSONError(w, http.StatusBadRequest, "conversation id required")
		return store.RecordID{}, false
	}

	id, err := store.ParseRecordID(raw)
	if err != nil {
		id = store.RecordID{Table: "conversation", Key: raw}
	}
	if id.Table != "conversation" {
		s.sendJSONError(w, http.StatusBadRequest, "invalid conversation id")
		return store.RecordID{}, false
	}
	return id, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response", "error", err)
	}
}

func (s *Server) sendJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}
