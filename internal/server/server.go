// ABOUTME: HTTP surface exposing the persistence core to the desktop shell
// ABOUTME: JSON handlers for signup, login, conversations, and messages

package server

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/novaflow/novaflow/internal/auth"
	"github.com/novaflow/novaflow/internal/store"
)

// Server wires the repositories behind JSON endpoints. It holds no state
// of its own beyond the injected dependencies.
type Server struct {
	users         store.UserStore
	conversations store.ConversationStore
	verifier      *auth.JWTVerifier
	sessionTTL    time.Duration
	logger        *slog.Logger
}

// New creates a Server. Pass nil logger for the default.
func New(users store.UserStore, conversations store.ConversationStore, verifier *auth.JWTVerifier, sessionTTL time.Duration, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		users:         users,
		conversations: conversations,
		verifier:      verifier,
		sessionTTL:    sessionTTL,
		logger:        logger.With("component", "server"),
	}
}

// Handler returns the route table. Auth routes are open; /api routes
// require a bearer session token.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/signup", s.handleSignup)
	mux.HandleFunc("POST /auth/login", s.handleLogin)

	mux.HandleFunc("POST /api/conversations", s.requireAuth(s.handleCreateConversation))
	mux.HandleFunc("GET /api/conversations", s.requireAuth(s.handleListConversations))
	mux.HandleFunc("POST /api/conversations/{id}/messages", s.requireAuth(s.handleAppendMessages))
	mux.HandleFunc("GET /api/conversations/{id}/messages", s.requireAuth(s.handleListMessages))
	mux.HandleFunc("DELETE /api/conversations/{id}", s.requireAuth(s.handleDeleteConversation))

	mux.HandleFunc("GET /health", s.handleHealth)

	return mux
}

// requireAuth checks the Authorization bearer token and rejects the
// request before the handler runs.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.sendJSONError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		if _, err := s.verifier.Verify(token); err != nil {
			s.sendJSONError(w, http.StatusUnauthorized, "invalid session token")
			return
		}

		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
