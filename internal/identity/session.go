// Package identity tracks which creator is signed in.
package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrEmptyUser is returned when Login is called without a user id.
var ErrEmptyUser = errors.New("identity: user id is required")

// Hook runs after a login or logout. Hooks run synchronously in
// registration order; the first error aborts the remaining hooks.
type Hook func(ctx context.Context, userID string) error

// Session is the process-wide answer to "who is signed in". It satisfies
// core.IdentityProvider.
type Session struct {
	mu       sync.RWMutex
	userID   string
	onLogin  []Hook
	onLogout []Hook
}

// NewSession returns a signed-out session.
func NewSession() *Session { return &Session{} }

// CurrentUserID implements core.IdentityProvider.
func (s *Session) CurrentUserID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID, s.userID != ""
}

// OnLogin registers a hook run after every successful Login.
func (s *Session) OnLogin(h Hook) {
	s.mu.Lock()
	s.onLogin = append(s.onLogin, h)
	s.mu.Unlock()
}

// OnLogout registers a hook run after every Logout of a signed-in user.
func (s *Session) OnLogout(h Hook) {
	s.mu.Lock()
	s.onLogout = append(s.onLogout, h)
	s.mu.Unlock()
}

// Login signs userID in, replacing any previous user, then runs the login hooks.
// A hook error is returned but the user stays signed in.
func (s *Session) Login(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrEmptyUser
	}
	s.mu.Lock()
	s.userID = userID
	hooks := append([]Hook(nil), s.onLogin...)
	s.mu.Unlock()
	return run(ctx, hooks, userID)
}

// Logout clears the session and runs the logout hooks with the previous
// user id. Logging out while signed out is a no-op.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	prev := s.userID
	s.userID = ""
	hooks := append([]Hook(nil), s.onLogout...)
	s.mu.Unlock()
	if prev == "" {
		return nil
	}
	return run(ctx, hooks, prev)
}

func run(ctx context.Context, hooks []Hook, userID string) error {
	for _, h := range hooks {
		if err := h(ctx, userID); err != nil {
			return err
		}
	}
	return nil
}

// Static is a fixed identity, useful for CLI commands acting as one creator.
type Static string

// CurrentUserID implements core.IdentityProvider.
func (s Static) CurrentUserID() (string, bool) { return string(s), s != "" }
