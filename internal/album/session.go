package album

import (
	"context"
	"sync"
)

// Session holds the signed in user and their token.
type Session struct {
	client *Client

	mu   sync.RWMutex
	user *User
}

// NewSession creates a session. A token set on client beforehand counts as
// signed in, without a known user.
func NewSession(client *Client) *Session {
	return &Session{client: client}
}

// Login signs in and stores the token on the client.
func (s *Session) Login(ctx context.Context, email, password string) (User, error) {
	resp, err := s.client.Login(ctx, LoginRequest{Email: email, Password: password})
	if err != nil {
		s.Logout()
		return User{}, err
	}

	s.mu.Lock()
	s.client.SetToken(resp.Token)
	u := resp.User
	s.user = &u
	s.mu.Unlock()

	s.client.logger.Info("Signed in to album backend", "user_id", u.ID, "email", u.Email)
	return u, nil
}

// Register creates an account. It does not sign in.
func (s *Session) Register(ctx context.Context, name, email, password string) (User, error) {
	return s.client.Register(ctx, RegisterRequest{Name: name, Email: email, Password: password})
}

// Logout forgets the token and user.
func (s *Session) Logout() {
	s.mu.Lock()
	s.client.SetToken("")
	s.user = nil
	s.mu.Unlock()
}

// User returns the signed in user, if known.
func (s *Session) User() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// Authenticated reports whether requests carry a token.
func (s *Session) Authenticated() bool {
	return s.client.Token() != ""
}
