package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Claims is what the client can read from a JWT bearer token without the
// signing key. It is advisory; the backend's 401 is authoritative.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// Expired reports whether the token carried an expiry that has passed.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Session owns the one credential the client holds. It is safe for use from
// concurrent Bubble Tea commands.
type Session struct {
	mu    sync.RWMutex
	store Store
	token string
	log   *zap.Logger
	now   func() time.Time
}

// New returns an empty session backed by store. Call Init to load a
// previously saved token.
func New(store Store, log *zap.Logger) *Session {
	if store == nil {
		store = &MemoryStore{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{store: store, log: log, now: time.Now}
}

// Init loads the stored token. Unreadable or expired tokens are discarded.
func (s *Session) Init(ctx context.Context) error {
	tok, err := s.store.Load(ctx)
	if err != nil {
		s.log.Warn("session.load_failed", zap.Error(err))
		return s.Clear(ctx)
	}
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return nil
	}
	if c, ok := ParseClaims(tok); ok && c.Expired(s.now()) {
		s.log.Info("session.expired", zap.Time("expires_at", c.ExpiresAt))
		return s.Clear(ctx)
	}
	s.mu.Lock()
	s.token = tok
	s.mu.Unlock()
	return nil
}

// Set stores a fresh token in memory and in the backing store.
func (s *Session) Set(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("session: empty token")
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	if err := s.store.Save(ctx, token); err != nil {
		return fmt.Errorf("session: save token: %w", err)
	}
	return nil
}

// Clear drops the token. The in-memory copy is always removed even when the
// backing store fails.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	if err := s.store.Delete(ctx); err != nil {
		return fmt.Errorf("session: delete token: %w", err)
	}
	return nil
}

// ClearIf drops the token only when it still equals tok, and reports whether
// it did. A token replaced by a newer login survives.
func (s *Session) ClearIf(ctx context.Context, tok string) (bool, error) {
	s.mu.Lock()
	if tok == "" || s.token != tok {
		s.mu.Unlock()
		return false, nil
	}
	s.token = ""
	s.mu.Unlock()
	if err := s.store.Delete(ctx); err != nil {
		return true, fmt.Errorf("session: delete token: %w", err)
	}
	return true, nil
}

// Token returns the current bearer token or "".
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Valid reports whether a token is held.
func (s *Session) Valid() bool { return s.Token() != "" }

// Claims parses the current token, if it is a JWT.
func (s *Session) Claims() (Claims, bool) {
	tok := s.Token()
	if tok == "" {
		return Claims{}, false
	}
	return ParseClaims(tok)
}

// ParseClaims reads subject and expiry from a JWT without verifying it.
// Opaque tokens report ok=false.
func ParseClaims(token string) (Claims, bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return Claims{}, false
	}
	var c Claims
	if sub, err := parsed.Claims.GetSubject(); err == nil {
		c.Subject = sub
	}
	if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c, true
}
