package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hackn3y/intentionalmovement-sub001/internal/model"
)

// Credentials is the only durable client-side state: the bearer token and
// the serialized user it was issued for.
type Credentials struct {
	Token string      `json:"token"`
	User  *model.User `json:"user,omitempty"`
}

// Store caches credentials in memory and persists them to a single JSON
// file. Both the API client and the realtime client read it; only login,
// logout and the 401 path write it.
type Store struct {
	mu     sync.RWMutex
	path   string
	cached *Credentials
	loaded bool
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Get returns the cached credentials, reading the file on a cache miss.
// A nil result with nil error means no session exists.
func (s *Store) Get() (*Credentials, error) {
	s.mu.RLock()
	if s.loaded {
		c := s.cached
		s.mu.RUnlock()
		return c, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.cached, nil
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.loaded = true
			return nil, nil
		}
		return nil, err
	}
	var c Credentials
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	s.cached = &c
	s.loaded = true
	return s.cached, nil
}

// Token returns the current bearer token, "" when no session exists.
func (s *Store) Token() string {
	c, err := s.Get()
	if err != nil || c == nil {
		return ""
	}
	return c.Token
}

// UserID returns the id of the logged-in user, "" when no session exists.
func (s *Store) UserID() string {
	c, err := s.Get()
	if err != nil || c == nil || c.User == nil {
		return ""
	}
	return c.User.ID
}

func (s *Store) Set(c *Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	if err := os.WriteFile(s.path, b, 0o600); err != nil {
		return err
	}
	s.cached = c
	s.loaded = true
	return nil
}

// Clear drops the cache and removes the file. Called by the API client on
// 401; missing file is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
	s.loaded = true
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// TokenValid reports whether a token is present and not past its exp claim.
// The claim is decoded without signature verification: the client only
// decides whether attempting a connection is worthwhile, the server still
// verifies.
func (s *Store) TokenValid() bool {
	tok := s.Token()
	if tok == "" {
		return false
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(tok, jwt.MapClaims{})
	if err != nil {
		return false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		// no exp claim: treat as non-expiring
		return true
	}
	return exp.After(time.Now())
}
