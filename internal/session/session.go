// Package session holds the signed-in state of the client. The token and
// user are passed explicitly to the HTTP client instead of living in
// ambient storage, and are always saved and cleared together.
package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Moriarty1227/YIR-ApprovalHub/internal/domain/entity"
	"go.uber.org/zap"
)

// Storage keys, shared by every store implementation
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// ErrNoSession is returned by stores that hold no saved session
var ErrNoSession = errors.New("no saved session")

// State is the persisted session
type State struct {
	Token string       `json:"token"`
	User  *entity.User `json:"user,omitempty"`
}

// Store persists the session between runs
type Store interface {
	Load() (*State, error)
	Save(state *State) error
	Clear() error
}

// Session is the client's view of who is signed in
type Session struct {
	mu     sync.RWMutex
	state  State
	store  Store
	logger *zap.Logger
}

// New creates a session backed by store
func New(store Store, logger *zap.Logger) *Session {
	return &Session{store: store, logger: logger}
}

// Load restores the saved session. A missing session is not an error.
func (s *Session) Load() error {
	state, err := s.store.Load()
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	s.mu.Lock()
	s.state = *state
	s.mu.Unlock()

	s.logger.Debug("Session restored", zap.Bool("has_token", state.Token != ""))
	return nil
}

// Token returns the bearer token, empty when signed out
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// User returns the signed-in user, nil when signed out
func (s *Session) User() *entity.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.User == nil {
		return nil
	}
	u := *s.state.User
	return &u
}

// Authenticated reports whether a token is held
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Set stores a new token and user
func (s *Session) Set(token string, user *entity.User) error {
	state := State{Token: token, User: user}
	if err := s.store.Save(&state); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	return nil
}

// Clear drops token and user in memory and in the store
func (s *Session) Clear() error {
	s.mu.Lock()
	s.state = State{}
	s.mu.Unlock()

	if err := s.store.Clear(); err != nil {
		s.logger.Warn("Failed to clear stored session", zap.Error(err))
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// MemoryStore keeps the session for the lifetime of the process only
type MemoryStore struct {
	mu    sync.Mutex
	state *State
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load() (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return nil, ErrNoSession
	}
	cp := *m.state
	return &cp, nil
}

func (m *MemoryStore) Save(state *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *state
	m.state = &cp
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = nil
	return nil
}
