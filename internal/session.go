package internal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// SessionTokenKey is the state key the session token is persisted under
const SessionTokenKey = "sid"

// SessionToken is the opaque per-installation identifier sent as X-Session-Id
type SessionToken string

func (t SessionToken) String() string {
	return string(t)
}

// TokenStore persists client key/value state
type TokenStore interface {
	Load(ctx context.Context, key string) (value string, ok bool, err error)
	// StoreIfAbsent writes value unless a non-blank value already exists and
	// returns whichever value is stored afterwards.
	StoreIfAbsent(ctx context.Context, key, value string) (string, error)
}

// SessionIdentity produces the durable session token for this client
type SessionIdentity struct {
	store    TokenStore
	newToken func() (SessionToken, error)

	mu    sync.Mutex
	token SessionToken
}

// NewSessionIdentity creates an identity backed by store
func NewSessionIdentity(store TokenStore) *SessionIdentity {
	return &SessionIdentity{
		store:    store,
		newToken: GenerateToken,
	}
}

// GetOrCreateToken returns the persisted token, creating and persisting a new
// one on first use. Any storage failure is returned as a *StorageError.
func (s *SessionIdentity) GetOrCreateToken(ctx context.Context) (SessionToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" {
		return s.token, nil
	}

	if s.store == nil {
		return "", &StorageError{Op: "open", Err: errors.New("no token store configured")}
	}

	value, ok, err := s.store.Load(ctx, SessionTokenKey)
	if err != nil {
		return "", asStorageError("read", err)
	}
	if ok && strings.TrimSpace(value) != "" {
		s.token = SessionToken(value)
		LogDebug("Loaded existing session token")
		return s.token, nil
	}

	token, err := s.newToken()
	if err != nil {
		return "", err
	}

	stored, err := s.store.StoreIfAbsent(ctx, SessionTokenKey, string(token))
	if err != nil {
		return "", asStorageError("write", err)
	}

	s.token = SessionToken(stored)
	LogInfo("Created new session token")
	return s.token, nil
}

// GenerateToken returns a new cryptographically random token
func GenerateToken() (SessionToken, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return SessionToken(id.String()), nil
}

func asStorageError(op string, err error) error {
	var storageErr *StorageError
	if errors.As(err, &storageErr) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// MemoryTokenStore keeps state for the lifetime of the process only
type MemoryTokenStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryTokenStore creates an empty in-memory store
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{values: make(map[string]string)}
}

// Load returns the value stored under key
func (m *MemoryTokenStore) Load(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[key]
	return value, ok, nil
}

// StoreIfAbsent writes value unless a non-blank value is already stored
func (m *MemoryTokenStore) StoreIfAbsent(_ context.Context, key, value string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.values[key]; ok && strings.TrimSpace(existing) != "" {
		return existing, nil
	}
	m.values[key] = value
	return value, nil
}
