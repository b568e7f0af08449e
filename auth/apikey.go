package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// DefaultAPIKeyHeader carries API keys.
const DefaultAPIKeyHeader = "X-API-Key"

// APIKey is a registered key. The raw key is never kept, only its hash.
type APIKey struct {
	// ID becomes the principal of requests made with the key.
	ID string

	// Hash is HashAPIKey of the raw key.
	Hash string

	Roles []string

	// ExpiresAt is zero for keys that never expire.
	ExpiresAt time.Time
}

// APIKeyStore finds keys by hash. An unknown hash yields (nil, nil).
type APIKeyStore interface {
	Lookup(ctx context.Context, hash string) (*APIKey, error)
}

// HashAPIKey returns the hex SHA-256 digest under which a key is stored.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// APIKeyAuthenticator accepts requests carrying a known API key.
type APIKeyAuthenticator struct {
	header string
	store  APIKeyStore
}

// NewAPIKeyAuthenticator reads keys from header, or DefaultAPIKeyHeader
// when header is empty.
func NewAPIKeyAuthenticator(header string, store APIKeyStore) *APIKeyAuthenticator {
	if header == "" {
		header = DefaultAPIKeyHeader
	}
	return &APIKeyAuthenticator{header: header, store: store}
}

func (a *APIKeyAuthenticator) Name() string { return string(MethodAPIKey) }

func (a *APIKeyAuthenticator) Supports(headers http.Header) bool {
	return headers.Get(a.header) != ""
}

// Authenticate resolves the key to an identity. Store failures are
// returned as errors; unknown and expired keys as failed results.
func (a *APIKeyAuthenticator) Authenticate(ctx context.Context, headers http.Header) (*Result, error) {
	raw := strings.TrimSpace(headers.Get(a.header))
	if raw == "" {
		return Failure(ErrMissingCredentials), nil
	}

	key, err := a.store.Lookup(ctx, HashAPIKey(raw))
	switch {
	case err != nil:
		return nil, err
	case key == nil:
		return Failure(ErrInvalidCredentials), nil
	}

	id := &Identity{Principal: key.ID, Roles: key.Roles, Method: MethodAPIKey, ExpiresAt: key.ExpiresAt}
	if id.IsExpired() {
		return Failure(fmt.Errorf("%w: api key %s", ErrTokenExpired, key.ID)), nil
	}
	return Success(id), nil
}

// MemoryAPIKeyStore holds keys loaded from configuration.
type MemoryAPIKeyStore struct {
	mu     sync.RWMutex
	byHash map[string]APIKey
	ids    map[string]struct{}
}

func NewMemoryAPIKeyStore() *MemoryAPIKeyStore {
	return &MemoryAPIKeyStore{byHash: make(map[string]APIKey), ids: make(map[string]struct{})}
}

// Add registers k. IDs and hashes must both be unique.
func (s *MemoryAPIKeyStore) Add(k APIKey) error {
	if k.ID == "" || k.Hash == "" {
		return fmt.Errorf("%w: id and hash are required", ErrInvalidAPIKey)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.ids[k.ID]; dup {
		return fmt.Errorf("%w: id %q", ErrDuplicateAPIKey, k.ID)
	}
	if _, dup := s.byHash[k.Hash]; dup {
		return fmt.Errorf("%w: %q reuses another key", ErrDuplicateAPIKey, k.ID)
	}
	s.byHash[k.Hash] = k
	s.ids[k.ID] = struct{}{}
	return nil
}

// Lookup returns a copy of the key stored under hash.
func (s *MemoryAPIKeyStore) Lookup(_ context.Context, hash string) (*APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.byHash[hash]
	if !ok {
		return nil, nil
	}
	return &k, nil
}

// Len reports how many keys are registered.
func (s *MemoryAPIKeyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byHash)
}

var (
	_ Authenticator = (*APIKeyAuthenticator)(nil)
	_ APIKeyStore   = (*MemoryAPIKeyStore)(nil)
)
