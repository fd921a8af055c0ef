package session

import (
	"context"
	"errors"
	"sync"

	"github.com/jask/receiptdesk/internal/secrets"
	"github.com/jask/receiptdesk/internal/storage"
)

// TokenKey is the single key the client persists.
const TokenKey = "token"

// Store persists the credential between runs. Load returns "" when nothing
// is stored.
type Store interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Delete(ctx context.Context) error
}

// MemoryStore keeps the token for the life of the process only.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

func (m *MemoryStore) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryStore) Save(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStore) Delete(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

// KVStore seals the token and keeps it under TokenKey in the local store.
type KVStore struct {
	KV     *storage.Store
	Sealer *secrets.Sealer
}

func (s *KVStore) Load(ctx context.Context) (string, error) {
	sealed, err := s.KV.Get(ctx, TokenKey)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return s.Sealer.Open(sealed)
}

func (s *KVStore) Save(ctx context.Context, token string) error {
	sealed, err := s.Sealer.Seal(token)
	if err != nil {
		return err
	}
	return s.KV.Set(ctx, TokenKey, sealed)
}

func (s *KVStore) Delete(ctx context.Context) error {
	return s.KV.Delete(ctx, TokenKey)
}
