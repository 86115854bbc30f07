package auth

import (
	"context"
	"sync"
)

// MemoryIdentityStore is an in-process identity store for development and
// tests. Subject ids are assigned sequentially starting at 1.
type MemoryIdentityStore struct {
	mu     sync.RWMutex
	nextID int64
	users  map[string]IdentityRecord
}

// NewMemoryIdentityStore creates an empty store
func NewMemoryIdentityStore() *MemoryIdentityStore {
	return &MemoryIdentityStore{
		users: make(map[string]IdentityRecord),
	}
}

// FindByUsername implements IdentityStore
func (m *MemoryIdentityStore) FindByUsername(ctx context.Context, username string) (*IdentityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.users[username]
	if !ok {
		return nil, ErrIdentityNotFound
	}

	record.Roles = append([]string(nil), record.Roles...)
	return &record, nil
}

// CreateIdentity implements IdentityWriter
func (m *MemoryIdentityStore) CreateIdentity(ctx context.Context, record *IdentityRecord) (*IdentityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[record.Username]; exists {
		return nil, ErrUsernameTaken
	}

	m.nextID++
	stored := *record
	stored.SubjectID = m.nextID
	stored.Roles = NormalizeRoles(record.Roles...)
	m.users[stored.Username] = stored

	out := stored
	out.Roles = append([]string(nil), stored.Roles...)
	return &out, nil
}
