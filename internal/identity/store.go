package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/opsdesk/incident-desk/internal/domain"
	"github.com/opsdesk/incident-desk/internal/kv"
	"github.com/opsdesk/incident-desk/internal/pkg/ctxlog"
)

// Store holds registered users in memory and persists them as a snapshot in
// the KV store.
type Store struct {
	mu    sync.RWMutex
	users map[string]domain.User // keyed by username
	kv    kv.Store
	key   string
}

// OpenStore loads the users snapshot from the KV store. A missing or
// unparseable snapshot starts empty.
func OpenStore(ctx context.Context, kvStore kv.Store) (*Store, error) {
	s := &Store{
		users: make(map[string]domain.User),
		kv:    kvStore,
		key:   kv.KeyUsers,
	}

	data, err := kvStore.Load(ctx, s.key)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	if err := json.Unmarshal(data, &s.users); err != nil {
		ctxlog.FromContext(ctx).Warn("users snapshot unreadable, starting empty", "error", err)
		s.users = make(map[string]domain.User)
	}
	return s, nil
}

// Get returns a user by username.
func (s *Store) Get(username string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[username]
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return user, nil
}

// List returns all users.
func (s *Store) List() []domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out
}

// Put inserts or replaces a user and persists the snapshot.
func (s *Store) Put(ctx context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[user.Username] = user
	return s.persistLocked(ctx)
}

// Delete removes a user and persists the snapshot.
func (s *Store) Delete(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; !ok {
		return ErrUserNotFound
	}
	delete(s.users, username)
	return s.persistLocked(ctx)
}

func (s *Store) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(s.users)
	if err != nil {
		return fmt.Errorf("marshal users: %w", err)
	}
	if err := s.kv.Save(ctx, s.key, data); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	return nil
}
