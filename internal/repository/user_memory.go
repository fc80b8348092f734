package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/iliyamo/account-service/internal/model"
)

// MemoryUserStore keeps users in a map. It backs tests and STORE_DRIVER=memory.
// Email uniqueness is enforced under the same lock as the insert.
type MemoryUserStore struct {
	mu      sync.RWMutex
	byID    map[string]model.User
	byEmail map[string]string // email -> id
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byID:    make(map[string]model.User),
		byEmail: make(map[string]string),
	}
}

func (s *MemoryUserStore) ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (s *MemoryUserStore) Insert(_ context.Context, u model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[u.Email]; taken {
		return model.User{}, ErrEmailExists
	}
	u.ID = uuid.NewString()
	s.byID[u.ID] = u
	s.byEmail[u.Email] = u.ID
	return u, nil
}

func (s *MemoryUserStore) GetByID(_ context.Context, id string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryUserStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return s.byID[id], nil
}

func (s *MemoryUserStore) Update(_ context.Context, id string, upd UserUpdate) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	oldEmail := u.Email
	if upd.Email != nil && *upd.Email != oldEmail {
		if _, taken := s.byEmail[*upd.Email]; taken {
			return model.User{}, ErrEmailExists
		}
	}
	upd.apply(&u)
	if u.Email != oldEmail {
		delete(s.byEmail, oldEmail)
		s.byEmail[u.Email] = id
	}
	s.byID[id] = u
	return u, nil
}

func (s *MemoryUserStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return false, nil
	}
	delete(s.byID, id)
	delete(s.byEmail, u.Email)
	return true, nil
}

func (s *MemoryUserStore) List(_ context.Context, skip, limit int) ([]model.User, error) {
	s.mu.RLock()
	all := make([]model.User, 0, len(s.byID))
	for _, u := range s.byID {
		all = append(all, u)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	if skip >= len(all) {
		return []model.User{}, nil
	}
	all = all[skip:]
	if limit >= 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *MemoryUserStore) Count(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.byID)), nil
}

func (s *MemoryUserStore) Ping(context.Context) error { return nil }
