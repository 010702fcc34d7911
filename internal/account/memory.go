package account

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"safetrack.org/internal/auth"
	"safetrack.org/internal/ids"
)

// InMemory implements Store with in-process concurrency safety.
type InMemory struct {
	mu   sync.RWMutex
	byID map[string]*User
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty account store.
func NewInMemory() *InMemory {
	return &InMemory{byID: make(map[string]*User)}
}

func (s *InMemory) Create(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range s.byID {
		if existing.Email == email {
			return ErrEmailTaken
		}
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	u.Email = email
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = u.CreatedAt
	cp := cloneUser(*u)
	s.byID[u.ID] = &cp
	return nil
}

func (s *InMemory) Find(ctx context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return cloneUser(*u), nil
}

func (s *InMemory) FindByEmail(ctx context.Context, email string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.byID {
		if u.Email == email {
			return cloneUser(*u), nil
		}
	}
	return User{}, ErrNotFound
}

func (s *InMemory) List(ctx context.Context, limit, offset int) ([]User, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]User, 0, len(s.byID))
	for _, u := range s.byID {
		all = append(all, cloneUser(*u))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := len(all)
	if offset >= len(all) {
		return []User{}, total, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

func (s *InMemory) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (User, error) {
	return s.mutate(id, func(u *User) {
		if upd.DisplayName != nil {
			u.DisplayName = strings.TrimSpace(*upd.DisplayName)
		}
	})
}

func (s *InMemory) SetRole(ctx context.Context, id string, role auth.Role) (User, error) {
	return s.mutate(id, func(u *User) { u.Role = role })
}

func (s *InMemory) SetStatus(ctx context.Context, id string, status Status) (User, error) {
	return s.mutate(id, func(u *User) { u.Status = status })
}

func (s *InMemory) SetClaims(ctx context.Context, id string, claims map[string]any) (User, error) {
	return s.mutate(id, func(u *User) {
		cp := make(map[string]any, len(claims))
		for k, v := range claims {
			cp[k] = v
		}
		u.CustomClaims = cp
	})
}

func (s *InMemory) SetPassword(ctx context.Context, id, hash string) error {
	_, err := s.mutate(id, func(u *User) { u.PasswordHash = hash })
	return err
}

func (s *InMemory) BumpTokenVersion(ctx context.Context, id string) (int, error) {
	u, err := s.mutate(id, func(u *User) { u.TokenVersion++ })
	if err != nil {
		return 0, err
	}
	return u.TokenVersion, nil
}

func (s *InMemory) RecordLogin(ctx context.Context, id string, at time.Time) error {
	_, err := s.mutate(id, func(u *User) {
		at := at.UTC()
		u.LastLoginAt = &at
	})
	return err
}

func (s *InMemory) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *InMemory) mutate(id string, fn func(*User)) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	fn(u)
	u.UpdatedAt = time.Now().UTC()
	return cloneUser(*u), nil
}

func cloneUser(u User) User {
	out := u
	if u.Permissions != nil {
		out.Permissions = make(map[string]bool, len(u.Permissions))
		for k, v := range u.Permissions {
			out.Permissions[k] = v
		}
	}
	if u.CustomClaims != nil {
		out.CustomClaims = make(map[string]any, len(u.CustomClaims))
		for k, v := range u.CustomClaims {
			out.CustomClaims[k] = v
		}
	}
	if u.LastLoginAt != nil {
		at := *u.LastLoginAt
		out.LastLoginAt = &at
	}
	return out
}
