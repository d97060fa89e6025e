// Package memory is an in-process storage adapter. It backs local
// development without a database and the HTTP adapter tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lborres/agora/core"
)

type Store struct {
	mu        sync.RWMutex
	users     map[string]*core.User
	byEmail   map[string]string
	resources map[resourceKey]*record
	now       func() time.Time
}

type resourceKey struct {
	kind core.ResourceKind
	id   string
}

type record struct {
	core.Resource
	deletedAt *time.Time
}

var _ core.StorageAdapter = (*Store)(nil)

func New() *Store {
	return &Store{
		users:     make(map[string]*core.User),
		byEmail:   make(map[string]string),
		resources: make(map[resourceKey]*record),
		now:       time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func copyUser(u *core.User) *core.User {
	c := *u
	return &c
}

func (s *Store) CreateUser(_ context.Context, u *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := core.NormalizeEmail(u.Email)
	if _, taken := s.byEmail[email]; taken {
		return core.ErrUserExists
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if _, taken := s.users[u.ID]; taken {
		return core.ErrUserExists
	}

	now := s.now()
	u.Email = email
	if u.Role == "" {
		u.Role = core.RoleUser
	}
	u.CreatedAt, u.UpdatedAt = now, now

	s.users[u.ID] = copyUser(u)
	s.byEmail[email] = u.ID
	return nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	return copyUser(u), nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[core.NormalizeEmail(email)]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	return copyUser(s.users[id]), nil
}

// ListUsers returns every account, newest first.
func (s *Store) ListUsers(_ context.Context) ([]*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*core.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, copyUser(u))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpdateProfile(_ context.Context, id string, name, avatar *string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	if name != nil {
		u.Name = name
	}
	if avatar != nil {
		u.Avatar = avatar
	}
	u.UpdatedAt = s.now()
	return copyUser(u), nil
}

func (s *Store) UpdateRole(_ context.Context, id string, role core.Role) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	u.Role = role
	u.UpdatedAt = s.now()
	return copyUser(u), nil
}

func (s *Store) SetResetToken(_ context.Context, id, tokenHash string, expires time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.ErrUserNotFound
	}
	u.ResetPasswordToken = &tokenHash
	u.ResetPasswordExpires = &expires
	u.UpdatedAt = s.now()
	return nil
}

// RedeemResetToken matches, writes and clears under one lock.
func (s *Store) RedeemResetToken(_ context.Context, tokenHash, passwordHash string, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ResetPasswordToken == nil || *u.ResetPasswordToken != tokenHash {
			continue
		}
		if !u.HasPendingReset(now) {
			return "", core.ErrInvalidResetToken
		}
		u.PasswordHash = &passwordHash
		u.ResetPasswordToken = nil
		u.ResetPasswordExpires = nil
		u.UpdatedAt = s.now()
		return u.ID, nil
	}
	return "", core.ErrInvalidResetToken
}

// CreateResource stores a conversation or message. It is not part of the
// gate's port; handlers outside this module create content.
func (s *Store) CreateResource(_ context.Context, r *core.Resource) error {
	if !r.Kind.Valid() {
		return core.ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := s.now()
	r.CreatedAt, r.UpdatedAt = now, now
	s.resources[resourceKey{r.Kind, r.ID}] = &record{Resource: *r}
	return nil
}

func (s *Store) live(kind core.ResourceKind, id string) (*record, bool) {
	rec, ok := s.resources[resourceKey{kind, id}]
	if !ok || rec.deletedAt != nil {
		return nil, false
	}
	return rec, true
}

func (s *Store) GetResource(_ context.Context, kind core.ResourceKind, id string) (*core.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.live(kind, id)
	if !ok {
		return nil, core.ErrNotFound
	}
	r := rec.Resource
	return &r, nil
}

func (s *Store) UpdateResource(_ context.Context, kind core.ResourceKind, id string, update core.ResourceUpdate) (*core.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.live(kind, id)
	if !ok {
		return nil, core.ErrNotFound
	}
	if update.Title != nil {
		title := *update.Title
		rec.Title = &title
	}
	if update.Content != nil {
		content := *update.Content
		rec.Content = &content
	}
	rec.UpdatedAt = s.now()
	r := rec.Resource
	return &r, nil
}

// DeleteResource marks the resource deleted. Deleting a conversation also
// hides its messages.
func (s *Store) DeleteResource(_ context.Context, kind core.ResourceKind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.live(kind, id)
	if !ok {
		return core.ErrNotFound
	}
	now := s.now()
	rec.deletedAt = &now
	if kind == core.KindConversation {
		for _, child := range s.resources {
			if child.Kind == core.KindMessage && child.ConversationID == id && child.deletedAt == nil {
				child.deletedAt = &now
			}
		}
	}
	return nil
}
