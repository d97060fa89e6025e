package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lborres/agora/core"
	"github.com/lborres/agora/pkg/crypto"
)

// FakeUserStorage is a test-only core.UserStorage keyed by id. Error fields
// inject failures.
type FakeUserStorage struct {
	mu    sync.Mutex
	users map[string]*core.User

	getErr    error
	createErr error
	updateErr error
	setErr    error
	redeemErr error

	createCalls int
}

func NewFakeUserStorage(users ...*core.User) *FakeUserStorage {
	f := &FakeUserStorage{users: make(map[string]*core.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func clone(u *core.User) *core.User {
	c := *u
	return &c
}

func (f *FakeUserStorage) CreateUser(_ context.Context, u *core.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return core.ErrUserExists
		}
	}
	f.users[u.ID] = clone(u)
	return nil
}

func (f *FakeUserStorage) GetUserByID(_ context.Context, id string) (*core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	return clone(u), nil
}

func (f *FakeUserStorage) GetUserByEmail(_ context.Context, email string) (*core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.users {
		if u.Email == email {
			return clone(u), nil
		}
	}
	return nil, core.ErrUserNotFound
}

func (f *FakeUserStorage) ListUsers(_ context.Context) ([]*core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	out := make([]*core.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, clone(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *FakeUserStorage) UpdateProfile(_ context.Context, id string, name, avatar *string) (*core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	if name != nil {
		u.Name = name
	}
	if avatar != nil {
		u.Avatar = avatar
	}
	return clone(u), nil
}

func (f *FakeUserStorage) UpdateRole(_ context.Context, id string, role core.Role) (*core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	u.Role = role
	return clone(u), nil
}

func (f *FakeUserStorage) SetResetToken(_ context.Context, id, tokenHash string, expires time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	u, ok := f.users[id]
	if !ok {
		return core.ErrUserNotFound
	}
	u.ResetPasswordToken = &tokenHash
	u.ResetPasswordExpires = &expires
	return nil
}

func (f *FakeUserStorage) RedeemResetToken(_ context.Context, tokenHash, passwordHash string, now time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.redeemErr != nil {
		return "", f.redeemErr
	}
	for _, u := range f.users {
		if u.ResetPasswordToken != nil && *u.ResetPasswordToken == tokenHash &&
			u.ResetPasswordExpires != nil && now.Before(*u.ResetPasswordExpires) {
			u.PasswordHash = &passwordHash
			u.ResetPasswordToken = nil
			u.ResetPasswordExpires = nil
			return u.ID, nil
		}
	}
	return "", core.ErrInvalidResetToken
}

func (f *FakeUserStorage) get(id string) *core.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil
	}
	return clone(u)
}

func (f *FakeUserStorage) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users)
}

// FakeResourceStorage is a test-only core.ResourceStorage.
type FakeResourceStorage struct {
	mu        sync.Mutex
	resources map[string]*core.Resource
	getErr    error
}

func NewFakeResourceStorage(resources ...*core.Resource) *FakeResourceStorage {
	f := &FakeResourceStorage{resources: make(map[string]*core.Resource)}
	for _, r := range resources {
		f.resources[string(r.Kind)+"/"+r.ID] = r
	}
	return f
}

func (f *FakeResourceStorage) GetResource(_ context.Context, kind core.ResourceKind, id string) (*core.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	r, ok := f.resources[string(kind)+"/"+id]
	if !ok {
		return nil, core.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (f *FakeResourceStorage) UpdateResource(_ context.Context, kind core.ResourceKind, id string, update core.ResourceUpdate) (*core.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.resources[string(kind)+"/"+id]
	if !ok {
		return nil, core.ErrNotFound
	}
	if update.Title != nil {
		r.Title = update.Title
	}
	if update.Content != nil {
		r.Content = update.Content
	}
	c := *r
	return &c, nil
}

func (f *FakeResourceStorage) DeleteResource(_ context.Context, kind core.ResourceKind, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := string(kind) + "/" + id
	if _, ok := f.resources[key]; !ok {
		return core.ErrNotFound
	}
	delete(f.resources, key)
	return nil
}

func (f *FakeResourceStorage) exists(kind core.ResourceKind, id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.resources[string(kind)+"/"+id]
	return ok
}

// FakeMailer records reset links.
type FakeMailer struct {
	mu    sync.Mutex
	sent  []string
	links []string
	err   error
}

func (m *FakeMailer) SendPasswordReset(_ context.Context, to, resetURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to)
	m.links = append(m.links, resetURL)
	return m.err
}

// FakeRevocationCache is a map-backed core.RevocationCache.
type FakeRevocationCache struct {
	mu      sync.Mutex
	cutoffs map[string]time.Time
	setErr  error
}

func NewFakeRevocationCache() *FakeRevocationCache {
	return &FakeRevocationCache{cutoffs: make(map[string]time.Time)}
}

func (c *FakeRevocationCache) Get(userID string) (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.cutoffs[userID]
	if !ok {
		return time.Time{}, core.ErrCacheNotFound
	}
	return t, nil
}

func (c *FakeRevocationCache) Set(userID string, cutoff time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.cutoffs[userID] = cutoff
	return nil
}

func (c *FakeRevocationCache) Delete(userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cutoffs, userID)
	return nil
}

func (c *FakeRevocationCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cutoffs = make(map[string]time.Time)
	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

const testSecret = "test-secret-that-is-at-least-32-bytes-long"

// testHasher is bcrypt at minimum cost.
func testHasher() crypto.PasswordHandler {
	return crypto.NewBcrypt(4)
}

func mustHash(t interface{ Fatalf(string, ...any) }, password string) *string {
	h, err := testHasher().Hash(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &h
}

func strPtr(s string) *string { return &s }

func newUser(id, email string, role core.Role, passwordHash *string) *core.User {
	return &core.User{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}
