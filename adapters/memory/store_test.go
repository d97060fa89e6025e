package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lborres/agora/core"
)

func strPtr(s string) *string { return &s }

func seed(t *testing.T) *Store {
	t.Helper()
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, &core.User{ID: "u1", Email: "Alice@Example.com", Role: core.RoleUser}))
	require.NoError(t, s.CreateResource(ctx, &core.Resource{ID: "c1", Kind: core.KindConversation, AuthorID: "u1", Title: strPtr("hello")}))
	require.NoError(t, s.CreateResource(ctx, &core.Resource{ID: "m1", Kind: core.KindMessage, AuthorID: "u1", ConversationID: "c1", Content: strPtr("first")}))
	return s
}

func TestStore_CreateUser(t *testing.T) {
	s := seed(t)
	ctx := context.Background()

	u, err := s.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.False(t, u.CreatedAt.IsZero())

	err = s.CreateUser(ctx, &core.User{Email: "ALICE@example.com"})
	assert.ErrorIs(t, err, core.ErrUserExists)

	fresh := &core.User{Email: "bob@example.com"}
	require.NoError(t, s.CreateUser(ctx, fresh))
	assert.NotEmpty(t, fresh.ID)
	assert.Equal(t, core.RoleUser, fresh.Role)

	_, err = s.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrUserNotFound)
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := seed(t)
	ctx := context.Background()

	u, err := s.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	u.Role = core.RoleAdmin

	again, err := s.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, core.RoleUser, again.Role)
}

func TestStore_UpdateProfileAndRole(t *testing.T) {
	s := seed(t)
	ctx := context.Background()

	u, err := s.UpdateProfile(ctx, "u1", strPtr("Alice"), nil)
	require.NoError(t, err)
	assert.Equal(t, "Alice", *u.Name)
	assert.Nil(t, u.Avatar)

	u, err = s.UpdateRole(ctx, "u1", core.RoleModerator)
	require.NoError(t, err)
	assert.Equal(t, core.RoleModerator, u.Role)

	_, err = s.UpdateRole(ctx, "nobody", core.RoleAdmin)
	assert.ErrorIs(t, err, core.ErrUserNotFound)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestStore_RedeemResetToken(t *testing.T) {
	s := seed(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.SetResetToken(ctx, "u1", "hash-1", now.Add(time.Hour)))

	_, err := s.RedeemResetToken(ctx, "other", "pw", now)
	assert.ErrorIs(t, err, core.ErrInvalidResetToken)

	_, err = s.RedeemResetToken(ctx, "hash-1", "pw", now.Add(time.Hour))
	assert.ErrorIs(t, err, core.ErrInvalidResetToken, "expiry is exclusive")

	id, err := s.RedeemResetToken(ctx, "hash-1", "new-hash", now)
	require.NoError(t, err)
	assert.Equal(t, "u1", id)

	u, err := s.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "new-hash", *u.PasswordHash)
	assert.Nil(t, u.ResetPasswordToken)
	assert.Nil(t, u.ResetPasswordExpires)

	_, err = s.RedeemResetToken(ctx, "hash-1", "again", now)
	assert.ErrorIs(t, err, core.ErrInvalidResetToken)
}

func TestStore_RedeemResetToken_Concurrent(t *testing.T) {
	s := seed(t)
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, s.SetResetToken(ctx, "u1", "hash-1", now.Add(time.Hour)))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.RedeemResetToken(ctx, "hash-1", "pw", now); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestStore_Resources(t *testing.T) {
	s := seed(t)
	ctx := context.Background()

	r, err := s.UpdateResource(ctx, core.KindMessage, "m1", core.ResourceUpdate{Content: strPtr("edited")})
	require.NoError(t, err)
	assert.Equal(t, "edited", *r.Content)
	assert.Equal(t, "u1", r.AuthorID)

	_, err = s.GetResource(ctx, core.KindConversation, "m1")
	assert.ErrorIs(t, err, core.ErrNotFound, "kinds do not share ids")

	require.NoError(t, s.DeleteResource(ctx, core.KindConversation, "c1"))

	_, err = s.GetResource(ctx, core.KindConversation, "c1")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = s.GetResource(ctx, core.KindMessage, "m1")
	assert.ErrorIs(t, err, core.ErrNotFound, "messages go with their conversation")
	assert.ErrorIs(t, s.DeleteResource(ctx, core.KindConversation, "c1"), core.ErrNotFound)
	_, err = s.UpdateResource(ctx, core.KindMessage, "m1", core.ResourceUpdate{Content: strPtr("x")})
	assert.ErrorIs(t, err, core.ErrNotFound)
}
