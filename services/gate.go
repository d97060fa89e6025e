package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lborres/agora/core"
	"github.com/lborres/agora/internal/logging"
)

func IsOwner(r *core.Resource, userID string) bool {
	return r != nil && userID != "" && r.AuthorID == userID
}

// CanEdit allows the author only. Moderators may remove content but not
// rewrite it.
func CanEdit(r *core.Resource, actor core.Identity) bool {
	return IsOwner(r, actor.ID)
}

// CanDelete allows the author and any MODERATOR or ADMIN.
func CanDelete(r *core.Resource, actor core.Identity) bool {
	return IsOwner(r, actor.ID) || actor.Role.AtLeast(core.RoleModerator)
}

// CanChangeRole allows an ADMIN to change anyone's role but their own.
func CanChangeRole(actor core.Identity, targetID string) bool {
	return actor.Role == core.RoleAdmin && actor.ID != targetID
}

// Gate enforces resource-level rules. Every check fails closed: lookup
// errors deny the action.
type Gate struct {
	users     core.UserStorage
	resources core.ResourceStorage
	log       logging.Logger
}

func NewGate(users core.UserStorage, resources core.ResourceStorage, log logging.Logger) *Gate {
	if log == nil {
		log = logging.NewNop()
	}
	return &Gate{users: users, resources: resources, log: log}
}

// current re-reads the actor from the store so role decisions use the
// role as it is now, not as it was when the session was issued.
func (g *Gate) current(ctx context.Context, actor *core.Identity) (core.Identity, error) {
	if actor == nil || actor.ID == "" {
		return core.Identity{}, core.ErrMissingSession
	}
	u, err := g.users.GetUserByID(ctx, actor.ID)
	if err != nil {
		if !errors.Is(err, core.ErrUserNotFound) {
			g.log.Error(ctx, "actor lookup failed", "user_id", actor.ID, "error", err)
		}
		return core.Identity{}, core.ErrForbidden
	}
	return u.Identity(), nil
}

func (g *Gate) lookup(ctx context.Context, kind core.ResourceKind, id string) (*core.Resource, error) {
	if !kind.Valid() || id == "" {
		return nil, core.ErrNotFound
	}
	r, err := g.resources.GetResource(ctx, kind, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.ErrNotFound
		}
		g.log.Error(ctx, "resource lookup failed", "kind", kind, "id", id, "error", err)
		return nil, core.ErrForbidden
	}
	return r, nil
}

// AuthorizeEdit returns the resource when actor may edit it.
func (g *Gate) AuthorizeEdit(ctx context.Context, actor *core.Identity, kind core.ResourceKind, id string) (*core.Resource, error) {
	if actor == nil || actor.ID == "" {
		return nil, core.ErrMissingSession
	}
	r, err := g.lookup(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if !CanEdit(r, *actor) {
		return nil, core.ErrNotOwner
	}
	return r, nil
}

// AuthorizeDelete returns the resource when actor may delete it.
func (g *Gate) AuthorizeDelete(ctx context.Context, actor *core.Identity, kind core.ResourceKind, id string) (*core.Resource, error) {
	if actor == nil || actor.ID == "" {
		return nil, core.ErrMissingSession
	}
	r, err := g.lookup(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if IsOwner(r, actor.ID) {
		return r, nil
	}

	cur, err := g.current(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !CanDelete(r, cur) {
		return nil, core.ErrDeleteForbidden
	}
	return r, nil
}

// EditResource applies update after the edit check. Content is trimmed
// and may not be blank.
func (g *Gate) EditResource(ctx context.Context, actor *core.Identity, kind core.ResourceKind, id string, update core.ResourceUpdate) (*core.Resource, error) {
	if _, err := g.AuthorizeEdit(ctx, actor, kind, id); err != nil {
		return nil, err
	}

	update, err := normalizeUpdate(kind, update)
	if err != nil {
		return nil, err
	}

	r, err := g.resources.UpdateResource(ctx, kind, id, update)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update %s: %w", kind, err)
	}
	g.log.Info(ctx, "resource edited", "kind", kind, "id", id, "user_id", actor.ID)
	return r, nil
}

func normalizeUpdate(kind core.ResourceKind, update core.ResourceUpdate) (core.ResourceUpdate, error) {
	trim := func(p *string) (*string, bool) {
		if p == nil {
			return nil, true
		}
		v := strings.TrimSpace(*p)
		return &v, v != ""
	}

	var ok bool
	if update.Content, ok = trim(update.Content); !ok {
		return update, core.ErrContentRequired
	}
	if update.Title, ok = trim(update.Title); !ok {
		return update, core.ErrContentRequired
	}
	if kind == core.KindMessage && update.Content == nil {
		return update, core.ErrContentRequired
	}
	if update.Empty() {
		return update, core.ErrContentRequired
	}
	return update, nil
}

// DeleteResource removes the resource after the delete check.
func (g *Gate) DeleteResource(ctx context.Context, actor *core.Identity, kind core.ResourceKind, id string) error {
	if _, err := g.AuthorizeDelete(ctx, actor, kind, id); err != nil {
		return err
	}
	if err := g.resources.DeleteResource(ctx, kind, id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.ErrNotFound
		}
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}
	g.log.Info(ctx, "resource deleted", "kind", kind, "id", id, "user_id", actor.ID)
	return nil
}

// RequireAdmin succeeds only when the actor is currently an ADMIN.
func (g *Gate) RequireAdmin(ctx context.Context, actor *core.Identity) error {
	if actor == nil || actor.ID == "" {
		return core.ErrMissingSession
	}
	cur, err := g.current(ctx, actor)
	if err != nil {
		return err
	}
	if cur.Role != core.RoleAdmin {
		return core.ErrAdminRequired
	}
	return nil
}

// ChangeRole sets targetID's role. The caller's permission is checked
// before the target is looked up so non-admins learn nothing about it.
func (g *Gate) ChangeRole(ctx context.Context, actor *core.Identity, targetID, role string) (*core.User, error) {
	if err := g.RequireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	if !CanChangeRole(core.Identity{ID: actor.ID, Role: core.RoleAdmin}, targetID) {
		return nil, core.ErrSelfRoleChange
	}

	newRole, err := core.ParseRole(role)
	if err != nil {
		return nil, err
	}

	updated, err := g.users.UpdateRole(ctx, targetID, newRole)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	g.log.Info(ctx, "role changed", "user_id", targetID, "role", newRole, "by", actor.ID)
	return updated, nil
}

// ListUsers returns every account. ADMIN only.
func (g *Gate) ListUsers(ctx context.Context, actor *core.Identity) ([]*core.User, error) {
	if err := g.RequireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	users, err := g.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Profile returns what anyone may see about a member.
func (g *Gate) Profile(ctx context.Context, id string) (*core.PublicProfile, error) {
	if id == "" {
		return nil, core.ErrNotFound
	}
	u, err := g.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	p := u.PublicProfile()
	return &p, nil
}
