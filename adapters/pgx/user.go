package pgx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lborres/agora/core"
)

const userColumns = `id, email, password, name, avatar, role, reset_password_token, reset_password_expires, created_at, updated_at`

func scanUser(row pgx.Row) (*core.User, error) {
	u := &core.User{}
	var role string
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Avatar, &role,
		&u.ResetPasswordToken, &u.ResetPasswordExpires, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrUserNotFound
		}
		return nil, err
	}
	u.Role = core.Role(role)
	return u, nil
}

func (a *Adapter) CreateUser(ctx context.Context, user *core.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = core.RoleUser
	}
	user.Email = core.NormalizeEmail(user.Email)

	query := `INSERT INTO public.users (id, email, password, name, avatar, role) VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at, updated_at`
	var createdAt, updatedAt time.Time

	err := a.db.QueryRow(ctx, query, user.ID, user.Email, user.PasswordHash, user.Name, user.Avatar, string(user.Role)).Scan(&createdAt, &updatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return core.ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}

	user.CreatedAt = createdAt
	user.UpdatedAt = updatedAt
	return nil
}

func (a *Adapter) GetUserByID(ctx context.Context, id string) (*core.User, error) {
	q := `SELECT ` + userColumns + ` FROM public.users WHERE id = $1`
	return scanUser(a.db.QueryRow(ctx, q, id))
}

func (a *Adapter) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	q := `SELECT ` + userColumns + ` FROM public.users WHERE email = $1`
	return scanUser(a.db.QueryRow(ctx, q, core.NormalizeEmail(email)))
}

func (a *Adapter) ListUsers(ctx context.Context) ([]*core.User, error) {
	rows, err := a.db.Query(ctx, `SELECT `+userColumns+` FROM public.users ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*core.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateProfile keeps the stored value for any nil argument.
func (a *Adapter) UpdateProfile(ctx context.Context, id string, name, avatar *string) (*core.User, error) {
	q := `UPDATE public.users SET name = COALESCE($2, name), avatar = COALESCE($3, avatar), updated_at = now()
	      WHERE id = $1 RETURNING ` + userColumns
	return scanUser(a.db.QueryRow(ctx, q, id, name, avatar))
}

func (a *Adapter) UpdateRole(ctx context.Context, id string, role core.Role) (*core.User, error) {
	q := `UPDATE public.users SET role = $2, updated_at = now() WHERE id = $1 RETURNING ` + userColumns
	return scanUser(a.db.QueryRow(ctx, q, id, string(role)))
}

func (a *Adapter) SetResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error {
	q := `UPDATE public.users SET reset_password_token = $2, reset_password_expires = $3, updated_at = now() WHERE id = $1`
	tag, err := a.db.Exec(ctx, q, id, tokenHash, expires)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrUserNotFound
	}
	return nil
}

// RedeemResetToken is a single conditional UPDATE, so two concurrent
// redemptions of one token cannot both match.
func (a *Adapter) RedeemResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (string, error) {
	q := `UPDATE public.users
	      SET password = $2, reset_password_token = NULL, reset_password_expires = NULL, updated_at = now()
	      WHERE reset_password_token = $1 AND reset_password_expires > $3
	      RETURNING id`
	var id string
	err := a.db.QueryRow(ctx, q, tokenHash, passwordHash, now).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", core.ErrInvalidResetToken
		}
		return "", fmt.Errorf("redeem reset token: %w", err)
	}
	return id, nil
}
