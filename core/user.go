package core

import (
	"fmt"
	"strings"
	"time"
)

// Role is the authorization level of a forum member.
type Role string

const (
	RoleUser      Role = "USER"
	RoleModerator Role = "MODERATOR"
	RoleAdmin     Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// Rank orders roles USER < MODERATOR < ADMIN. Unknown roles rank below USER.
func (r Role) Rank() int {
	switch r {
	case RoleUser:
		return 1
	case RoleModerator:
		return 2
	case RoleAdmin:
		return 3
	}
	return 0
}

// AtLeast reports whether r ranks at or above min.
func (r Role) AtLeast(min Role) bool {
	return r.Valid() && r.Rank() >= min.Rank()
}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// User represents a forum account as held by the user store
//
// PasswordHash and the reset fields never leave the server.
type User struct {
	ID                   string     `json:"id"`
	Email                string     `json:"email"`
	PasswordHash         *string    `json:"-"`
	Name                 *string    `json:"name,omitempty"`
	Avatar               *string    `json:"avatar,omitempty"`
	Role                 Role       `json:"role"`
	ResetPasswordToken   *string    `json:"-"` // sha256 of the token sent by mail
	ResetPasswordExpires *time.Time `json:"-"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// Identity strips the user down to the fields a session may carry.
func (u *User) Identity() Identity {
	id := Identity{
		ID:    u.ID,
		Email: u.Email,
		Role:  u.Role,
	}
	if u.Name != nil {
		id.Name = *u.Name
	}
	return id
}

// HasPendingReset reports whether a reset token is outstanding at now.
func (u *User) HasPendingReset(now time.Time) bool {
	return u.ResetPasswordToken != nil &&
		u.ResetPasswordExpires != nil &&
		now.Before(*u.ResetPasswordExpires)
}

// PublicProfile is what anyone may see about a member.
type PublicProfile struct {
	ID        string    `json:"id"`
	Name      *string   `json:"name,omitempty"`
	Avatar    *string   `json:"avatar,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u *User) PublicProfile() PublicProfile {
	return PublicProfile{
		ID:        u.ID,
		Name:      u.Name,
		Avatar:    u.Avatar,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// NormalizeEmail lowercases and trims an address. All lookups go through it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
