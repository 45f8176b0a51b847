package sessionstore

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleUser is the default role assigned on creation
	RoleUser UserRole = "user"
	// RoleAdmin is an administrative role
	RoleAdmin UserRole = "admin"
)

// UserStatus is the user's lifecycle status
type UserStatus = string

const (
	// UserStatusActive users can authenticate
	UserStatusActive UserStatus = "active"
	// UserStatusInactive users are rejected at reconciliation
	UserStatusInactive UserStatus = "inactive"
)

// User is the user model
type User struct {
	bun.BaseModel    `bun:"table:users,alias:usr"`
	ID               uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username         string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email            string     `bun:"email,unique,nullzero" json:"email,omitempty"`
	Name             string     `bun:"name" json:"name,omitempty"`
	Source           string     `bun:"source" json:"source,omitempty"`
	Role             UserRole   `bun:"role,notnull" json:"role,omitempty"`
	Status           UserStatus `bun:"status,notnull" json:"status,omitempty"`
	PasswordHash     string     `bun:"password_hash" json:"-"`
	Salt             string     `bun:"salt" json:"-"`
	ProfileImageURL  string     `bun:"profile_image_url" json:"profile_image_url,omitempty"`
	RequiresPassword bool       `bun:"requires_password" json:"requires_password"`
	RequiresEmail    bool       `bun:"requires_email" json:"requires_email"`
	CreatedAt        *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt        *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// IsActive reports whether the user can authenticate
func (u *User) IsActive() bool {
	return u != nil && u.Status == UserStatusActive
}

// EnsureStatus defaults the status for new records
func (u *User) EnsureStatus() {
	if u.Status == "" {
		u.Status = UserStatusActive
	}
}

// Session is the session model. A session with no user is incomplete and is
// never a valid credential.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:ses"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Token         string     `bun:"token,notnull,unique" json:"token,omitempty"`
	Verifier      string     `bun:"verifier" json:"verifier,omitempty"`
	Provider      string     `bun:"provider,nullzero" json:"provider,omitempty"`
	UserID        *uuid.UUID `bun:"user_id,type:uuid" json:"user_id,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// HasUser reports whether the session resolved to a valid owning user
func (s *Session) HasUser() bool {
	return s != nil && s.UserID != nil && s.User != nil
}
