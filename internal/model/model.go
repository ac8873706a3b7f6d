// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// LoginField selects which user attribute identifies an account at login.
type LoginField string

const (
	LoginByEmail    LoginField = "email"
	LoginByUsername LoginField = "username"
)

// User represents an account stored on the server. The raw password is never stored.
type User struct {
	ID           uuid.UUID // PK
	Name         string    // display name
	Username     string    // unique when set
	Email        string    // unique when set
	PwdHash      []byte    // Argon2id(password, SaltAuth)
	SaltAuth     []byte    // per-user auth salt
	RefreshToken *string   // reserved, never written
	CreatedAt    time.Time
}

// Identity is the caller resolved from a verified bearer token.
type Identity struct {
	UserID   uuid.UUID
	Email    string
	Username string
}

// Session is the result of a successful register or login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      User
}

// Note is a single text note owned by exactly one user.
type Note struct {
	ID        uuid.UUID
	UserID    uuid.UUID // FK -> users.id, immutable
	Title     string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NotePatch carries the fields a client explicitly supplied on update.
// A nil field is left untouched.
type NotePatch struct {
	Title   *string
	Content *string
}

// Empty reports whether the patch changes nothing.
func (p NotePatch) Empty() bool { return p.Title == nil && p.Content == nil }

// Registration is the input of account creation.
type Registration struct {
	Name     string
	Username string
	Email    string
	Password string
}
