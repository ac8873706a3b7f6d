// Package service contains application services for authentication and notes.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/gofrs/uuid/v5"

	pkgcrypto "github.com/and161185/notekeeper/internal/crypto"
	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/limiter"
	"github.com/and161185/notekeeper/internal/model"
	"github.com/and161185/notekeeper/internal/repository"
	"github.com/and161185/notekeeper/internal/token"
)

const (
	minPasswordLen = 6
	minUsernameLen = 3
	maxUsernameLen = 64
)

// AuthService defines account and token operations.
type AuthService interface {
	// Register validates input, creates the account and returns a fresh session.
	Register(ctx context.Context, in model.Registration) (model.Session, error)
	// LoginWithIP applies rate-limiting and authenticates the user.
	LoginWithIP(ctx context.Context, login, password, ip string) (model.Session, error)
	// Authenticate resolves a raw bearer token to an existing user.
	Authenticate(ctx context.Context, rawToken string) (model.Identity, error)
	// Profile returns the account of userID.
	Profile(ctx context.Context, userID uuid.UUID) (*model.User, error)
}

type AuthServiceImpl struct {
	users  repository.UserRepository
	tokens *token.Issuer
	lim    limiter.Limiter
	field  model.LoginField
}

// NewAuthService constructs AuthService with required dependencies.
// An empty field defaults to login by email; a nil limiter disables rate limiting.
func NewAuthService(users repository.UserRepository, tokens *token.Issuer, lim limiter.Limiter, field model.LoginField) *AuthServiceImpl {
	if field == "" {
		field = model.LoginByEmail
	}
	if lim == nil {
		lim = limiter.Nop{}
	}
	return &AuthServiceImpl{users: users, tokens: tokens, lim: lim, field: field}
}

// Register creates a new user record with a per-user salt and logs it in.
func (s *AuthServiceImpl) Register(ctx context.Context, in model.Registration) (model.Session, error) {
	u, err := s.newUser(in)
	if err != nil {
		return model.Session{}, err
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			if s.field == model.LoginByEmail {
				return model.Session{}, errs.Invalid("email", "email already in use")
			}
			return model.Session{}, errs.Invalid("username", "username or email already in use")
		}
		return model.Session{}, fmt.Errorf("create user: %w", err)
	}
	return s.session(u)
}

func (s *AuthServiceImpl) newUser(in model.Registration) (*model.User, error) {
	name := strings.TrimSpace(in.Name)
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	switch s.field {
	case model.LoginByUsername:
		if username == "" {
			return nil, errs.Invalid("username", "is required")
		}
		if n := utf8.RuneCountInString(username); n < minUsernameLen || n > maxUsernameLen {
			return nil, errs.Invalid("username", fmt.Sprintf("must be %d-%d characters", minUsernameLen, maxUsernameLen))
		}
		if in.Password == "" {
			return nil, errs.Invalid("password", "is required")
		}
		if name == "" {
			name = username
		}
	default:
		if name == "" {
			return nil, errs.Invalid("name", "is required")
		}
		if email == "" {
			return nil, errs.Invalid("email", "is required")
		}
		if in.Password == "" {
			return nil, errs.Invalid("password", "is required")
		}
		if utf8.RuneCountInString(in.Password) < minPasswordLen {
			return nil, errs.Invalid("password", fmt.Sprintf("must be at least %d characters", minPasswordLen))
		}
	}
	if email != "" && !validEmail(email) {
		return nil, errs.Invalid("email", "is not a valid address")
	}

	uid, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	hash, salt, err := pkgcrypto.NewPasswordHash(in.Password)
	if err != nil {
		return nil, err
	}
	return &model.User{
		ID:       uid,
		Name:     name,
		Username: username,
		Email:    email,
		PwdHash:  hash,
		SaltAuth: salt,
	}, nil
}

// validEmail accepts a bare addr-spec with a dotted domain.
func validEmail(s string) bool {
	a, err := mail.ParseAddress(s)
	if err != nil || a.Address != s || a.Name != "" {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	return at > 0 && strings.Contains(s[at+1:], ".")
}

// LoginWithIP authenticates with rate limiting by (login, ip).
func (s *AuthServiceImpl) LoginWithIP(ctx context.Context, login, password, ip string) (model.Session, error) {
	login = strings.TrimSpace(login)
	if s.field == model.LoginByEmail {
		login = strings.ToLower(login)
	}
	if login == "" {
		return model.Session{}, errs.Invalid(string(s.field), "is required")
	}
	if password == "" {
		return model.Session{}, errs.Invalid("password", "is required")
	}

	ipHash := limiter.HashIP(ip)
	allowed, _, err := s.lim.Allow(ctx, login, ipHash)
	if err != nil {
		return model.Session{}, fmt.Errorf("limiter allow: %w", err)
	}
	if !allowed {
		return model.Session{}, errs.ErrRateLimited
	}

	u, err := s.lookup(ctx, login)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return model.Session{}, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil || !pkgcrypto.VerifyPassword([]byte(password), u.SaltAuth, u.PwdHash) {
		if u == nil {
			// keep the unknown-user path as slow as a wrong password
			_ = pkgcrypto.HashPassword([]byte(password), make([]byte, pkgcrypto.SaltLen))
		}
		if blocked, _, ferr := s.lim.Failure(ctx, login, ipHash); ferr == nil && blocked {
			return model.Session{}, errs.ErrRateLimited
		}
		return model.Session{}, errs.ErrBadCredentials
	}

	// best-effort
	_ = s.lim.Success(ctx, login, ipHash)

	return s.session(u)
}

func (s *AuthServiceImpl) lookup(ctx context.Context, login string) (*model.User, error) {
	if s.field == model.LoginByUsername {
		return s.users.GetByUsername(ctx, login)
	}
	return s.users.GetByEmail(ctx, login)
}

func (s *AuthServiceImpl) session(u *model.User) (model.Session, error) {
	id := model.Identity{UserID: u.ID}
	if s.field == model.LoginByUsername {
		id.Username = u.Username
	} else {
		id.Email = u.Email
	}
	tok, exp, err := s.tokens.Issue(id)
	if err != nil {
		return model.Session{}, fmt.Errorf("issue token: %w", err)
	}
	return model.Session{Token: tok, ExpiresAt: exp, User: *u}, nil
}

// Authenticate verifies the token and checks that its user still exists.
// Token failures and unknown users are reported as errs.ErrUnauthorized;
// store errors are returned wrapped.
func (s *AuthServiceImpl) Authenticate(ctx context.Context, rawToken string) (model.Identity, error) {
	id, err := s.tokens.Verify(rawToken)
	if err != nil {
		return model.Identity{}, errs.ErrUnauthorized
	}
	ok, err := s.users.Exists(ctx, id.UserID)
	if err != nil {
		return model.Identity{}, fmt.Errorf("check user: %w", err)
	}
	if !ok {
		return model.Identity{}, errs.ErrUnauthorized
	}
	return id, nil
}

// Profile returns the account of userID or errs.ErrNotFound.
func (s *AuthServiceImpl) Profile(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	if userID == uuid.Nil {
		return nil, errs.ErrUnauthorized
	}
	return s.users.GetByID(ctx, userID)
}
