// Package token mints and verifies HS256 bearer tokens carrying a user identity.
package token

import (
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/notekeeper/internal/model"
)

// DefaultTTL is the lifetime of an access token.
const DefaultTTL = time.Hour

var (
	// ErrInvalidToken is returned for any token that fails parsing or signature checks.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned when a well-signed token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the token payload: {id, email|username, iat, exp}.
type Claims struct {
	ID       string `json:"id"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies tokens with a single process-wide secret.
type Issuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewIssuer constructs an Issuer. A non-positive ttl falls back to DefaultTTL.
func NewIssuer(key []byte, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{key: key, ttl: ttl, now: time.Now}
}

// WithClock returns a copy of the issuer that reads time from now.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	c := *i
	c.now = now
	return &c
}

// TTL reports the configured token lifetime.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue creates a signed token for id expiring exactly TTL after now.
func (i *Issuer) Issue(id model.Identity) (string, time.Time, error) {
	if id.UserID == uuid.Nil {
		return "", time.Time{}, errors.New("issue token: empty user id")
	}
	now := i.now()
	exp := now.Add(i.ttl)
	claims := Claims{
		ID:       id.UserID.String(),
		Email:    id.Email,
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Verify checks signature, algorithm and expiry and returns the embedded identity.
// A token is rejected at or after its exp; no leeway is applied.
func (i *Issuer) Verify(raw string) (model.Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return i.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.Identity{}, ErrTokenExpired
		}
		return model.Identity{}, ErrInvalidToken
	}

	uid, err := uuid.FromString(claims.ID)
	if err != nil || uid == uuid.Nil {
		return model.Identity{}, ErrInvalidToken
	}
	return model.Identity{UserID: uid, Email: claims.Email, Username: claims.Username}, nil
}
