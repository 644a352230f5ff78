// Package auth signs and verifies the bearer tokens the HTTP layer uses to
// authenticate requests against the UserStore.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/scorbettUM/dcrx-kv/internal/models"
)

// ErrInvalidToken covers every way a bearer token can fail verification:
// bad signature, expired, wrong algorithm, missing subject claim.
var ErrInvalidToken = errors.New("auth: invalid or expired token")

// Service signs and verifies HS256 JWTs carrying an account's ID as the
// subject claim and its username as a separate claim.
type Service struct {
	secret []byte
	expiry time.Duration
}

// New constructs a Service. expiry defaults to one hour when zero; a
// negative expiry is preserved (useful for issuing already-expired tokens
// in tests).
func New(secret string, expiry time.Duration) *Service {
	if expiry == 0 {
		expiry = time.Hour
	}
	return &Service{secret: []byte(secret), expiry: expiry}
}

// Claims carries the identity facts embedded in a signed token.
type Claims struct {
	Subject  string
	Username string
	IssuedAt time.Time
	Expiry   time.Time
}

// Sign issues a token binding account.ID as the subject.
func (s *Service) Sign(account *models.Account) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"jti":      uuid.New().String(),
		"sub":      account.ID,
		"username": account.Username,
		"iat":      now.Unix(),
		"exp":      now.Add(s.expiry).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify parses and validates tokenString, returning its claims.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, _ := mapClaims["sub"].(string)
	username, _ := mapClaims["username"].(string)
	if sub == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{Subject: sub, Username: username}
	if iat, ok := mapClaims["iat"].(float64); ok {
		claims.IssuedAt = time.Unix(int64(iat), 0)
	}
	if exp, ok := mapClaims["exp"].(float64); ok {
		claims.Expiry = time.Unix(int64(exp), 0)
	}
	return claims, nil
}
