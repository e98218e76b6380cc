package types

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidOwner is returned when a token does not name a collection owner
var ErrInvalidOwner = errors.New("token does not identify a user")

// TokenClaims identifies whose recipe collection a request may touch.
// UserID is carried in the string form recipes are keyed by.
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Owner returns the canonical user id. It must parse as a uuid and agree
// with the subject when one is set.
func (c *TokenClaims) Owner() (string, error) {
	id, err := uuid.Parse(c.UserID)
	if err != nil || id == uuid.Nil {
		return "", ErrInvalidOwner
	}
	owner := id.String()
	if c.Subject != "" && c.Subject != owner {
		return "", ErrInvalidOwner
	}
	return owner, nil
}
