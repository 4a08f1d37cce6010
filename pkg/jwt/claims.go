// Package jwt builds revocation requests from tokens the caller has already parsed
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jwtrevoke/jwtrevoke-go/pkg/types"
)

var (
	// ErrMissingID is returned when the claims carry no jti
	ErrMissingID = errors.New("claims have no jti")

	// ErrUnsupportedClaims is returned for claim types the ID cannot be read from
	ErrUnsupportedClaims = errors.New("unsupported claims type")
)

// IDer is implemented by custom claim types that expose their jti
type IDer interface {
	GetID() string
}

// ID extracts the jti from parsed claims.
// Supported: *jwt.RegisteredClaims, jwt.MapClaims and any type implementing IDer.
func ID(claims jwt.Claims) (string, error) {
	var id string

	switch c := claims.(type) {
	case nil:
		return "", ErrUnsupportedClaims
	case IDer:
		id = c.GetID()
	case *jwt.RegisteredClaims:
		id = c.ID
	case jwt.RegisteredClaims:
		id = c.ID
	case jwt.MapClaims:
		raw, ok := c["jti"]
		if !ok {
			return "", ErrMissingID
		}
		s, ok := raw.(string)
		if !ok {
			return "", fmt.Errorf("jti has type %T, want string", raw)
		}
		id = s
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedClaims, claims)
	}

	if id == "" {
		return "", ErrMissingID
	}
	return id, nil
}

// RequestFromClaims builds a revocation for the token the claims belong to.
// The revocation record expires together with the token; tokens without exp
// fall back to now + fallbackTTL.
func RequestFromClaims(claims jwt.Claims, reason string, fallbackTTL time.Duration) (*types.RevocationRequest, error) {
	id, err := ID(claims)
	if err != nil {
		return nil, err
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("failed to read exp claim: %w", err)
	}

	var expiry time.Time
	if exp != nil {
		expiry = exp.Time.UTC()
	} else {
		expiry = time.Now().Add(fallbackTTL).UTC()
	}

	return &types.RevocationRequest{
		JwtID:      id,
		Reason:     reason,
		ExpiryDate: expiry,
	}, nil
}
