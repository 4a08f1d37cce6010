// Package types defines the wire payloads exchanged with the JWT revocation API
package types

import (
	"time"
)

// RevocationRequest represents the body sent to revoke a token
type RevocationRequest struct {
	JwtID      string    `json:"jwtId"`      // Identifier (jti) of the token to revoke
	Reason     string    `json:"reason"`     // Free text, not interpreted by the client
	ExpiryDate time.Time `json:"expiryDate"` // When the revocation record itself may be purged
}

// RevocationRecord is a revocation as returned by the server.
// The shape is owned by the API and passed through untouched.
type RevocationRecord map[string]interface{}

// ErrorResponse represents the error body the API usually sends with non-2xx statuses
type ErrorResponse struct {
	Message string `json:"message,omitempty"`
}
