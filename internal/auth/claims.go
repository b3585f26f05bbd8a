package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the only supported JWT claims shape for this service.
// Name is the actor display name used in audit descriptions; it is optional.
type Claims struct {
	jwt.RegisteredClaims

	UserID    string    `json:"user_id"`
	Name      string    `json:"name,omitempty"`
	Role      string    `json:"role"`
	TokenType TokenType `json:"token_type"`
}
