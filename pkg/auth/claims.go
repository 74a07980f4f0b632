package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/little-explorers/storefront/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	Username string
	Role     enums.Role
	JTI      string
}

// AccessTokenClaims represents the typed JWT presented by signed-in customers
// and staff. The subject is the username.
type AccessTokenClaims struct {
	Role enums.Role `json:"role"`
	jwt.RegisteredClaims
}

// Username returns the token subject.
func (c *AccessTokenClaims) Username() string {
	if c == nil {
		return ""
	}
	return c.Subject
}

// IsAdmin reports whether the token carries the admin role.
func (c *AccessTokenClaims) IsAdmin() bool {
	return c != nil && c.Role == enums.RoleAdmin
}
