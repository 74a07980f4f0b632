package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/little-explorers/storefront/pkg/config"
)

var (
	ErrSigningConfig = errors.New("auth: jwt secret, issuer and ttl must be configured")
	ErrBadSubject    = errors.New("auth: token subject is empty")
	ErrBadRole       = errors.New("auth: token role is unknown")
)

const signingAlg = "HS256"

// MintAccessToken signs an HS256 token for the shopper or staff member in
// payload, valid from now for the configured number of minutes.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	if cfg.Secret == "" || cfg.Issuer == "" || cfg.ExpirationMinutes <= 0 {
		return "", ErrSigningConfig
	}
	claims := &AccessTokenClaims{
		Role: payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strings.TrimSpace(payload.Username),
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)),
			ID:        strings.TrimSpace(payload.JTI),
		},
	}
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
	if err := claims.check(); err != nil {
		return "", err
	}

	token, err := jwt.NewWithClaims(jwt.GetSigningMethod(signingAlg), claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("auth: sign: %w", err)
	}
	return token, nil
}

// ParseAccessToken verifies signature, issuer and expiry and returns the
// claims. Tokens signed with any other algorithm are refused.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, ErrSigningConfig
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingAlg}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
	)
	claims := &AccessTokenClaims{}
	if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}); err != nil {
		return nil, err
	}
	if err := claims.check(); err != nil {
		return nil, err
	}
	return claims, nil
}

func (c *AccessTokenClaims) check() error {
	if strings.TrimSpace(c.Subject) == "" {
		return ErrBadSubject
	}
	if !c.Role.IsValid() {
		return fmt.Errorf("%w: %q", ErrBadRole, c.Role)
	}
	return nil
}
