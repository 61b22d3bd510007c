// Package session holds the authenticated session for the running client:
// the credential pair, decoded identity, and cash balance, persisted to
// local storage and shared by reference with every view that needs them.
package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the decoded payload of an access credential.
type Claims struct {
	UserID    int64
	Username  string
	ExpiresAt time.Time
}

// Expired reports whether the credential expiry is in the past.
func (c *Claims) Expired() bool {
	return time.Now().After(c.ExpiresAt)
}

// DecodeToken extracts the claims embedded in an access token without
// verifying its signature. The server is the authority on token validity;
// the client only needs the identity and expiry for display and routing.
func DecodeToken(token string) (*Claims, error) {
	parser := jwt.NewParser()
	parsed, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("decoding token: %w", err)
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("decoding token: unexpected claims type")
	}

	exp, err := mapClaims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("decoding token: missing expiry claim")
	}

	claims := &Claims{ExpiresAt: exp.Time}

	// SimpleJWT-style tokens carry a numeric user_id claim.
	if v, ok := mapClaims["user_id"]; ok {
		if f, ok := v.(float64); ok {
			claims.UserID = int64(f)
		}
	}
	if v, ok := mapClaims["username"]; ok {
		if s, ok := v.(string); ok {
			claims.Username = s
		}
	}

	return claims, nil
}
