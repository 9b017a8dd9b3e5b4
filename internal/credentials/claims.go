// ABOUTME: Unverified JWT claim inspection for display purposes
// ABOUTME: Never used for authorization decisions; the backend verifies tokens

package credentials

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of access-token claims the console displays.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token's exp claim is before now.
// Tokens without an exp claim never expire.
func (c *Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// Inspect decodes the claims of token without verifying its signature.
func Inspect(token string) (*Claims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("decoding token: %w", err)
	}

	out := &Claims{}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		out.Subject = sub
	} else {
		out.Subject = fallbackSubject(claims)
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Time
	}
	return out, nil
}

// fallbackSubject covers backends that put the user id in "id" or "username".
func fallbackSubject(claims jwt.MapClaims) string {
	for _, key := range []string{"username", "id", "userId"} {
		switch v := claims[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}
