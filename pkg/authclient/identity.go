package authclient

import (
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Identity is what the access token says about its holder. It is read without verifying the
// signature and is only fit for display; the server stays the authority.
type Identity struct {
	Username  string
	Role      string
	Type      string
	ExpiresAt time.Time
}

type identityClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	Type     string `json:"type"`
	jwt.RegisteredClaims
}

// Identity decodes the current access token. It reports false when no token is held or the
// token cannot be parsed.
func (c *Client) Identity() (Identity, bool) {
	token := c.Tokens().AccessToken
	if token == "" {
		return Identity{}, false
	}

	var claims identityClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Identity{}, false
	}

	id := Identity{Username: claims.Username, Role: claims.Role, Type: claims.Type}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, true
}
