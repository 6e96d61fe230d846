package dto

// LoginRequest payload for POST /api/login. Username is omitted in local mode.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest payload for POST /api/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// LogoutRequest payload for POST /api/logout.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// TokenResponse is returned by login and refresh. RefreshToken is omitted when a refresh did
// not rotate it. ExpiresIn is the access token expiry in epoch seconds.
type TokenResponse struct {
	OK           bool   `json:"ok"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
	Role         string `json:"role"`
	Username     string `json:"username,omitempty"`
}

// OKResponse is the body of endpoints that only report success.
type OKResponse struct {
	OK bool `json:"ok"`
}

// IdentityResponse describes the caller of GET /api/me.
type IdentityResponse struct {
	Username  string `json:"username,omitempty"`
	Role      string `json:"role"`
	Type      string `json:"type"`
	ExpiresAt int64  `json:"expires_at"`
}
