package dto

import "time"

// ChangePasswordRequest payload for POST /api/change-password.
type ChangePasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

// CreateUserRequest payload for POST /api/admin/users.
type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// BanRequest payload for POST /api/admin/users/:username/ban.
type BanRequest struct {
	Banned bool `json:"banned"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Banned    bool      `json:"banned"`
	CreatedAt time.Time `json:"created_at"`
}

// ServerConfigResponse is returned by GET /api/server-config.
type ServerConfigResponse struct {
	SiteName    string `json:"siteName"`
	StorageType string `json:"storageType"`
	Version     string `json:"version"`
	Secured     bool   `json:"secured"`
}
