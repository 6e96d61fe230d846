package domain

import "time"

// User is the persisted account used by db-mode login.
type User struct {
	Username     string
	PasswordHash string
	Role         Role
	Banned       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
