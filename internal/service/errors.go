package service

import "errors"

// Errors reported by AuthService. Handlers translate them into HTTP responses; refresh
// rejections all collapse into ErrInvalidToken whatever check failed.
var (
	ErrMalformedRequest   = errors.New("malformed request")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid refresh token")
	ErrAccountBanned      = errors.New("account banned")
	ErrForbidden          = errors.New("operation not permitted")
	ErrUnsupported        = errors.New("operation not supported in local mode")
)
