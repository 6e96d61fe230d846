package handlers

import (
	"errors"

	"github.com/spec-kit/vodhub/internal/auth"
	"github.com/spec-kit/vodhub/internal/repository"
	"github.com/spec-kit/vodhub/internal/service"
	apperrors "github.com/spec-kit/vodhub/pkg/util/errorutil"
)

// mapServiceError converts service and repository sentinels into rendered DomainErrors.
func mapServiceError(err error) error {
	switch {
	case errors.Is(err, service.ErrMalformedRequest):
		return apperrors.NewMalformedRequest("malformed request")
	case errors.Is(err, service.ErrInvalidCredentials):
		return apperrors.NewInvalidCredentials("invalid credentials")
	case errors.Is(err, service.ErrAccountBanned):
		return apperrors.NewInvalidCredentials("account is banned")
	case errors.Is(err, service.ErrInvalidToken):
		return apperrors.NewInvalidToken()
	case errors.Is(err, service.ErrForbidden):
		return apperrors.NewForbidden("operation not permitted")
	case errors.Is(err, service.ErrUnsupported):
		return apperrors.NewMalformedRequest("operation not supported in local mode")
	case errors.Is(err, auth.ErrMissingSecret):
		return apperrors.NewConfigError(err)
	case errors.Is(err, repository.ErrUserNotFound):
		return apperrors.NewNotFound("user")
	case errors.Is(err, repository.ErrUserExists):
		return apperrors.NewConflict("user already exists")
	default:
		return apperrors.NewInternalError(err)
	}
}
