package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/vodhub/internal/api/dto"
	"github.com/spec-kit/vodhub/internal/auth"
	"github.com/spec-kit/vodhub/internal/service"
	apperrors "github.com/spec-kit/vodhub/pkg/util/errorutil"
)

// AuthHandler exposes the session endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login handles POST /api/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewMalformedRequest("invalid payload")
	}

	sess, err := h.auth.Login(c.UserContext(), service.Credentials{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(tokenResponse(sess))
}

// Refresh handles POST /api/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewMalformedRequest("invalid payload")
	}
	if req.RefreshToken == "" {
		return apperrors.NewMalformedRequest("refreshToken required")
	}

	sess, err := h.auth.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(tokenResponse(sess))
}

// Logout handles POST /api/logout. It succeeds whatever the body holds.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req dto.LogoutRequest
	_ = c.BodyParser(&req)

	h.auth.Logout(c.UserContext(), req.RefreshToken)
	return c.JSON(dto.OKResponse{OK: true})
}

// Me handles GET /api/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("missing or invalid access token")
	}

	resp := dto.IdentityResponse{
		Username: claims.Username,
		Role:     string(claims.Role),
		Type:     string(claims.Kind),
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Unix()
	}
	return c.JSON(resp)
}

// ChangePassword handles POST /api/change-password.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("missing or invalid access token")
	}

	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewMalformedRequest("invalid payload")
	}
	if req.NewPassword == "" {
		return apperrors.NewMalformedRequest("newPassword required")
	}

	if err := h.auth.ChangePassword(c.UserContext(), claims.Identity(), req.NewPassword); err != nil {
		return mapServiceError(err)
	}
	return c.JSON(dto.OKResponse{OK: true})
}

func tokenResponse(sess *service.Session) dto.TokenResponse {
	return dto.TokenResponse{
		OK:           true,
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		ExpiresIn:    sess.ExpiresIn(),
		Role:         string(sess.Identity.Role),
		Username:     sess.Identity.Username,
	}
}
