package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/vodhub/internal/api/dto"
	"github.com/spec-kit/vodhub/internal/auth"
	"github.com/spec-kit/vodhub/internal/domain"
	"github.com/spec-kit/vodhub/internal/observability"
	"github.com/spec-kit/vodhub/internal/service"
	apperrors "github.com/spec-kit/vodhub/pkg/util/errorutil"
)

// AdminHandler exposes account administration for owners and admins.
type AdminHandler struct {
	auth    *service.AuthService
	metrics *observability.Metrics
}

// NewAdminHandler constructs handler.
func NewAdminHandler(authService *service.AuthService, metrics *observability.Metrics) *AdminHandler {
	return &AdminHandler{auth: authService, metrics: metrics}
}

// CreateUser handles POST /api/admin/users.
func (h *AdminHandler) CreateUser(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewMalformedRequest("invalid payload")
	}
	if req.Username == "" || req.Password == "" {
		return apperrors.NewMalformedRequest("username and password required")
	}

	user, err := h.auth.CreateUser(c.UserContext(), req.Username, req.Password, domain.Role(req.Role))
	if err != nil {
		return mapServiceError(err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": dto.UserResponse{
			Username:  user.Username,
			Role:      string(user.Role),
			Banned:    user.Banned,
			CreatedAt: user.CreatedAt,
		},
	})
}

// Ban handles POST /api/admin/users/:username/ban.
func (h *AdminHandler) Ban(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("missing or invalid access token")
	}

	var req dto.BanRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewMalformedRequest("invalid payload")
	}

	username := c.Params("username")
	if err := h.auth.SetBanned(c.UserContext(), claims.Identity(), username, req.Banned); err != nil {
		return mapServiceError(err)
	}
	return c.JSON(dto.OKResponse{OK: true})
}

// Stats handles GET /api/admin/stats.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"active_sessions": h.auth.ActiveSessions(),
			"metrics":         h.metrics.Snapshot(),
		},
	})
}
