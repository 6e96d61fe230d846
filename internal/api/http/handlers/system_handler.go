package handlers

import (
	"fmt"
	"html"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/vodhub/internal/api/dto"
	"github.com/spec-kit/vodhub/internal/config"
)

const warningPage = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>%s: configuration required</title></head>
<body>
<h1>Access is locked</h1>
<p>No signing secret is configured. Set the PASSWORD (or AUTH_JWT_SECRET) environment variable and restart the server.</p>
</body>
</html>`

// SystemHandler serves deployment metadata and the insecure-deployment page.
type SystemHandler struct {
	cfg config.Config
}

// NewSystemHandler constructs handler.
func NewSystemHandler(cfg config.Config) *SystemHandler {
	return &SystemHandler{cfg: cfg}
}

// ServerConfig handles GET /api/server-config.
func (h *SystemHandler) ServerConfig(c *fiber.Ctx) error {
	return c.JSON(dto.ServerConfigResponse{
		SiteName:    h.cfg.App.SiteName,
		StorageType: h.cfg.Storage.Type,
		Version:     h.cfg.App.Version,
		Secured:     h.cfg.Auth.Secured(),
	})
}

// Warning handles GET /warning.
func (h *SystemHandler) Warning(c *fiber.Ctx) error {
	c.Type("html", "utf-8")
	return c.SendString(fmt.Sprintf(warningPage, html.EscapeString(h.cfg.App.SiteName)))
}
