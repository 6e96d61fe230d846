package auth

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/vodhub/pkg/util/errorutil"
)

const claimsKey = "auth_claims"

// WarningPath is where insecure deployments send every protected request.
const WarningPath = "/warning"

// RouteClass is the gate's verdict for a request path.
type RouteClass int

const (
	RoutePublic RouteClass = iota
	RouteProtectedAPI
	RouteMediaProxy
	RouteProtectedPage
)

func (rc RouteClass) String() string {
	switch rc {
	case RoutePublic:
		return "public"
	case RouteProtectedAPI:
		return "protected_api"
	case RouteMediaProxy:
		return "media_proxy"
	default:
		return "protected_page"
	}
}

var publicExact = map[string]struct{}{
	"/login":             {},
	WarningPath:          {},
	"/docs":              {},
	"/favicon.ico":       {},
	"/robots.txt":        {},
	"/manifest.json":     {},
	"/logo.png":          {},
	"/screenshot.png":    {},
	"/api/login":         {},
	"/api/logout":        {},
	"/api/refresh":       {},
	"/api/register":      {},
	"/api/server-config": {},
	"/api/docs":          {},
}

var publicPrefixes = []string{
	"/_next/",
	"/static/",
	"/icons/",
	"/health/",
	"/api/cron/",
	"/api/image-proxy/",
}

// Classify decides how the gate treats path.
func Classify(path string) RouteClass {
	if path == "" {
		path = "/"
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	if _, ok := publicExact[path]; ok {
		return RoutePublic
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) || path+"/" == prefix {
			return RoutePublic
		}
	}
	if strings.HasPrefix(path, "/api/proxy/") {
		return RouteMediaProxy
	}
	if path == "/api" || strings.HasPrefix(path, "/api/") {
		return RouteProtectedAPI
	}
	return RouteProtectedPage
}

// Gate enforces bearer tokens on protected API routes before handlers run.
type Gate struct {
	tokens *TokenManager
}

// NewGate constructs the request gate.
func NewGate(tokens *TokenManager) *Gate {
	return &Gate{tokens: tokens}
}

// Handle classifies the request and enforces authentication for it.
func (g *Gate) Handle(c *fiber.Ctx) error {
	class := Classify(c.Path())
	if class == RoutePublic {
		return c.Next()
	}

	if !g.tokens.Secured() {
		return c.Redirect(WarningPath, http.StatusFound)
	}

	switch class {
	case RouteProtectedAPI:
		claims, ok := g.verifyHeader(c)
		if !ok {
			return apperrors.NewUnauthorized("missing or invalid access token")
		}
		c.Locals(claimsKey, claims)
	case RouteMediaProxy:
		claims, ok := g.verifyHeader(c)
		if !ok {
			claims, ok = g.verifyAccess(c.Query("token"))
		}
		if !ok {
			return apperrors.NewUnauthorized("missing or invalid access token")
		}
		c.Locals(claimsKey, claims)
	}

	// Pages render unconditionally; the client-side guard owns their redirects.
	return c.Next()
}

func (g *Gate) verifyHeader(c *fiber.Ctx) (*Claims, bool) {
	token, ok := BearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return nil, false
	}
	return g.verifyAccess(token)
}

func (g *Gate) verifyAccess(token string) (*Claims, bool) {
	claims, ok := g.tokens.Verify(token)
	if !ok || claims.Use != UseAccess {
		return nil, false
	}
	return claims, true
}

// BearerToken extracts the credential from an Authorization header value.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

// ClaimsFromContext retrieves the verified access-token claims.
func ClaimsFromContext(c *fiber.Ctx) (*Claims, bool) {
	val := c.Locals(claimsKey)
	if val == nil {
		return nil, false
	}
	claims, ok := val.(*Claims)
	return claims, ok
}
