package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/ksrcrypto/crypto-backend/services"
)

// ViewRoute is one client-side view and its access rule
type ViewRoute struct {
	Path         string `json:"path"`
	View         string `json:"view"`
	RequiresAuth bool   `json:"requires_auth"`
	RedirectTo   string `json:"redirect_to,omitempty"`
}

// ViewRoutes is the client routing table
var ViewRoutes = []ViewRoute{
	{Path: "/", View: "home"},
	{Path: "/prices", View: "prices"},
	{Path: "/portfolio", View: "portfolio", RequiresAuth: true, RedirectTo: loginPath},
	{Path: "/login", View: "login"},
	{Path: "/register", View: "register"},
}

// ResolveView returns the route for path and the path actually shown to a
// visitor. Unknown paths resolve to ok=false.
func ResolveView(path string, authenticated bool) (route ViewRoute, target string, ok bool) {
	for _, r := range ViewRoutes {
		if r.Path != path {
			continue
		}
		if r.RequiresAuth && !authenticated {
			return r, r.RedirectTo, true
		}
		return r, r.Path, true
	}
	return ViewRoute{}, "", false
}

// ResolvedView is the answer to a ?path= lookup
type ResolvedView struct {
	Route  ViewRoute `json:"route"`
	Target string    `json:"target"`
}

type RoutesHandler struct {
	auth services.AuthService
}

// NewRoutesHandler takes the auth service used to decide whether the caller
// is signed in; nil treats every caller as a visitor.
func NewRoutesHandler(auth services.AuthService) *RoutesHandler {
	return &RoutesHandler{auth: auth}
}

// GetRoutes returns the routing table, or with ?path= the view that path
// resolves to for the calling session.
func (h *RoutesHandler) GetRoutes(c *fiber.Ctx) error {
	path := c.Query("path")
	if path == "" {
		return c.JSON(fiber.Map{
			"success": true,
			"data":    ViewRoutes,
		})
	}

	authenticated := h.auth != nil && h.auth.CurrentUser(c.Context(), bearerToken(c)) != nil
	route, target, ok := ResolveView(path, authenticated)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "unknown view path",
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    ResolvedView{Route: route, Target: target},
	})
}
