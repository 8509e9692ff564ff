package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/ksrcrypto/crypto-backend/models"
	"github.com/ksrcrypto/crypto-backend/services"
	"github.com/ksrcrypto/crypto-backend/shared"
	"github.com/sirupsen/logrus"
)

const (
	userLocalsKey = "user"
	loginPath     = "/login"
)

type AuthHandler struct {
	Auth services.AuthService
}

func NewAuthHandler(auth services.AuthService) *AuthHandler {
	return &AuthHandler{Auth: auth}
}

type registerRequest struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, errors.New("invalid request body"))
	}

	session, err := h.Auth.Register(c.Context(), req.DisplayName, req.Email, req.Password)
	if err != nil {
		return authFailure(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    session,
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, errors.New("invalid request body"))
	}

	session, err := h.Auth.SignIn(c.Context(), req.Email, req.Password)
	if err != nil {
		return authFailure(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    session,
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.Auth.Logout(c.Context(), bearerToken(c)); err != nil {
		return authFailure(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    fiber.Map{"redirect": "/"},
	})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user := h.Auth.CurrentUser(c.Context(), bearerToken(c))
	if user == nil {
		return unauthorized(c)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    user,
	})
}

// RequireSession rejects requests without a live session with 401 and the
// login redirect; otherwise the user is stored in the request locals
func RequireSession(auth services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := auth.CurrentUser(c.Context(), bearerToken(c))
		if user == nil {
			return unauthorized(c)
		}
		c.Locals(userLocalsKey, *user)
		return c.Next()
	}
}

func sessionUser(c *fiber.Ctx) (models.User, bool) {
	user, ok := c.Locals(userLocalsKey).(models.User)
	return user, ok
}

func bearerToken(c *fiber.Ctx) string {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success":  false,
		"error":    "authentication required",
		"redirect": loginPath,
	})
}

func authFailure(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrEmailTaken):
		status = fiber.StatusConflict
	case shared.CategoryOf(err) == shared.ErrorCategoryValidation:
		status = fiber.StatusBadRequest
	case shared.CategoryOf(err) == shared.ErrorCategoryAuthentication:
		status = fiber.StatusUnauthorized
	default:
		logrus.WithError(err).WithField("component", "AuthHandler").Error("Auth request failed")
	}
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}
