package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Authenticator is the login session of the console.
type Authenticator interface {
	Login(ctx context.Context, username, password string) error
	Logout(ctx context.Context) error
	LoggedIn() bool
}

// AuthHandler handles login and logout against the auth service
type AuthHandler struct {
	auth   Authenticator
	logger *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth Authenticator, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// LoginRequest represents the login body
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login exchanges credentials for a token pair.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", "ERR_INVALID_BODY")
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return badRequest(c, "Username and password are required", "ERR_MISSING_CREDENTIALS")
	}

	if err := h.auth.Login(c.UserContext(), req.Username, req.Password); err != nil {
		h.logger.Warn("login failed", zap.String("username", req.Username), zap.Error(err))
		return respondError(c, err)
	}
	h.logger.Info("logged in", zap.String("username", req.Username))
	return c.JSON(fiber.Map{"logged_in": true})
}

// Logout drops the local tokens even when the backend call fails.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.auth.Logout(c.UserContext()); err != nil {
		h.logger.Warn("logout failed", zap.Error(err))
	}
	return c.JSON(fiber.Map{"logged_in": false})
}

// Status reports whether a token pair is stored.
func (h *AuthHandler) Status(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"logged_in": h.auth.LoggedIn()})
}
