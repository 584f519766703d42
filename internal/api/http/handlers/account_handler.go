package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-service/internal/api/dto"
	"github.com/spec-kit/user-service/internal/service"
	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

// AccountHandler exposes login and activation endpoints.
type AccountHandler struct {
	auth *service.AuthService
}

// NewAccountHandler constructs handler.
func NewAccountHandler(authService *service.AuthService) *AccountHandler {
	return &AccountHandler{auth: authService}
}

// Authenticate POST /api/authenticate.
func (h *AccountHandler) Authenticate(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Username == "" || req.Password == "" {
		return apperrors.NewValidationError("username and password required", nil)
	}

	token, exp, err := h.auth.Authenticate(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{Token: token, ExpiresAt: exp}})
}

// Activate POST /api/account/activate.
func (h *AccountHandler) Activate(c *fiber.Ctx) error {
	var req dto.ActivationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, err := h.auth.ActivateRegistration(c.UserContext(), req.Key, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}
