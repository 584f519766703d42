package handlers

import (
	"net/http"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/api/dto"
	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/service"
	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

const usersBasePath = "/api/users"

// UsersHandler exposes user management endpoints.
type UsersHandler struct {
	users     *service.UserService
	validator *service.UniquenessValidator
	alerts    Alerts
	logger    *zap.Logger
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService, validator *service.UniquenessValidator, alerts Alerts, logger *zap.Logger) *UsersHandler {
	return &UsersHandler{users: users, validator: validator, alerts: alerts, logger: logger}
}

// CreateUser POST /api/users.
func (h *UsersHandler) CreateUser(c *fiber.Ctx) error {
	var req dto.ManagedUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	h.logger.Debug("request to create user", zap.String("username", req.Username))
	if err := req.Validate(); err != nil {
		return err
	}

	ctx := c.UserContext()
	if req.HasID() {
		return apperrors.NewIDExists()
	}
	if taken, err := h.validator.IsUsernameTaken(ctx, req.Username); err != nil {
		return apperrors.NewInternalError(err)
	} else if taken {
		return apperrors.NewUserExists()
	}
	if taken, err := h.validator.IsEmailTaken(ctx, req.Email); err != nil {
		return apperrors.NewInternalError(err)
	} else if taken {
		return apperrors.NewEmailExists()
	}

	user, err := h.users.CreateUser(ctx, actorName(c), &req)
	if err != nil {
		return err
	}

	h.alerts.Alert(c, AlertEntity+".created", user.Username)
	c.Location(usersBasePath + "/" + url.PathEscape(user.Username))
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// UpdateUser PUT /api/users.
func (h *UsersHandler) UpdateUser(c *fiber.Ctx) error {
	var req dto.ManagedUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	h.logger.Debug("request to update user", zap.String("username", req.Username))
	if err := req.Validate(); err != nil {
		return err
	}

	updated, err := h.users.UpdateUser(c.UserContext(), actorName(c), &req)
	if err != nil {
		return err
	}

	h.alerts.Alert(c, AlertEntity+".updated", updated.Username)
	return c.JSON(fiber.Map{"data": updated})
}

// DeleteUser DELETE /api/users/:username.
func (h *UsersHandler) DeleteUser(c *fiber.Ctx) error {
	username, err := usernameParam(c)
	if err != nil {
		return err
	}
	h.logger.Debug("request to delete user", zap.String("username", username))

	if err := h.users.DeleteUser(c.UserContext(), actorName(c), username); err != nil {
		return err
	}

	h.alerts.Alert(c, AlertEntity+".deleted", username)
	return c.SendStatus(http.StatusOK)
}

// ListUsers GET /api/users.
func (h *UsersHandler) ListUsers(c *fiber.Ctx) error {
	pageReq, err := parsePageRequest(c)
	if err != nil {
		return err
	}
	page, err := h.users.GetAllManagedUsers(c.UserContext(), pageReq)
	if err != nil {
		return err
	}
	setPaginationHeaders(c, usersBasePath, page)
	return c.JSON(fiber.Map{"data": page.Content})
}

// GetUser GET /api/users/:username.
func (h *UsersHandler) GetUser(c *fiber.Ctx) error {
	username, err := usernameParam(c)
	if err != nil {
		return err
	}
	h.logger.Debug("request to get user", zap.String("username", username))

	user, err := h.users.GetUserWithAuthorities(c.UserContext(), username)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponseWithAuthorities(user)})
}

// ListAuthorities GET /api/users/authorities.
func (h *UsersHandler) ListAuthorities(c *fiber.Ctx) error {
	names, err := h.users.GetAuthorities(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": names})
}

// usernameParam decodes the :username segment. Values outside the username
// alphabet are treated as an unknown route.
func usernameParam(c *fiber.Ctx) (string, error) {
	raw, err := url.PathUnescape(c.Params("username"))
	if err != nil || !domain.ValidUsername(raw) {
		return "", fiber.ErrNotFound
	}
	return raw, nil
}

func actorName(c *fiber.Ctx) string {
	if principal, ok := auth.PrincipalFromContext(c); ok {
		return principal.Username
	}
	return "system"
}
