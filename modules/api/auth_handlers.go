package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

const defaultSearchLimit = 20

// register handles POST /api/v1/auth/register.
func (m *Module) register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: "Username, email and password are required",
		})
	}

	user, err := m.identity.Service().Register(req.Username, req.Email, req.Password, req.FullName)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// login handles POST /api/v1/auth/login.
func (m *Module) login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	user, token, err := m.identity.Service().Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(LoginResponse{Token: token, User: user})
}

// logout handles POST /api/v1/auth/logout.
func (m *Module) logout(c *fiber.Ctx) error {
	token, _ := c.Locals("token").(string)
	if err := m.identity.Service().Logout(c.UserContext(), token); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// me handles GET /api/v1/auth/me.
func (m *Module) me(c *fiber.Ctx) error {
	user, err := m.identity.Service().Get(actorID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// getUser handles GET /api/v1/users/:id.
func (m *Module) getUser(c *fiber.Ctx) error {
	user, err := m.identity.Service().Get(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// searchUsers handles GET /api/v1/users/search.
func (m *Module) searchUsers(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: "Query parameter q is required",
		})
	}
	limit := defaultSearchLimit
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	users, err := m.identity.Service().Search(query, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}

// updateProfile handles PUT /api/v1/users/me.
func (m *Module) updateProfile(c *fiber.Ctx) error {
	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	user, err := m.identity.Service().UpdateProfile(actorID(c), req.FullName, req.AvatarURL)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// changePassword handles PUT /api/v1/users/me/password.
func (m *Module) changePassword(c *fiber.Ctx) error {
	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}
	if req.NewPassword == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: "New password is required",
		})
	}

	if err := m.identity.Service().ChangePassword(actorID(c), req.CurrentPassword, req.NewPassword); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// deactivateAccount handles DELETE /api/v1/users/me. The account is soft
// deleted and the current session revoked.
func (m *Module) deactivateAccount(c *fiber.Ctx) error {
	if err := m.identity.Service().Deactivate(actorID(c)); err != nil {
		return respondError(c, err)
	}
	token, _ := c.Locals("token").(string)
	_ = m.identity.Service().Logout(c.UserContext(), token)
	return c.SendStatus(fiber.StatusNoContent)
}
