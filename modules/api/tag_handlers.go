package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/taskboard/modules/tag"
)

// listGlobalTags handles GET /api/v1/tags.
func (m *Module) listGlobalTags(c *fiber.Ctx) error {
	tags, err := m.tag.Service().ListGlobal()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tags)
}

// createTag handles POST /api/v1/tags.
func (m *Module) createTag(c *fiber.Ctx) error {
	var req CreateTagRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: "Tag name is required",
		})
	}

	t, err := m.tag.Service().Create(c.UserContext(), actorID(c), tag.CreateParams{
		Name:      req.Name,
		Color:     req.Color,
		ProjectID: req.ProjectID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(t)
}

// getTag handles GET /api/v1/tags/:id.
func (m *Module) getTag(c *fiber.Ctx) error {
	t, err := m.tag.Service().Get(c.UserContext(), actorID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(t)
}

// updateTag handles PUT /api/v1/tags/:id.
func (m *Module) updateTag(c *fiber.Ctx) error {
	var req UpdateTagRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	t, err := m.tag.Service().Update(c.UserContext(), actorID(c), c.Params("id"), tag.UpdateParams{
		Name:  req.Name,
		Color: req.Color,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(t)
}

// deleteTag handles DELETE /api/v1/tags/:id.
func (m *Module) deleteTag(c *fiber.Ctx) error {
	if err := m.tag.Service().Delete(c.UserContext(), actorID(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
