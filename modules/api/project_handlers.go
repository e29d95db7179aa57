package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/example/taskboard/domain/board"
	"github.com/example/taskboard/modules/project"
)

const defaultActivityLimit = 50

// listProjects handles GET /api/v1/projects. ?archived=true lists archived
// projects instead of active ones.
func (m *Module) listProjects(c *fiber.Ctx) error {
	archived := c.Query("archived") == "true"
	projects, err := m.project.Service().List(actorID(c), archived)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(projects)
}

// createProject handles POST /api/v1/projects.
func (m *Module) createProject(c *fiber.Ctx) error {
	var req CreateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: "Project name is required",
		})
	}

	p, err := m.project.Service().Create(actorID(c), project.CreateParams{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		Icon:        req.Icon,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

// getProject handles GET /api/v1/projects/:id.
func (m *Module) getProject(c *fiber.Ctx) error {
	p, err := m.project.Service().Get(c.UserContext(), actorID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(p)
}

// updateProject handles PUT /api/v1/projects/:id.
func (m *Module) updateProject(c *fiber.Ctx) error {
	var req UpdateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	p, err := m.project.Service().Update(c.UserContext(), actorID(c), c.Params("id"), project.UpdateParams{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		Icon:        req.Icon,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(p)
}

// deleteProject handles DELETE /api/v1/projects/:id. Owner only; the project
// is archived, not removed.
func (m *Module) deleteProject(c *fiber.Ctx) error {
	if err := m.project.Service().Delete(c.UserContext(), actorID(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// archiveProject handles POST /api/v1/projects/:id/archive.
func (m *Module) archiveProject(c *fiber.Ctx) error {
	p, err := m.project.Service().ArchiveToggle(c.UserContext(), actorID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(p)
}

// listMembers handles GET /api/v1/projects/:id/members.
func (m *Module) listMembers(c *fiber.Ctx) error {
	members, err := m.project.Service().Members(c.UserContext(), actorID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(members)
}

// addMember handles POST /api/v1/projects/:id/members.
func (m *Module) addMember(c *fiber.Ctx) error {
	var req AddMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}
	if req.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: "User ID is required",
		})
	}

	err := m.project.Service().AddMember(c.UserContext(), actorID(c), c.Params("id"), req.UserID, board.Role(req.Role))
	if err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusCreated)
}

// updateMemberRole handles PUT /api/v1/projects/:id/members/:userID.
func (m *Module) updateMemberRole(c *fiber.Ctx) error {
	var req UpdateMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	err := m.project.Service().UpdateMemberRole(c.UserContext(), actorID(c), c.Params("id"), c.Params("userID"), board.Role(req.Role))
	if err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// removeMember handles DELETE /api/v1/projects/:id/members/:userID.
func (m *Module) removeMember(c *fiber.Ctx) error {
	err := m.project.Service().RemoveMember(c.UserContext(), actorID(c), c.Params("id"), c.Params("userID"))
	if err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// projectActivity handles GET /api/v1/projects/:id/activity.
func (m *Module) projectActivity(c *fiber.Ctx) error {
	limit := defaultActivityLimit
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}

	entries, err := m.task.Service().ProjectHistory(c.UserContext(), actorID(c), c.Params("id"), limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(entries)
}

// listProjectTags handles GET /api/v1/projects/:id/tags.
func (m *Module) listProjectTags(c *fiber.Ctx) error {
	tags, err := m.tag.Service().ListForProject(c.UserContext(), actorID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tags)
}
