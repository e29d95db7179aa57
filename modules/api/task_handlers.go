package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/example/taskboard/domain/board"
	"github.com/example/taskboard/modules/task"
)

const defaultHistoryLimit = 50

// listTasks handles GET /api/v1/projects/:id/tasks with optional status,
// priority, assignee, due_before and search filters. ?assignee=none selects
// unassigned tasks.
func (m *Module) listTasks(c *fiber.Ctx) error {
	f := task.Filter{
		Status:   board.Status(c.Query("status")),
		Priority: board.Priority(c.Query("priority")),
		Search:   c.Query("search"),
	}
	switch assignee := c.Query("assignee"); assignee {
	case "":
	case "none":
		f.Unassigned = true
	default:
		f.AssigneeID = assignee
	}
	if raw := c.Query("due_before"); raw != "" {
		due, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error:   "validation_error",
				Message: "due_before must be an RFC 3339 timestamp",
			})
		}
		f.DueBefore = &due
	}

	tasks, err := m.task.Service().List(c.UserContext(), actorID(c), c.Params("id"), f)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tasks)
}

// listMyTasks handles GET /api/v1/tasks/mine.
func (m *Module) listMyTasks(c *fiber.Ctx) error {
	tasks, err := m.task.Service().ListMine(actorID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tasks)
}

// createTask handles POST /api/v1/projects/:id/tasks.
func (m *Module) createTask(c *fiber.Ctx) error {
	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}
	if req.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: "Task title is required",
		})
	}

	t, err := m.task.Service().Create(c.UserContext(), actorID(c), c.Params("id"), task.CreateParams{
		Title:          req.Title,
		Description:    req.Description,
		AssigneeID:     req.AssigneeID,
		Status:         board.Status(req.Status),
		Priority:       board.Priority(req.Priority),
		DueDate:        req.DueDate,
		EstimatedHours: req.EstimatedHours,
		TagIDs:         req.TagIDs,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(t)
}

// getTask handles GET /api/v1/tasks/:id.
func (m *Module) getTask(c *fiber.Ctx) error {
	t, err := m.task.Service().Get(c.UserContext(), actorID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(t)
}

// updateTask handles PUT /api/v1/tasks/:id.
func (m *Module) updateTask(c *fiber.Ctx) error {
	var req UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	params := task.UpdateParams{
		Title:       req.Title,
		Description: req.Description,
		TagIDs:      req.TagIDs,
	}
	if req.Status != nil {
		status := board.Status(*req.Status)
		params.Status = &status
	}
	if req.Priority != nil {
		priority := board.Priority(*req.Priority)
		params.Priority = &priority
	}

	var err error
	if params.AssigneeID, err = decodeNullable[string](req.AssigneeID); err != nil {
		return respondError(c, fmt.Errorf("invalid assignee_id: %w", err))
	}
	if params.DueDate, err = decodeNullable[time.Time](req.DueDate); err != nil {
		return respondError(c, fmt.Errorf("invalid due_date: %w", err))
	}
	if params.EstimatedHours, err = decodeNullable[float64](req.EstimatedHours); err != nil {
		return respondError(c, fmt.Errorf("invalid estimated_hours: %w", err))
	}
	if params.ActualHours, err = decodeNullable[float64](req.ActualHours); err != nil {
		return respondError(c, fmt.Errorf("invalid actual_hours: %w", err))
	}

	t, err := m.task.Service().Update(c.UserContext(), actorID(c), c.Params("id"), params)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(t)
}

// decodeNullable maps an optional JSON field onto update semantics: absent
// key -> nil (untouched), explicit null -> pointer to nil (clear), value ->
// pointer to pointer to the value.
func decodeNullable[T any](raw json.RawMessage) (**T, error) {
	if raw == nil {
		return nil, nil
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		var p *T
		return &p, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	p := &v
	return &p, nil
}

// deleteTask handles DELETE /api/v1/tasks/:id.
func (m *Module) deleteTask(c *fiber.Ctx) error {
	if err := m.task.Service().Delete(c.UserContext(), actorID(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// updateTaskStatus handles PUT /api/v1/tasks/:id/status.
func (m *Module) updateTaskStatus(c *fiber.Ctx) error {
	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	t, err := m.task.Service().UpdateStatus(c.UserContext(), actorID(c), c.Params("id"), board.Status(req.Status))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(t)
}

// assignTask handles PUT /api/v1/tasks/:id/assign. A null assignee_id clears
// the assignment.
func (m *Module) assignTask(c *fiber.Ctx) error {
	var req AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	t, err := m.task.Service().Assign(c.UserContext(), actorID(c), c.Params("id"), req.AssigneeID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(t)
}

// completeTask handles POST /api/v1/tasks/:id/complete.
func (m *Module) completeTask(c *fiber.Ctx) error {
	t, err := m.task.Service().Complete(c.UserContext(), actorID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(t)
}

// taskHistory handles GET /api/v1/tasks/:id/history.
func (m *Module) taskHistory(c *fiber.Ctx) error {
	limit := defaultHistoryLimit
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}

	entries, err := m.task.Service().History(c.UserContext(), actorID(c), c.Params("id"), limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(entries)
}

// listComments handles GET /api/v1/tasks/:id/comments.
func (m *Module) listComments(c *fiber.Ctx) error {
	comments, err := m.task.Service().Comments(c.UserContext(), actorID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(comments)
}

// addComment handles POST /api/v1/tasks/:id/comments.
func (m *Module) addComment(c *fiber.Ctx) error {
	var req AddCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}
	if req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: "Comment content is required",
		})
	}

	comment, err := m.task.Service().AddComment(c.UserContext(), actorID(c), c.Params("id"), req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// editComment handles PUT /api/v1/comments/:id.
func (m *Module) editComment(c *fiber.Ctx) error {
	var req EditCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}
	if req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: "Comment content is required",
		})
	}

	comment, err := m.task.Service().EditComment(c.UserContext(), actorID(c), c.Params("id"), req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(comment)
}

// deleteComment handles DELETE /api/v1/comments/:id.
func (m *Module) deleteComment(c *fiber.Ctx) error {
	if err := m.task.Service().DeleteComment(c.UserContext(), actorID(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// listTaskTags handles GET /api/v1/tasks/:id/tags.
func (m *Module) listTaskTags(c *fiber.Ctx) error {
	tags, err := m.task.Service().Tags(c.UserContext(), actorID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tags)
}

// attachTag handles POST /api/v1/tasks/:id/tags/:tagID.
func (m *Module) attachTag(c *fiber.Ctx) error {
	if err := m.task.Service().AttachTag(c.UserContext(), actorID(c), c.Params("id"), c.Params("tagID")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// detachTag handles DELETE /api/v1/tasks/:id/tags/:tagID.
func (m *Module) detachTag(c *fiber.Ctx) error {
	if err := m.task.Service().DetachTag(c.UserContext(), actorID(c), c.Params("id"), c.Params("tagID")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
