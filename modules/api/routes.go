package api

import (
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// setupRoutes configures all HTTP routes.
func (m *Module) setupRoutes() {
	// Health check
	m.app.Get("/health", m.healthHandler)

	// WebSocket endpoint; the token travels as a query parameter because
	// browser WebSocket clients cannot set headers.
	m.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	m.app.Get("/ws", websocket.New(m.handleWebSocket))

	// REST API v1
	api := m.app.Group("/api/v1")

	// Auth
	api.Post("/auth/register", m.register)
	api.Post("/auth/login", m.login)
	api.Post("/auth/logout", m.requireAuth(), m.logout)
	api.Get("/auth/me", m.requireAuth(), m.me)

	// Users
	users := api.Group("/users", m.requireAuth())
	users.Get("/search", m.searchUsers)
	users.Put("/me", m.updateProfile)
	users.Put("/me/password", m.changePassword)
	users.Delete("/me", m.deactivateAccount)
	users.Get("/:id", m.getUser)

	// Projects
	projects := api.Group("/projects", m.requireAuth())
	projects.Get("/", m.listProjects)
	projects.Post("/", m.createProject)
	projects.Get("/:id", m.getProject)
	projects.Put("/:id", m.updateProject)
	projects.Delete("/:id", m.deleteProject)
	projects.Post("/:id/archive", m.archiveProject)
	projects.Get("/:id/members", m.listMembers)
	projects.Post("/:id/members", m.addMember)
	projects.Put("/:id/members/:userID", m.updateMemberRole)
	projects.Delete("/:id/members/:userID", m.removeMember)
	projects.Get("/:id/activity", m.projectActivity)
	projects.Get("/:id/tags", m.listProjectTags)
	projects.Get("/:id/tasks", m.listTasks)
	projects.Post("/:id/tasks", m.createTask)

	// Tasks
	tasks := api.Group("/tasks", m.requireAuth())
	tasks.Get("/mine", m.listMyTasks)
	tasks.Get("/:id", m.getTask)
	tasks.Put("/:id", m.updateTask)
	tasks.Delete("/:id", m.deleteTask)
	tasks.Put("/:id/status", m.updateTaskStatus)
	tasks.Put("/:id/assign", m.assignTask)
	tasks.Post("/:id/complete", m.completeTask)
	tasks.Get("/:id/history", m.taskHistory)
	tasks.Get("/:id/comments", m.listComments)
	tasks.Post("/:id/comments", m.addComment)
	tasks.Get("/:id/tags", m.listTaskTags)
	tasks.Post("/:id/tags/:tagID", m.attachTag)
	tasks.Delete("/:id/tags/:tagID", m.detachTag)

	// Comments
	comments := api.Group("/comments", m.requireAuth())
	comments.Put("/:id", m.editComment)
	comments.Delete("/:id", m.deleteComment)

	// Tags
	tags := api.Group("/tags", m.requireAuth())
	tags.Get("/", m.listGlobalTags)
	tags.Post("/", m.createTag)
	tags.Get("/:id", m.getTag)
	tags.Put("/:id", m.updateTag)
	tags.Delete("/:id", m.deleteTag)
}

// healthHandler handles GET /health.
func (m *Module) healthHandler(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status: "healthy",
		Details: map[string]any{
			"module":            "api",
			"connected_clients": m.hub.ClientCount(),
		},
	})
}

// requireAuth resolves the Bearer token into the acting user ID.
func (m *Module) requireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Missing or malformed token",
			})
		}
		userID, err := m.identity.Service().Resolve(c.UserContext(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid or expired session",
			})
		}
		c.Locals("userID", userID)
		c.Locals("token", token)
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) string {
	auth := c.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

func actorID(c *fiber.Ctx) string {
	id, _ := c.Locals("userID").(string)
	return id
}
