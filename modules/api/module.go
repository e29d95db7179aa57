// Package api exposes the HTTP and WebSocket surface. Handlers validate and
// translate; all policy lives in the domain modules.
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/taskboard/domain/board"
	"github.com/example/taskboard/modules/broadcast"
	"github.com/example/taskboard/modules/identity"
	"github.com/example/taskboard/modules/project"
	"github.com/example/taskboard/modules/tag"
	"github.com/example/taskboard/modules/task"
)

// Module is the HTTP API module with WebSocket support.
type Module struct {
	app      *fiber.App
	identity *identity.Module
	project  *project.Module
	tag      *tag.Module
	task     *task.Module
	hub      *broadcast.Hub
	port     string
	origins  string
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates the API module.
func NewModule(identityModule *identity.Module, projectModule *project.Module, tagModule *tag.Module, taskModule *task.Module) *Module {
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	origins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if origins == "" {
		origins = "*"
	}
	return &Module{
		identity: identityModule,
		project:  projectModule,
		tag:      tagModule,
		task:     taskModule,
		port:     port,
		origins:  origins,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "api"
}

// SetHub sets the broadcast hub (called from main.go).
func (m *Module) SetHub(hub *broadcast.Hub) {
	m.hub = hub
}

// Start initializes the Fiber HTTP server.
func (m *Module) Start(_ context.Context) error {
	if m.hub == nil {
		return fmt.Errorf("broadcast hub dependency not set")
	}

	m.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		IdleTimeout:           120 * time.Second,
	})

	m.app.Use(recover.New())
	m.app.Use(cors.New(cors.Config{
		AllowOrigins: m.origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	m.app.Use(loggerMiddleware())

	m.setupRoutes()

	go func() {
		if err := m.app.Listen(":" + m.port); err != nil {
			log.Printf("[api] HTTP server error: %v", err)
		}
	}()

	log.Printf("[api] HTTP server started on :%s", m.port)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *Module) Stop(_ context.Context) error {
	if m.app == nil {
		return nil
	}
	log.Println("[api] Shutting down HTTP server...")
	return m.app.Shutdown()
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"port":              m.port,
			"connected_clients": m.hub.ClientCount(),
		},
	}
}

// customErrorHandler handles Fiber errors.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}

// loggerMiddleware returns a Fiber middleware for request logging.
func loggerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Skip logging for WebSocket upgrade requests
		if c.Get("Upgrade") == "websocket" {
			return c.Next()
		}
		err := c.Next()
		log.Printf("[api] %s %s %d", c.Method(), c.Path(), c.Response().StatusCode())
		return err
	}
}

// respondError maps domain errors to HTTP statuses.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, board.ErrNotFound), errors.Is(err, board.ErrNotAMember):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, board.ErrAccessDenied), errors.Is(err, board.ErrNotCommentAuthor):
		return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
			Error:   "access_denied",
			Message: err.Error(),
		})
	case errors.Is(err, identity.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "invalid_credentials",
			Message: err.Error(),
		})
	case errors.Is(err, board.ErrConflict),
		errors.Is(err, board.ErrDuplicateTagName),
		errors.Is(err, board.ErrAlreadyMember),
		errors.Is(err, board.ErrCannotAddOwner),
		errors.Is(err, board.ErrCannotRemoveOwner):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error:   "conflict",
			Message: err.Error(),
		})
	case errors.Is(err, board.ErrInvalidAssignee),
		errors.Is(err, board.ErrTagScopeMismatch),
		errors.Is(err, board.ErrGlobalTagImmutable):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{
			Error:   "invalid_state",
			Message: err.Error(),
		})
	default:
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "request_failed",
			Message: err.Error(),
		})
	}
}
