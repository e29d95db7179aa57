package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/example/taskboard/modules/api"
	"github.com/example/taskboard/modules/broadcast"
	"github.com/example/taskboard/modules/cache"
	"github.com/example/taskboard/modules/identity"
	"github.com/example/taskboard/modules/project"
	"github.com/example/taskboard/modules/storage"
	"github.com/example/taskboard/modules/tag"
	"github.com/example/taskboard/modules/task"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== Taskboard - Collaborative Task Management ===")

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Create modules
	storageModule := storage.NewModule()
	cacheModule := cache.NewModule()
	identityModule := identity.NewModule(storageModule, cacheModule)
	projectModule := project.NewModule(storageModule, cacheModule)
	tagModule := tag.NewModule(storageModule, projectModule)
	taskModule := task.NewModule(storageModule, projectModule, tagModule)
	broadcastModule := broadcast.NewModule()
	apiModule := api.NewModule(identityModule, projectModule, tagModule, taskModule)

	// Inject broadcast hub into API module
	// (This is done manually because the hub is not exposed via ServiceContainer)
	apiModule.SetHub(broadcastModule.GetHub())

	// Register modules with the framework.
	// Order matters: each module pulls its dependencies in Start, so
	// providers come before consumers.
	app.Register(storageModule)   // SQLite via GORM, schema migration
	app.Register(cacheModule)     // Redis for sessions and role cache
	app.Register(identityModule)  // Accounts and sessions
	app.Register(projectModule)   // Projects, roster, access policy
	app.Register(tagModule)       // Global and project-scoped tags
	app.Register(taskModule)      // Task lifecycle, comments, activity
	app.Register(broadcastModule) // WebSocket hub + event consumer
	app.Register(apiModule)       // HTTP/WebSocket API

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo()

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Architecture:")
	log.Println("  - HTTP Framework: Fiber with WebSocket support")
	log.Println("  - Storage: SQLite via GORM")
	log.Println("  - Cache/Sessions: Redis")
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%s):", port)
	log.Println("  POST   /api/v1/auth/register        - Create an account")
	log.Println("  POST   /api/v1/auth/login           - Log in, receive a token")
	log.Println("  GET    /api/v1/projects             - List your projects")
	log.Println("  POST   /api/v1/projects/:id/tasks   - Create a task")
	log.Println("  PUT    /api/v1/tasks/:id/status     - Move a task")
	log.Println("  ...and the rest of the board API under /api/v1")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws?token=...):", port)
	log.Println("  Message types: join_project, leave_project")
	log.Println("  Server events: task_*, comment_added, member_*, project_*")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
