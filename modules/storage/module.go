// Package storage owns the shared GORM/SQLite connection used by every
// repository in the application.
package storage

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-monolith/mono"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/taskboard/domain/board"
)

// Module provides the database connection as a mono module.
type Module struct {
	db     *gorm.DB
	dbPath string
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new storage module. The database path comes from
// DB_PATH, defaulting to taskboard.db.
func NewModule() *Module {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "taskboard.db"
	}
	return &Module{
		dbPath: dbPath,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "storage"
}

// Init opens the database and runs migrations. It runs during registration,
// before any dependent module starts.
func (m *Module) Init(_ mono.ServiceContainer) error {
	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "true" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	// Parents before children so foreign keys resolve.
	if err := m.db.AutoMigrate(
		&board.User{},
		&board.Project{},
		&board.ProjectMember{},
		&board.Task{},
		&board.Tag{},
		&board.TaskTag{},
		&board.Comment{},
		&board.ActivityLog{},
	); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Printf("[storage] Connected to SQLite database: %s", m.dbPath)
	return nil
}

// Start is a no-op; the connection is established in Init.
func (m *Module) Start(_ context.Context) error {
	log.Println("[storage] Module started")
	return nil
}

// Stop gracefully closes the database connection.
func (m *Module) Stop(_ context.Context) error {
	if m.db == nil {
		return nil
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	log.Println("[storage] Database connection closed")
	return nil
}

// Health performs a connection ping.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get sql.DB: %v", err),
		}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": "sqlite",
			"path":   m.dbPath,
		},
	}
}

// DB returns the shared connection for dependent modules.
func (m *Module) DB() *gorm.DB {
	return m.db
}
