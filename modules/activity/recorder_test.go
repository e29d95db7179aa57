package activity

import (
	"encoding/json"
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/taskboard/domain/board"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&board.ActivityLog{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func TestRecordWritesEntry(t *testing.T) {
	db := setupTestDB(t)
	rec := NewRecorder()

	err := rec.Record(db, "actor-1", "project-1", board.ActionCreated, "task-1", map[string]any{
		"title": "Ship it",
	})
	if err != nil {
		t.Fatalf("Record() error: %v", err)
	}

	var entry board.ActivityLog
	if err := db.First(&entry).Error; err != nil {
		t.Fatalf("failed to load entry: %v", err)
	}
	if entry.UserID != "actor-1" || entry.ProjectID != "project-1" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.TaskID == nil || *entry.TaskID != "task-1" {
		t.Errorf("task_id = %v, want task-1", entry.TaskID)
	}
	var details map[string]any
	if err := json.Unmarshal([]byte(entry.Details), &details); err != nil {
		t.Fatalf("details are not JSON: %v", err)
	}
	if details["title"] != "Ship it" {
		t.Errorf("details = %v", details)
	}
}

func TestRecordProjectLevelEntry(t *testing.T) {
	db := setupTestDB(t)
	rec := NewRecorder()

	if err := rec.Record(db, "actor-1", "project-1", board.ActionMemberAdded, "", nil); err != nil {
		t.Fatalf("Record() error: %v", err)
	}

	var entry board.ActivityLog
	if err := db.First(&entry).Error; err != nil {
		t.Fatalf("failed to load entry: %v", err)
	}
	if entry.TaskID != nil {
		t.Errorf("task_id = %v, want nil", entry.TaskID)
	}
	if entry.Details != "" {
		t.Errorf("details = %q, want empty", entry.Details)
	}
}

// An aborted transaction must leave no ledger entry behind.
func TestRecordRollsBackWithTransaction(t *testing.T) {
	db := setupTestDB(t)
	rec := NewRecorder()
	sentinel := errors.New("boom")

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := rec.Record(tx, "actor-1", "project-1", board.ActionCreated, "task-1", nil); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("transaction error = %v, want sentinel", err)
	}

	var n int64
	db.Model(&board.ActivityLog{}).Count(&n)
	if n != 0 {
		t.Errorf("entries after rollback = %d, want 0", n)
	}
}

func TestRepositoryOrdering(t *testing.T) {
	db := setupTestDB(t)
	rec := NewRecorder()
	repo := NewRepository(db)

	actions := []board.Action{board.ActionCreated, board.ActionStatusChanged, board.ActionCompleted}
	for _, a := range actions {
		if err := rec.Record(db, "actor-1", "project-1", a, "task-1", nil); err != nil {
			t.Fatalf("Record() error: %v", err)
		}
	}

	entries, err := repo.ForTask("task-1", 0)
	if err != nil {
		t.Fatalf("ForTask() error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}

	limited, err := repo.ForProject("project-1", 2)
	if err != nil {
		t.Fatalf("ForProject() error: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limited entries = %d, want 2", len(limited))
	}
}
