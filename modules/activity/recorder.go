// Package activity maintains the append-only activity ledger. Entries are
// written inside the calling mutation's transaction and never modified.
package activity

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/taskboard/domain/board"
)

// Recorder appends ledger entries. It carries no state; the transaction
// handle comes from the caller so an aborted mutation leaves no entry.
type Recorder struct{}

// NewRecorder creates a Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends one entry using the caller's transaction. taskID may be
// empty for project-level actions. details is marshaled to JSON.
func (r *Recorder) Record(tx *gorm.DB, actorID, projectID string, action board.Action, taskID string, details map[string]any) error {
	var detailJSON string
	if len(details) > 0 {
		data, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("failed to encode activity details: %w", err)
		}
		detailJSON = string(data)
	}

	entry := &board.ActivityLog{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		UserID:    actorID,
		ProjectID: projectID,
		Action:    action,
		Details:   detailJSON,
	}
	if taskID != "" {
		entry.TaskID = &taskID
	}

	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append activity entry: %w", err)
	}
	return nil
}

// Repository reads the ledger.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates an activity repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ForTask returns a task's entries, newest first.
func (r *Repository) ForTask(taskID string, limit int) ([]*board.ActivityLog, error) {
	var entries []*board.ActivityLog
	q := r.db.Where("task_id = ?", taskID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to load task activity: %w", err)
	}
	return entries, nil
}

// ForProject returns a project's entries, newest first.
func (r *Repository) ForProject(projectID string, limit int) ([]*board.ActivityLog, error) {
	var entries []*board.ActivityLog
	q := r.db.Where("project_id = ?", projectID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to load project activity: %w", err)
	}
	return entries, nil
}
