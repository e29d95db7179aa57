package task

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/example/taskboard/domain/board"
)

// Repository provides access to task and comment storage.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new task repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// DB exposes the underlying handle for transaction scoping.
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// FindByID retrieves a task by ID.
func (r *Repository) FindByID(id string) (*board.Task, error) {
	var t board.Task
	if err := r.db.First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, board.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return &t, nil
}

// Save persists changes to an existing task.
func (r *Repository) Save(t *board.Task) error {
	if err := r.db.Save(t).Error; err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	return nil
}

// Filter narrows a project task listing. Zero values mean no constraint; set
// AssigneeID to filter by assignee, Unassigned to select tasks with none.
type Filter struct {
	Status     board.Status
	Priority   board.Priority
	AssigneeID string
	Unassigned bool
	DueBefore  *time.Time
	Search     string
}

// ListForProject returns a project's tasks, most recently updated first.
func (r *Repository) ListForProject(projectID string, f Filter) ([]*board.Task, error) {
	q := r.db.Where("project_id = ?", projectID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", f.Priority)
	}
	if f.Unassigned {
		q = q.Where("assignee_id IS NULL")
	} else if f.AssigneeID != "" {
		q = q.Where("assignee_id = ?", f.AssigneeID)
	}
	if f.DueBefore != nil {
		q = q.Where("due_date IS NOT NULL AND due_date <= ?", *f.DueBefore)
	}
	if f.Search != "" {
		pattern := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var tasks []*board.Task
	if err := q.Order("updated_at DESC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// ListAssignedTo returns every task assigned to a user across projects,
// most recently updated first.
func (r *Repository) ListAssignedTo(userID string) ([]*board.Task, error) {
	var tasks []*board.Task
	err := r.db.Where("assignee_id = ?", userID).
		Order("updated_at DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assigned tasks: %w", err)
	}
	return tasks, nil
}

// FindComment retrieves a comment by ID.
func (r *Repository) FindComment(id string) (*board.Comment, error) {
	var c board.Comment
	if err := r.db.First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, board.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find comment: %w", err)
	}
	return &c, nil
}

// ListComments returns a task's comments, oldest first.
func (r *Repository) ListComments(taskID string) ([]*board.Comment, error) {
	var comments []*board.Comment
	err := r.db.Where("task_id = ?", taskID).
		Order("created_at").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

// AttachedTagIDs returns the IDs of tags currently linked to a task.
func (r *Repository) AttachedTagIDs(taskID string) (map[string]bool, error) {
	var links []board.TaskTag
	if err := r.db.Where("task_id = ?", taskID).Find(&links).Error; err != nil {
		return nil, fmt.Errorf("failed to load tag links: %w", err)
	}
	attached := make(map[string]bool, len(links))
	for _, l := range links {
		attached[l.TagID] = true
	}
	return attached, nil
}
