package tag

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/example/taskboard/domain/board"
)

// Repository provides access to tag storage.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new tag repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// DB exposes the underlying handle for transaction scoping.
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// Create saves a new tag.
func (r *Repository) Create(t *board.Tag) error {
	if err := r.db.Create(t).Error; err != nil {
		return fmt.Errorf("failed to create tag: %w", err)
	}
	return nil
}

// FindByID retrieves a tag by ID.
func (r *Repository) FindByID(id string) (*board.Tag, error) {
	var t board.Tag
	if err := r.db.First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, board.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find tag: %w", err)
	}
	return &t, nil
}

// FindByIDs retrieves several tags at once. Missing IDs are simply absent from
// the result; the caller decides whether that is an error.
func (r *Repository) FindByIDs(ids []string) ([]*board.Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var tags []*board.Tag
	if err := r.db.Where("id IN ?", ids).Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to find tags: %w", err)
	}
	return tags, nil
}

// Save persists changes to an existing tag.
func (r *Repository) Save(t *board.Tag) error {
	if err := r.db.Save(t).Error; err != nil {
		return fmt.Errorf("failed to save tag: %w", err)
	}
	return nil
}

// NameTaken reports whether a tag with the given name already exists in the
// scope. projectID nil means the global scope; the global and per-project
// namespaces never collide with each other.
func (r *Repository) NameTaken(name string, projectID *string, excludeID string) (bool, error) {
	q := r.db.Model(&board.Tag{}).Where("name = ?", name)
	if projectID == nil {
		q = q.Where("project_id IS NULL")
	} else {
		q = q.Where("project_id = ?", *projectID)
	}
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check tag name: %w", err)
	}
	return count > 0, nil
}

// ListGlobal returns all global tags ordered by name.
func (r *Repository) ListGlobal() ([]*board.Tag, error) {
	var tags []*board.Tag
	err := r.db.Where("project_id IS NULL").Order("name").Find(&tags).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list global tags: %w", err)
	}
	return tags, nil
}

// ListForProject returns a project's tags ordered by name.
func (r *Repository) ListForProject(projectID string) ([]*board.Tag, error) {
	var tags []*board.Tag
	err := r.db.Where("project_id = ?", projectID).Order("name").Find(&tags).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list project tags: %w", err)
	}
	return tags, nil
}

// ListForTask returns the tags attached to a task ordered by name.
func (r *Repository) ListForTask(taskID string) ([]*board.Tag, error) {
	var tags []*board.Tag
	err := r.db.
		Joins("JOIN task_tags ON task_tags.tag_id = tags.id").
		Where("task_tags.task_id = ?", taskID).
		Order("tags.name").
		Find(&tags).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list task tags: %w", err)
	}
	return tags, nil
}
