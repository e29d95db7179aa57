package project

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/example/taskboard/domain/board"
)

// Repository provides access to project and roster storage.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new project repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// DB exposes the underlying handle for transaction scoping.
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// Create saves a new project.
func (r *Repository) Create(p *board.Project) error {
	if err := r.db.Create(p).Error; err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// FindByID retrieves a project by ID.
func (r *Repository) FindByID(id string) (*board.Project, error) {
	var p board.Project
	if err := r.db.First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, board.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	return &p, nil
}

// Save persists changes to an existing project.
func (r *Repository) Save(p *board.Project) error {
	if err := r.db.Save(p).Error; err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	return nil
}

// ListForUser returns the union of projects the user owns and projects where
// the user holds a roster row, filtered by the archived flag and ordered by
// most recent update.
func (r *Repository) ListForUser(userID string, archived bool) ([]*board.Project, error) {
	var projects []*board.Project
	memberIDs := r.db.Model(&board.ProjectMember{}).
		Select("project_id").
		Where("user_id = ?", userID)
	err := r.db.
		Where("is_archived = ?", archived).
		Where("owner_id = ? OR id IN (?)", userID, memberIDs).
		Order("updated_at DESC").
		Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// FindMember retrieves one roster row, or board.ErrNotFound.
func (r *Repository) FindMember(projectID, userID string) (*board.ProjectMember, error) {
	var m board.ProjectMember
	err := r.db.First(&m, "project_id = ? AND user_id = ?", projectID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, board.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find member: %w", err)
	}
	return &m, nil
}

// ListMembers returns a project's roster ordered by join time.
func (r *Repository) ListMembers(projectID string) ([]*board.ProjectMember, error) {
	var members []*board.ProjectMember
	err := r.db.Where("project_id = ?", projectID).
		Order("joined_at").
		Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}
