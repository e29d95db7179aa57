// Package tag owns labels in two scopes: global tags usable everywhere and
// project tags usable only inside their project.
package tag

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/taskboard/domain/board"
	"github.com/example/taskboard/modules/project"
)

// Service implements tag operations.
type Service struct {
	repo   *Repository
	access *project.AccessService
}

// NewService creates a tag service.
func NewService(repo *Repository, access *project.AccessService) *Service {
	return &Service{repo: repo, access: access}
}

// CreateParams are the caller-supplied tag attributes. A nil ProjectID puts
// the tag in the global scope.
type CreateParams struct {
	Name      string
	Color     string
	ProjectID *string
}

// Create makes a new tag. Project-scoped tags require member on the project;
// any authenticated actor may create global tags. Names are unique per scope.
func (s *Service) Create(ctx context.Context, actorID string, params CreateParams) (*board.Tag, error) {
	if params.Name == "" {
		return nil, fmt.Errorf("tag name is required")
	}
	if params.ProjectID != nil {
		if _, err := s.access.Require(ctx, actorID, *params.ProjectID, board.RoleMember); err != nil {
			return nil, err
		}
	}

	taken, err := s.repo.NameTaken(params.Name, params.ProjectID, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("tag %q: %w", params.Name, board.ErrDuplicateTagName)
	}

	t := &board.Tag{
		ID:        uuid.New().String(),
		Name:      params.Name,
		Color:     params.Color,
		ProjectID: params.ProjectID,
	}
	if err := s.repo.Create(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Get returns one tag. Project-scoped tags require viewer on the project.
func (s *Service) Get(ctx context.Context, actorID, tagID string) (*board.Tag, error) {
	t, err := s.repo.FindByID(tagID)
	if err != nil {
		return nil, err
	}
	if !t.IsGlobal() {
		if _, err := s.access.Require(ctx, actorID, *t.ProjectID, board.RoleViewer); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// UpdateParams carries optional tag changes; nil fields are untouched.
type UpdateParams struct {
	Name  *string
	Color *string
}

// Update changes a project tag. Global tags are immutable through the API;
// renames re-check the per-scope uniqueness rule.
func (s *Service) Update(ctx context.Context, actorID, tagID string, params UpdateParams) (*board.Tag, error) {
	t, err := s.repo.FindByID(tagID)
	if err != nil {
		return nil, err
	}
	if t.IsGlobal() {
		return nil, board.ErrGlobalTagImmutable
	}
	if _, err := s.access.Require(ctx, actorID, *t.ProjectID, board.RoleMember); err != nil {
		return nil, err
	}

	if params.Name != nil && *params.Name != t.Name {
		if *params.Name == "" {
			return nil, fmt.Errorf("tag name cannot be empty")
		}
		taken, err := s.repo.NameTaken(*params.Name, t.ProjectID, t.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, fmt.Errorf("tag %q: %w", *params.Name, board.ErrDuplicateTagName)
		}
		t.Name = *params.Name
	}
	if params.Color != nil {
		t.Color = *params.Color
	}
	if err := s.repo.Save(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes a project tag and all of its task links. Global tags are
// immutable through the API.
func (s *Service) Delete(ctx context.Context, actorID, tagID string) error {
	t, err := s.repo.FindByID(tagID)
	if err != nil {
		return err
	}
	if t.IsGlobal() {
		return board.ErrGlobalTagImmutable
	}
	if _, err := s.access.Require(ctx, actorID, *t.ProjectID, board.RoleMember); err != nil {
		return err
	}

	return s.repo.DB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tag_id = ?", t.ID).Delete(&board.TaskTag{}).Error; err != nil {
			return fmt.Errorf("failed to delete tag links: %w", err)
		}
		if err := tx.Delete(t).Error; err != nil {
			return fmt.Errorf("failed to delete tag: %w", err)
		}
		return nil
	})
}

// ListForProject returns the tags usable inside a project: the project's own
// tags plus every global tag. Requires viewer.
func (s *Service) ListForProject(ctx context.Context, actorID, projectID string) ([]*board.Tag, error) {
	if _, err := s.access.Require(ctx, actorID, projectID, board.RoleViewer); err != nil {
		return nil, err
	}
	scoped, err := s.repo.ListForProject(projectID)
	if err != nil {
		return nil, err
	}
	global, err := s.repo.ListGlobal()
	if err != nil {
		return nil, err
	}
	return append(scoped, global...), nil
}

// ListGlobal returns every global tag.
func (s *Service) ListGlobal() ([]*board.Tag, error) {
	return s.repo.ListGlobal()
}

// ResolveForTask validates a set of tag IDs for attachment to a task in the
// given project. Every ID must exist and every tag must be global or scoped
// to that same project. Returns the resolved tags in no particular order.
func (s *Service) ResolveForTask(tagIDs []string, projectID string) ([]*board.Tag, error) {
	tags, err := s.repo.FindByIDs(tagIDs)
	if err != nil {
		return nil, err
	}
	found := make(map[string]bool, len(tags))
	for _, t := range tags {
		found[t.ID] = true
		if !t.IsGlobal() && *t.ProjectID != projectID {
			return nil, fmt.Errorf("tag %s belongs to another project: %w", t.ID, board.ErrTagScopeMismatch)
		}
	}
	for _, id := range tagIDs {
		if !found[id] {
			return nil, fmt.Errorf("tag %s: %w", id, board.ErrNotFound)
		}
	}
	return tags, nil
}

// ListForTask returns a task's attached tags. Access is checked by the task
// module before it calls here.
func (s *Service) ListForTask(taskID string) ([]*board.Tag, error) {
	return s.repo.ListForTask(taskID)
}
