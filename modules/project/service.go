// Package project owns project lifecycle, the membership roster and the
// access policy derived from it.
package project

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/taskboard/domain/board"
	"github.com/example/taskboard/events"
	"github.com/example/taskboard/modules/activity"
)

// Service implements project and roster operations. Every mutation runs in
// one transaction together with its activity entry; events go out only after
// commit.
type Service struct {
	repo     *Repository
	access   *AccessService
	recorder *activity.Recorder
	notify   Notifier
}

// NewService creates a project service.
func NewService(repo *Repository, access *AccessService, recorder *activity.Recorder, notify Notifier) *Service {
	if notify == nil {
		notify = NopNotifier{}
	}
	return &Service{
		repo:     repo,
		access:   access,
		recorder: recorder,
		notify:   notify,
	}
}

// Access exposes the role resolver for other modules.
func (s *Service) Access() *AccessService {
	return s.access
}

// CreateParams are the caller-supplied project attributes.
type CreateParams struct {
	Name        string
	Description string
	Color       string
	Icon        string
}

// Create makes the actor the owner of a new, unarchived project. Any
// authenticated actor may create projects.
func (s *Service) Create(actorID string, params CreateParams) (*board.Project, error) {
	if params.Name == "" {
		return nil, fmt.Errorf("project name is required")
	}

	p := &board.Project{
		ID:          uuid.New().String(),
		Name:        params.Name,
		Description: params.Description,
		OwnerID:     actorID,
		Color:       params.Color,
		Icon:        params.Icon,
		IsArchived:  false,
	}
	if err := s.repo.Create(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns a project the actor can at least view.
func (s *Service) Get(ctx context.Context, actorID, projectID string) (*board.Project, error) {
	if _, err := s.access.Require(ctx, actorID, projectID, board.RoleViewer); err != nil {
		return nil, err
	}
	return s.repo.FindByID(projectID)
}

// List returns the actor's owned and joined projects.
func (s *Service) List(actorID string, archived bool) ([]*board.Project, error) {
	return s.repo.ListForUser(actorID, archived)
}

// UpdateParams carries optional metadata changes; nil fields are untouched.
type UpdateParams struct {
	Name        *string
	Description *string
	Color       *string
	Icon        *string
}

// Update changes project metadata. Requires admin.
func (s *Service) Update(ctx context.Context, actorID, projectID string, params UpdateParams) (*board.Project, error) {
	if _, err := s.access.Require(ctx, actorID, projectID, board.RoleAdmin); err != nil {
		return nil, err
	}
	p, err := s.repo.FindByID(projectID)
	if err != nil {
		return nil, err
	}

	if params.Name != nil {
		if *params.Name == "" {
			return nil, fmt.Errorf("project name cannot be empty")
		}
		p.Name = *params.Name
	}
	if params.Description != nil {
		p.Description = *params.Description
	}
	if params.Color != nil {
		p.Color = *params.Color
	}
	if params.Icon != nil {
		p.Icon = *params.Icon
	}
	if err := s.repo.Save(p); err != nil {
		return nil, err
	}

	s.notify.ProjectUpdated(events.ProjectUpdatedEvent{
		ProjectID: p.ID,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
	})
	return p, nil
}

// Delete archives the project. Restricted to the owner; admins cannot delete.
func (s *Service) Delete(ctx context.Context, actorID, projectID string) error {
	if err := s.access.RequireOwner(ctx, actorID, projectID); err != nil {
		return err
	}
	p, err := s.repo.FindByID(projectID)
	if err != nil {
		return err
	}
	if p.IsArchived {
		return nil
	}
	p.IsArchived = true
	if err := s.repo.Save(p); err != nil {
		return err
	}

	s.notify.ProjectArchived(events.ProjectArchivedEvent{
		ProjectID: p.ID,
		Archived:  true,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// ArchiveToggle flips the archived flag. Requires admin.
func (s *Service) ArchiveToggle(ctx context.Context, actorID, projectID string) (*board.Project, error) {
	if _, err := s.access.Require(ctx, actorID, projectID, board.RoleAdmin); err != nil {
		return nil, err
	}
	p, err := s.repo.FindByID(projectID)
	if err != nil {
		return nil, err
	}
	p.IsArchived = !p.IsArchived
	if err := s.repo.Save(p); err != nil {
		return nil, err
	}

	s.notify.ProjectArchived(events.ProjectArchivedEvent{
		ProjectID: p.ID,
		Archived:  p.IsArchived,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
	})
	return p, nil
}

// MemberEntry is one row of the member listing. The owner appears first with
// the synthetic owner role.
type MemberEntry struct {
	UserID   string     `json:"user_id"`
	Role     board.Role `json:"role"`
	JoinedAt time.Time  `json:"joined_at"`
}

// Members lists the roster with the owner prepended. Requires viewer.
func (s *Service) Members(ctx context.Context, actorID, projectID string) ([]MemberEntry, error) {
	if _, err := s.access.Require(ctx, actorID, projectID, board.RoleViewer); err != nil {
		return nil, err
	}
	p, err := s.repo.FindByID(projectID)
	if err != nil {
		return nil, err
	}
	members, err := s.repo.ListMembers(projectID)
	if err != nil {
		return nil, err
	}

	entries := make([]MemberEntry, 0, len(members)+1)
	entries = append(entries, MemberEntry{
		UserID:   p.OwnerID,
		Role:     board.RoleOwner,
		JoinedAt: p.CreatedAt,
	})
	for _, m := range members {
		entries = append(entries, MemberEntry{
			UserID:   m.UserID,
			Role:     m.Role,
			JoinedAt: m.JoinedAt,
		})
	}
	return entries, nil
}

// AddMember adds a user to the roster. Requires admin. The owner can never be
// a roster row, and a user can hold at most one row per project.
func (s *Service) AddMember(ctx context.Context, actorID, projectID, userID string, role board.Role) error {
	if _, err := s.access.Require(ctx, actorID, projectID, board.RoleAdmin); err != nil {
		return err
	}
	if role == "" {
		role = board.RoleMember
	}
	if !role.Valid() {
		return fmt.Errorf("invalid role %q", role)
	}

	p, err := s.repo.FindByID(projectID)
	if err != nil {
		return err
	}
	if p.OwnerID == userID {
		return board.ErrCannotAddOwner
	}
	var userCount int64
	if err := s.repo.DB().Model(&board.User{}).Where("id = ?", userID).Count(&userCount).Error; err != nil {
		return fmt.Errorf("failed to check user: %w", err)
	}
	if userCount == 0 {
		return fmt.Errorf("user %s: %w", userID, board.ErrNotFound)
	}
	if _, err := s.repo.FindMember(projectID, userID); err == nil {
		return board.ErrAlreadyMember
	} else if !errors.Is(err, board.ErrNotFound) {
		return err
	}

	member := &board.ProjectMember{
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
		JoinedAt:  time.Now().UTC(),
	}
	err = s.repo.DB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(member).Error; err != nil {
			return fmt.Errorf("failed to add member: %w", err)
		}
		return s.recorder.Record(tx, actorID, projectID, board.ActionMemberAdded, "", map[string]any{
			"user_id": userID,
			"role":    string(role),
		})
	})
	if err != nil {
		return err
	}

	s.access.Invalidate(ctx, projectID, userID)
	s.notify.MemberAdded(events.MemberAddedEvent{
		ProjectID: projectID,
		UserID:    userID,
		Role:      string(role),
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// UpdateMemberRole changes an existing roster row. Requires admin.
func (s *Service) UpdateMemberRole(ctx context.Context, actorID, projectID, userID string, role board.Role) error {
	if _, err := s.access.Require(ctx, actorID, projectID, board.RoleAdmin); err != nil {
		return err
	}
	if !role.Valid() {
		return fmt.Errorf("invalid role %q", role)
	}

	member, err := s.repo.FindMember(projectID, userID)
	if err != nil {
		if errors.Is(err, board.ErrNotFound) {
			return board.ErrNotAMember
		}
		return err
	}
	member.Role = role
	if err := s.repo.DB().Save(member).Error; err != nil {
		return fmt.Errorf("failed to update member role: %w", err)
	}

	s.access.Invalidate(ctx, projectID, userID)
	return nil
}

// RemoveMember deletes a roster row. Requires admin; the owner is never
// removable.
func (s *Service) RemoveMember(ctx context.Context, actorID, projectID, userID string) error {
	if _, err := s.access.Require(ctx, actorID, projectID, board.RoleAdmin); err != nil {
		return err
	}
	p, err := s.repo.FindByID(projectID)
	if err != nil {
		return err
	}
	if p.OwnerID == userID {
		return board.ErrCannotRemoveOwner
	}
	member, err := s.repo.FindMember(projectID, userID)
	if err != nil {
		if errors.Is(err, board.ErrNotFound) {
			return board.ErrNotAMember
		}
		return err
	}

	err = s.repo.DB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(member).Error; err != nil {
			return fmt.Errorf("failed to remove member: %w", err)
		}
		return s.recorder.Record(tx, actorID, projectID, board.ActionMemberRemoved, "", map[string]any{
			"user_id": userID,
		})
	})
	if err != nil {
		return err
	}

	s.access.Invalidate(ctx, projectID, userID)
	s.notify.MemberRemoved(events.MemberRemovedEvent{
		ProjectID: projectID,
		UserID:    userID,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
	})
	return nil
}
