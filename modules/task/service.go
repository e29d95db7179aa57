// Package task owns the task lifecycle: creation, field updates, the status
// machine, assignment, tags on tasks and comments.
package task

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/taskboard/domain/board"
	"github.com/example/taskboard/events"
	"github.com/example/taskboard/modules/activity"
	"github.com/example/taskboard/modules/project"
	"github.com/example/taskboard/modules/tag"
)

// Service implements task operations. Every mutation runs in one transaction
// together with its activity entries; events go out only after commit.
type Service struct {
	repo        *Repository
	access      *project.AccessService
	tags        *tag.Service
	recorder    *activity.Recorder
	activityLog *activity.Repository
	notify      Notifier
}

// NewService creates a task service.
func NewService(repo *Repository, access *project.AccessService, tags *tag.Service, recorder *activity.Recorder, activityLog *activity.Repository, notify Notifier) *Service {
	if notify == nil {
		notify = NopNotifier{}
	}
	return &Service{
		repo:        repo,
		access:      access,
		tags:        tags,
		recorder:    recorder,
		activityLog: activityLog,
		notify:      notify,
	}
}

// validAssignee checks that the user is the project owner or holds a roster
// row. Anyone else cannot be assigned.
func (s *Service) validAssignee(ctx context.Context, userID, projectID string) error {
	role, err := s.access.EffectiveRole(ctx, userID, projectID)
	if err != nil {
		return err
	}
	if role == board.RoleNone {
		return fmt.Errorf("user %s is not a member of project %s: %w", userID, projectID, board.ErrInvalidAssignee)
	}
	return nil
}

// CreateParams are the caller-supplied task attributes. Status defaults to
// todo and priority to medium.
type CreateParams struct {
	Title          string
	Description    string
	AssigneeID     *string
	Status         board.Status
	Priority       board.Priority
	DueDate        *time.Time
	EstimatedHours *float64
	TagIDs         []string
}

// Create makes a new task in the project. Requires member. The assignee, if
// given, must be the owner or a member; the tag batch is all-or-nothing.
func (s *Service) Create(ctx context.Context, actorID, projectID string, params CreateParams) (*board.Task, error) {
	if _, err := s.access.Require(ctx, actorID, projectID, board.RoleMember); err != nil {
		return nil, err
	}
	if params.Title == "" {
		return nil, fmt.Errorf("task title is required")
	}
	if params.Status == "" {
		params.Status = board.StatusTodo
	}
	if !params.Status.Valid() {
		return nil, fmt.Errorf("invalid status %q", params.Status)
	}
	if params.Priority == "" {
		params.Priority = board.PriorityMedium
	}
	if !params.Priority.Valid() {
		return nil, fmt.Errorf("invalid priority %q", params.Priority)
	}
	if params.AssigneeID != nil {
		if err := s.validAssignee(ctx, *params.AssigneeID, projectID); err != nil {
			return nil, err
		}
	}
	resolved, err := s.tags.ResolveForTask(params.TagIDs, projectID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	t := &board.Task{
		ID:             uuid.New().String(),
		Title:          params.Title,
		Description:    params.Description,
		ProjectID:      projectID,
		CreatorID:      actorID,
		AssigneeID:     params.AssigneeID,
		Status:         board.StatusTodo,
		Priority:       params.Priority,
		DueDate:        params.DueDate,
		EstimatedHours: params.EstimatedHours,
	}
	t.ApplyStatus(params.Status, now)

	err = s.repo.DB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(t).Error; err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		for _, rt := range resolved {
			link := &board.TaskTag{TaskID: t.ID, TagID: rt.ID}
			if err := tx.Create(link).Error; err != nil {
				return fmt.Errorf("failed to attach tag: %w", err)
			}
		}
		return s.recorder.Record(tx, actorID, projectID, board.ActionCreated, t.ID, map[string]any{
			"title": t.Title,
		})
	})
	if err != nil {
		return nil, err
	}

	s.notify.TaskCreated(events.TaskCreatedEvent{
		TaskID:    t.ID,
		ProjectID: projectID,
		Title:     t.Title,
		ActorID:   actorID,
		Timestamp: now,
	})
	if t.AssigneeID != nil {
		s.notify.TaskAssigned(events.TaskAssignedEvent{
			TaskID:     t.ID,
			ProjectID:  projectID,
			AssigneeID: *t.AssigneeID,
			ActorID:    actorID,
			Timestamp:  now,
		})
	}
	return t, nil
}

// Get returns a task the actor can at least view.
func (s *Service) Get(ctx context.Context, actorID, taskID string) (*board.Task, error) {
	t, err := s.repo.FindByID(taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.access.Require(ctx, actorID, t.ProjectID, board.RoleViewer); err != nil {
		return nil, err
	}
	return t, nil
}

// List returns a project's tasks filtered by f. Requires viewer.
func (s *Service) List(ctx context.Context, actorID, projectID string, f Filter) ([]*board.Task, error) {
	if _, err := s.access.Require(ctx, actorID, projectID, board.RoleViewer); err != nil {
		return nil, err
	}
	return s.repo.ListForProject(projectID, f)
}

// ListMine returns every task assigned to the actor across projects.
func (s *Service) ListMine(actorID string) ([]*board.Task, error) {
	return s.repo.ListAssignedTo(actorID)
}

// UpdateParams carries optional task changes. Outer nil means untouched; for
// the nullable fields the inner nil clears the value.
type UpdateParams struct {
	Title          *string
	Description    *string
	Status         *board.Status
	Priority       *board.Priority
	AssigneeID     **string
	DueDate        **time.Time
	EstimatedHours **float64
	ActualHours    **float64
	TagIDs         *[]string
}

// Update applies a field diff to the task. Requires member. Changed fields
// are logged as one updated entry with old/new values; a status change
// additionally gets its own status_changed entry. TagIDs, when present,
// replaces the attachment set all-or-nothing.
func (s *Service) Update(ctx context.Context, actorID, taskID string, params UpdateParams) (*board.Task, error) {
	t, err := s.repo.FindByID(taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.access.Require(ctx, actorID, t.ProjectID, board.RoleMember); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	changes := map[string]events.FieldChange{}
	var oldStatus, newStatus board.Status
	var assigneeChanged bool
	var completedNow bool

	if params.Title != nil && *params.Title != t.Title {
		if *params.Title == "" {
			return nil, fmt.Errorf("task title cannot be empty")
		}
		changes["title"] = events.FieldChange{Old: t.Title, New: *params.Title}
		t.Title = *params.Title
	}
	if params.Description != nil && *params.Description != t.Description {
		changes["description"] = events.FieldChange{Old: t.Description, New: *params.Description}
		t.Description = *params.Description
	}
	if params.Priority != nil && *params.Priority != t.Priority {
		if !params.Priority.Valid() {
			return nil, fmt.Errorf("invalid priority %q", *params.Priority)
		}
		changes["priority"] = events.FieldChange{Old: string(t.Priority), New: string(*params.Priority)}
		t.Priority = *params.Priority
	}
	if params.Status != nil && *params.Status != t.Status {
		if !params.Status.Valid() {
			return nil, fmt.Errorf("invalid status %q", *params.Status)
		}
		oldStatus = t.ApplyStatus(*params.Status, now)
		newStatus = t.Status
		completedNow = newStatus == board.StatusDone
		changes["status"] = events.FieldChange{Old: string(oldStatus), New: string(newStatus)}
	}
	if params.AssigneeID != nil && !equalPtr(*params.AssigneeID, t.AssigneeID) {
		if *params.AssigneeID != nil {
			if err := s.validAssignee(ctx, **params.AssigneeID, t.ProjectID); err != nil {
				return nil, err
			}
		}
		changes["assignee_id"] = events.FieldChange{Old: strPtr(t.AssigneeID), New: strPtr(*params.AssigneeID)}
		t.AssigneeID = *params.AssigneeID
		assigneeChanged = true
	}
	if params.DueDate != nil && !equalTimePtr(*params.DueDate, t.DueDate) {
		changes["due_date"] = events.FieldChange{Old: timePtr(t.DueDate), New: timePtr(*params.DueDate)}
		t.DueDate = *params.DueDate
	}
	if params.EstimatedHours != nil && !equalFloatPtr(*params.EstimatedHours, t.EstimatedHours) {
		changes["estimated_hours"] = events.FieldChange{Old: floatPtr(t.EstimatedHours), New: floatPtr(*params.EstimatedHours)}
		t.EstimatedHours = *params.EstimatedHours
	}
	if params.ActualHours != nil && !equalFloatPtr(*params.ActualHours, t.ActualHours) {
		changes["actual_hours"] = events.FieldChange{Old: floatPtr(t.ActualHours), New: floatPtr(*params.ActualHours)}
		t.ActualHours = *params.ActualHours
	}

	var addTags []string
	var removeTags []string
	if params.TagIDs != nil {
		resolved, err := s.tags.ResolveForTask(*params.TagIDs, t.ProjectID)
		if err != nil {
			return nil, err
		}
		attached, err := s.repo.AttachedTagIDs(t.ID)
		if err != nil {
			return nil, err
		}
		wanted := make(map[string]bool, len(resolved))
		for _, rt := range resolved {
			wanted[rt.ID] = true
			if !attached[rt.ID] {
				addTags = append(addTags, rt.ID)
			}
		}
		for id := range attached {
			if !wanted[id] {
				removeTags = append(removeTags, id)
			}
		}
	}

	if len(changes) == 0 && len(addTags) == 0 && len(removeTags) == 0 {
		return t, nil
	}

	err = s.repo.DB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(t).Error; err != nil {
			return fmt.Errorf("failed to save task: %w", err)
		}
		for _, id := range addTags {
			if err := tx.Create(&board.TaskTag{TaskID: t.ID, TagID: id}).Error; err != nil {
				return fmt.Errorf("failed to attach tag: %w", err)
			}
		}
		if len(removeTags) > 0 {
			err := tx.Where("task_id = ? AND tag_id IN ?", t.ID, removeTags).
				Delete(&board.TaskTag{}).Error
			if err != nil {
				return fmt.Errorf("failed to detach tags: %w", err)
			}
		}
		if len(changes) > 0 {
			details := make(map[string]any, len(changes))
			for field, ch := range changes {
				details[field] = map[string]any{"old": ch.Old, "new": ch.New}
			}
			if err := s.recorder.Record(tx, actorID, t.ProjectID, board.ActionUpdated, t.ID, details); err != nil {
				return err
			}
		}
		if newStatus != "" {
			err := s.recorder.Record(tx, actorID, t.ProjectID, board.ActionStatusChanged, t.ID, map[string]any{
				"old": string(oldStatus),
				"new": string(newStatus),
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(changes) > 0 {
		s.notify.TaskUpdated(events.TaskUpdatedEvent{
			TaskID:    t.ID,
			ProjectID: t.ProjectID,
			Changes:   changes,
			ActorID:   actorID,
			Timestamp: now,
		})
	}
	if newStatus != "" {
		s.notify.TaskStatusChanged(events.TaskStatusChangedEvent{
			TaskID:    t.ID,
			ProjectID: t.ProjectID,
			OldStatus: string(oldStatus),
			NewStatus: string(newStatus),
			ActorID:   actorID,
			Timestamp: now,
		})
	}
	if completedNow {
		s.notify.TaskCompleted(events.TaskCompletedEvent{
			TaskID:    t.ID,
			ProjectID: t.ProjectID,
			ActorID:   actorID,
			Timestamp: now,
		})
	}
	if assigneeChanged {
		s.notify.TaskAssigned(events.TaskAssignedEvent{
			TaskID:     t.ID,
			ProjectID:  t.ProjectID,
			AssigneeID: strPtr(t.AssigneeID),
			ActorID:    actorID,
			Timestamp:  now,
		})
	}
	return t, nil
}

// UpdateStatus moves the task through the status machine. Requires member.
// Any transition is legal; a same-status call is a no-op.
func (s *Service) UpdateStatus(ctx context.Context, actorID, taskID string, next board.Status) (*board.Task, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("invalid status %q", next)
	}
	t, err := s.repo.FindByID(taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.access.Require(ctx, actorID, t.ProjectID, board.RoleMember); err != nil {
		return nil, err
	}
	if t.Status == next {
		return t, nil
	}

	now := time.Now().UTC()
	prev := t.ApplyStatus(next, now)

	err = s.repo.DB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(t).Error; err != nil {
			return fmt.Errorf("failed to save task: %w", err)
		}
		return s.recorder.Record(tx, actorID, t.ProjectID, board.ActionStatusChanged, t.ID, map[string]any{
			"old": string(prev),
			"new": string(next),
		})
	})
	if err != nil {
		return nil, err
	}

	s.notify.TaskStatusChanged(events.TaskStatusChangedEvent{
		TaskID:    t.ID,
		ProjectID: t.ProjectID,
		OldStatus: string(prev),
		NewStatus: string(next),
		ActorID:   actorID,
		Timestamp: now,
	})
	if next == board.StatusDone {
		s.notify.TaskCompleted(events.TaskCompletedEvent{
			TaskID:    t.ID,
			ProjectID: t.ProjectID,
			ActorID:   actorID,
			Timestamp: now,
		})
	}
	return t, nil
}

// Assign sets or clears (nil) the task's assignee. Requires member. The
// assignee must be the project owner or a member.
func (s *Service) Assign(ctx context.Context, actorID, taskID string, assigneeID *string) (*board.Task, error) {
	t, err := s.repo.FindByID(taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.access.Require(ctx, actorID, t.ProjectID, board.RoleMember); err != nil {
		return nil, err
	}
	if assigneeID != nil {
		if err := s.validAssignee(ctx, *assigneeID, t.ProjectID); err != nil {
			return nil, err
		}
	}

	previous := t.AssigneeID
	t.AssigneeID = assigneeID
	now := time.Now().UTC()

	err = s.repo.DB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(t).Error; err != nil {
			return fmt.Errorf("failed to save task: %w", err)
		}
		details := map[string]any{"assignee_id": nil, "previous_assignee_id": nil}
		if assigneeID != nil {
			details["assignee_id"] = *assigneeID
		}
		if previous != nil {
			details["previous_assignee_id"] = *previous
		}
		return s.recorder.Record(tx, actorID, t.ProjectID, board.ActionAssigned, t.ID, details)
	})
	if err != nil {
		return nil, err
	}

	s.notify.TaskAssigned(events.TaskAssignedEvent{
		TaskID:     t.ID,
		ProjectID:  t.ProjectID,
		AssigneeID: strPtr(assigneeID),
		ActorID:    actorID,
		Timestamp:  now,
	})
	return t, nil
}

// Complete marks the task done. Requires member. Logs a completed entry in
// addition to the status transition.
func (s *Service) Complete(ctx context.Context, actorID, taskID string) (*board.Task, error) {
	t, err := s.repo.FindByID(taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.access.Require(ctx, actorID, t.ProjectID, board.RoleMember); err != nil {
		return nil, err
	}
	if t.Status == board.StatusDone {
		return t, nil
	}

	now := time.Now().UTC()
	prev := t.ApplyStatus(board.StatusDone, now)

	err = s.repo.DB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(t).Error; err != nil {
			return fmt.Errorf("failed to save task: %w", err)
		}
		err := s.recorder.Record(tx, actorID, t.ProjectID, board.ActionStatusChanged, t.ID, map[string]any{
			"old": string(prev),
			"new": string(board.StatusDone),
		})
		if err != nil {
			return err
		}
		return s.recorder.Record(tx, actorID, t.ProjectID, board.ActionCompleted, t.ID, map[string]any{
			"title": t.Title,
		})
	})
	if err != nil {
		return nil, err
	}

	s.notify.TaskStatusChanged(events.TaskStatusChangedEvent{
		TaskID:    t.ID,
		ProjectID: t.ProjectID,
		OldStatus: string(prev),
		NewStatus: string(board.StatusDone),
		ActorID:   actorID,
		Timestamp: now,
	})
	s.notify.TaskCompleted(events.TaskCompletedEvent{
		TaskID:    t.ID,
		ProjectID: t.ProjectID,
		ActorID:   actorID,
		Timestamp: now,
	})
	return t, nil
}

// Delete removes the task with its comments and tag links, children first.
// Requires member. The deleted entry is written in the same transaction.
func (s *Service) Delete(ctx context.Context, actorID, taskID string) error {
	t, err := s.repo.FindByID(taskID)
	if err != nil {
		return err
	}
	if _, err := s.access.Require(ctx, actorID, t.ProjectID, board.RoleMember); err != nil {
		return err
	}

	now := time.Now().UTC()
	err = s.repo.DB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", t.ID).Delete(&board.Comment{}).Error; err != nil {
			return fmt.Errorf("failed to delete comments: %w", err)
		}
		if err := tx.Where("task_id = ?", t.ID).Delete(&board.TaskTag{}).Error; err != nil {
			return fmt.Errorf("failed to delete tag links: %w", err)
		}
		err := s.recorder.Record(tx, actorID, t.ProjectID, board.ActionDeleted, t.ID, map[string]any{
			"title": t.Title,
		})
		if err != nil {
			return err
		}
		if err := tx.Delete(t).Error; err != nil {
			return fmt.Errorf("failed to delete task: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notify.TaskDeleted(events.TaskDeletedEvent{
		TaskID:    t.ID,
		ProjectID: t.ProjectID,
		Title:     t.Title,
		ActorID:   actorID,
		Timestamp: now,
	})
	return nil
}

// History returns a task's activity entries, newest first. Requires viewer.
func (s *Service) History(ctx context.Context, actorID, taskID string, limit int) ([]*board.ActivityLog, error) {
	t, err := s.repo.FindByID(taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.access.Require(ctx, actorID, t.ProjectID, board.RoleViewer); err != nil {
		return nil, err
	}
	return s.activityLog.ForTask(taskID, limit)
}

// ProjectHistory returns a project's activity entries, newest first.
// Requires viewer.
func (s *Service) ProjectHistory(ctx context.Context, actorID, projectID string, limit int) ([]*board.ActivityLog, error) {
	if _, err := s.access.Require(ctx, actorID, projectID, board.RoleViewer); err != nil {
		return nil, err
	}
	return s.activityLog.ForProject(projectID, limit)
}

// Tags returns the tags attached to a task. Requires viewer.
func (s *Service) Tags(ctx context.Context, actorID, taskID string) ([]*board.Tag, error) {
	t, err := s.repo.FindByID(taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.access.Require(ctx, actorID, t.ProjectID, board.RoleViewer); err != nil {
		return nil, err
	}
	return s.tags.ListForTask(t.ID)
}

// AttachTag links one tag to the task. Requires member. Attaching an
// already-attached tag is a no-op.
func (s *Service) AttachTag(ctx context.Context, actorID, taskID, tagID string) error {
	t, err := s.repo.FindByID(taskID)
	if err != nil {
		return err
	}
	if _, err := s.access.Require(ctx, actorID, t.ProjectID, board.RoleMember); err != nil {
		return err
	}
	if _, err := s.tags.ResolveForTask([]string{tagID}, t.ProjectID); err != nil {
		return err
	}
	attached, err := s.repo.AttachedTagIDs(t.ID)
	if err != nil {
		return err
	}
	if attached[tagID] {
		return nil
	}
	if err := s.repo.DB().Create(&board.TaskTag{TaskID: t.ID, TagID: tagID}).Error; err != nil {
		return fmt.Errorf("failed to attach tag: %w", err)
	}
	return nil
}

// DetachTag removes one tag link from the task. Requires member. Detaching a
// tag that is not attached fails with ErrNotFound.
func (s *Service) DetachTag(ctx context.Context, actorID, taskID, tagID string) error {
	t, err := s.repo.FindByID(taskID)
	if err != nil {
		return err
	}
	if _, err := s.access.Require(ctx, actorID, t.ProjectID, board.RoleMember); err != nil {
		return err
	}
	res := s.repo.DB().
		Where("task_id = ? AND tag_id = ?", t.ID, tagID).
		Delete(&board.TaskTag{})
	if res.Error != nil {
		return fmt.Errorf("failed to detach tag: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("tag is not applied to this task: %w", board.ErrNotFound)
	}
	return nil
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func equalFloatPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func strPtr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func timePtr(p *time.Time) string {
	if p == nil {
		return ""
	}
	return p.UTC().Format(time.RFC3339)
}

func floatPtr(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}
