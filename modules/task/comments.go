package task

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/taskboard/domain/board"
	"github.com/example/taskboard/events"
)

const commentPreviewLen = 100

// Comments returns a task's comments, oldest first. Requires viewer.
func (s *Service) Comments(ctx context.Context, actorID, taskID string) ([]*board.Comment, error) {
	t, err := s.repo.FindByID(taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.access.Require(ctx, actorID, t.ProjectID, board.RoleViewer); err != nil {
		return nil, err
	}
	return s.repo.ListComments(taskID)
}

// AddComment authors a comment on the task. Requires member. A truncated
// preview lands in the activity entry and the broadcast payload.
func (s *Service) AddComment(ctx context.Context, actorID, taskID, content string) (*board.Comment, error) {
	if content == "" {
		return nil, fmt.Errorf("comment content is required")
	}
	t, err := s.repo.FindByID(taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.access.Require(ctx, actorID, t.ProjectID, board.RoleMember); err != nil {
		return nil, err
	}

	c := &board.Comment{
		ID:      uuid.New().String(),
		TaskID:  t.ID,
		UserID:  actorID,
		Content: content,
	}
	preview := content
	if len(preview) > commentPreviewLen {
		preview = preview[:commentPreviewLen]
	}

	err = s.repo.DB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}
		return s.recorder.Record(tx, actorID, t.ProjectID, board.ActionCommented, t.ID, map[string]any{
			"comment_id": c.ID,
			"preview":    preview,
		})
	})
	if err != nil {
		return nil, err
	}

	s.notify.CommentAdded(events.CommentAddedEvent{
		CommentID: c.ID,
		TaskID:    t.ID,
		ProjectID: t.ProjectID,
		ActorID:   actorID,
		Preview:   preview,
		Timestamp: time.Now().UTC(),
	})
	return c, nil
}

// EditComment replaces the content and marks the comment edited. Only the
// author may edit, project role notwithstanding.
func (s *Service) EditComment(ctx context.Context, actorID, commentID, content string) (*board.Comment, error) {
	if content == "" {
		return nil, fmt.Errorf("comment content is required")
	}
	c, err := s.repo.FindComment(commentID)
	if err != nil {
		return nil, err
	}
	if c.UserID != actorID {
		return nil, board.ErrNotCommentAuthor
	}

	c.Content = content
	c.IsEdited = true
	if err := s.repo.DB().Save(c).Error; err != nil {
		return nil, fmt.Errorf("failed to save comment: %w", err)
	}
	return c, nil
}

// DeleteComment removes a comment. The author may always delete their own;
// the project owner or an admin may delete anyone's.
func (s *Service) DeleteComment(ctx context.Context, actorID, commentID string) error {
	c, err := s.repo.FindComment(commentID)
	if err != nil {
		return err
	}
	if c.UserID != actorID {
		t, err := s.repo.FindByID(c.TaskID)
		if err != nil {
			return err
		}
		role, err := s.access.EffectiveRole(ctx, actorID, t.ProjectID)
		if err != nil {
			return err
		}
		if !role.AtLeast(board.RoleAdmin) {
			return fmt.Errorf("only the author or an admin may delete a comment: %w", board.ErrAccessDenied)
		}
	}
	if err := s.repo.DB().Delete(c).Error; err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return nil
}
