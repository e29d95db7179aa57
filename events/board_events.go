// Package events declares the typed events published after each committed
// mutation. The broadcast module consumes all of them.
package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// TaskCreatedEvent is emitted when a task is created.
type TaskCreatedEvent struct {
	TaskID    string    `json:"task_id"`
	ProjectID string    `json:"project_id"`
	Title     string    `json:"title"`
	ActorID   string    `json:"actor_id"`
	Timestamp time.Time `json:"timestamp"`
}

// TaskUpdatedEvent is emitted when task fields change. Changes maps each
// field name to its old/new pair.
type TaskUpdatedEvent struct {
	TaskID    string                 `json:"task_id"`
	ProjectID string                 `json:"project_id"`
	Changes   map[string]FieldChange `json:"changes"`
	ActorID   string                 `json:"actor_id"`
	Timestamp time.Time              `json:"timestamp"`
}

// FieldChange is one old/new value pair in an update diff.
type FieldChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// TaskStatusChangedEvent is emitted on every status transition.
type TaskStatusChangedEvent struct {
	TaskID    string    `json:"task_id"`
	ProjectID string    `json:"project_id"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	ActorID   string    `json:"actor_id"`
	Timestamp time.Time `json:"timestamp"`
}

// TaskAssignedEvent is emitted when a task's assignee changes. AssigneeID is
// empty when the assignment was cleared.
type TaskAssignedEvent struct {
	TaskID     string    `json:"task_id"`
	ProjectID  string    `json:"project_id"`
	AssigneeID string    `json:"assignee_id,omitempty"`
	ActorID    string    `json:"actor_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// TaskCompletedEvent is emitted when a task is explicitly completed.
type TaskCompletedEvent struct {
	TaskID    string    `json:"task_id"`
	ProjectID string    `json:"project_id"`
	ActorID   string    `json:"actor_id"`
	Timestamp time.Time `json:"timestamp"`
}

// TaskDeletedEvent is emitted after a task and its children are removed.
type TaskDeletedEvent struct {
	TaskID    string    `json:"task_id"`
	ProjectID string    `json:"project_id"`
	Title     string    `json:"title"`
	ActorID   string    `json:"actor_id"`
	Timestamp time.Time `json:"timestamp"`
}

// CommentAddedEvent is emitted when a comment is added to a task.
type CommentAddedEvent struct {
	CommentID string    `json:"comment_id"`
	TaskID    string    `json:"task_id"`
	ProjectID string    `json:"project_id"`
	ActorID   string    `json:"actor_id"`
	Preview   string    `json:"preview"`
	Timestamp time.Time `json:"timestamp"`
}

// MemberAddedEvent is emitted when a user joins a project roster.
type MemberAddedEvent struct {
	ProjectID string    `json:"project_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	ActorID   string    `json:"actor_id"`
	Timestamp time.Time `json:"timestamp"`
}

// MemberRemovedEvent is emitted when a user leaves a project roster.
type MemberRemovedEvent struct {
	ProjectID string    `json:"project_id"`
	UserID    string    `json:"user_id"`
	ActorID   string    `json:"actor_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ProjectUpdatedEvent is emitted when project metadata changes.
type ProjectUpdatedEvent struct {
	ProjectID string    `json:"project_id"`
	ActorID   string    `json:"actor_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ProjectArchivedEvent is emitted when the archived flag flips.
type ProjectArchivedEvent struct {
	ProjectID string    `json:"project_id"`
	Archived  bool      `json:"archived"`
	ActorID   string    `json:"actor_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Event definitions for the task module.
var (
	TaskCreatedV1 = helper.EventDefinition[TaskCreatedEvent](
		"task",
		"TaskCreated",
		"v1",
	)

	TaskUpdatedV1 = helper.EventDefinition[TaskUpdatedEvent](
		"task",
		"TaskUpdated",
		"v1",
	)

	TaskStatusChangedV1 = helper.EventDefinition[TaskStatusChangedEvent](
		"task",
		"TaskStatusChanged",
		"v1",
	)

	TaskAssignedV1 = helper.EventDefinition[TaskAssignedEvent](
		"task",
		"TaskAssigned",
		"v1",
	)

	TaskCompletedV1 = helper.EventDefinition[TaskCompletedEvent](
		"task",
		"TaskCompleted",
		"v1",
	)

	TaskDeletedV1 = helper.EventDefinition[TaskDeletedEvent](
		"task",
		"TaskDeleted",
		"v1",
	)

	CommentAddedV1 = helper.EventDefinition[CommentAddedEvent](
		"task",
		"CommentAdded",
		"v1",
	)
)

// Event definitions for the project module.
var (
	MemberAddedV1 = helper.EventDefinition[MemberAddedEvent](
		"project",
		"MemberAdded",
		"v1",
	)

	MemberRemovedV1 = helper.EventDefinition[MemberRemovedEvent](
		"project",
		"MemberRemoved",
		"v1",
	)

	ProjectUpdatedV1 = helper.EventDefinition[ProjectUpdatedEvent](
		"project",
		"ProjectUpdated",
		"v1",
	)

	ProjectArchivedV1 = helper.EventDefinition[ProjectArchivedEvent](
		"project",
		"ProjectArchived",
		"v1",
	)
)
