package broadcast

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/taskboard/events"
)

// Module consumes every board event and fans it out to WebSocket clients on
// project and personal channels.
type Module struct {
	hub       *Hub
	cancelHub context.CancelFunc
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.EventConsumerModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new broadcast module.
func NewModule() *Module {
	return &Module{
		hub: NewHub(),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "broadcast"
}

// Start runs the hub.
func (m *Module) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelHub = cancel
	go m.hub.Run(ctx)
	log.Println("[broadcast] Module started - WebSocket hub running")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	clientCount := m.hub.ClientCount()
	if m.cancelHub != nil {
		m.cancelHub()
		m.hub.Wait()
	}
	log.Printf("[broadcast] Module stopped - %d clients were connected", clientCount)
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
		},
	}
}

// GetHub returns the WebSocket hub for the API module to use.
func (m *Module) GetHub() *Hub {
	return m.hub
}

// RegisterEventConsumers registers a handler per board event.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.TaskCreatedV1, m.handleTaskCreated, m,
	); err != nil {
		return fmt.Errorf("failed to register TaskCreated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.TaskUpdatedV1, m.handleTaskUpdated, m,
	); err != nil {
		return fmt.Errorf("failed to register TaskUpdated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.TaskStatusChangedV1, m.handleTaskStatusChanged, m,
	); err != nil {
		return fmt.Errorf("failed to register TaskStatusChanged consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.TaskAssignedV1, m.handleTaskAssigned, m,
	); err != nil {
		return fmt.Errorf("failed to register TaskAssigned consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.TaskCompletedV1, m.handleTaskCompleted, m,
	); err != nil {
		return fmt.Errorf("failed to register TaskCompleted consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.TaskDeletedV1, m.handleTaskDeleted, m,
	); err != nil {
		return fmt.Errorf("failed to register TaskDeleted consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.CommentAddedV1, m.handleCommentAdded, m,
	); err != nil {
		return fmt.Errorf("failed to register CommentAdded consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MemberAddedV1, m.handleMemberAdded, m,
	); err != nil {
		return fmt.Errorf("failed to register MemberAdded consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MemberRemovedV1, m.handleMemberRemoved, m,
	); err != nil {
		return fmt.Errorf("failed to register MemberRemoved consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.ProjectUpdatedV1, m.handleProjectUpdated, m,
	); err != nil {
		return fmt.Errorf("failed to register ProjectUpdated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.ProjectArchivedV1, m.handleProjectArchived, m,
	); err != nil {
		return fmt.Errorf("failed to register ProjectArchived consumer: %w", err)
	}

	log.Println("[broadcast] Registered event consumers for task and project events")
	return nil
}

// Event handlers

func (m *Module) handleTaskCreated(_ context.Context, event events.TaskCreatedEvent, _ *mono.Msg) error {
	m.hub.Publish(ProjectChannel(event.ProjectID), WSEvent{
		Type:      "task_created",
		ProjectID: event.ProjectID,
		TaskID:    event.TaskID,
		Title:     event.Title,
		ActorID:   event.ActorID,
		Timestamp: event.Timestamp,
	})
	return nil
}

func (m *Module) handleTaskUpdated(_ context.Context, event events.TaskUpdatedEvent, _ *mono.Msg) error {
	m.hub.Publish(ProjectChannel(event.ProjectID), WSEvent{
		Type:      "task_updated",
		ProjectID: event.ProjectID,
		TaskID:    event.TaskID,
		Changes:   event.Changes,
		ActorID:   event.ActorID,
		Timestamp: event.Timestamp,
	})
	return nil
}

func (m *Module) handleTaskStatusChanged(_ context.Context, event events.TaskStatusChangedEvent, _ *mono.Msg) error {
	m.hub.Publish(ProjectChannel(event.ProjectID), WSEvent{
		Type:      "task_status_changed",
		ProjectID: event.ProjectID,
		TaskID:    event.TaskID,
		OldStatus: event.OldStatus,
		NewStatus: event.NewStatus,
		ActorID:   event.ActorID,
		Timestamp: event.Timestamp,
	})
	return nil
}

// handleTaskAssigned broadcasts to the project and, additionally, to the new
// assignee's personal channel. A cleared assignment has no personal leg.
func (m *Module) handleTaskAssigned(_ context.Context, event events.TaskAssignedEvent, _ *mono.Msg) error {
	m.hub.Publish(ProjectChannel(event.ProjectID), WSEvent{
		Type:       "task_assigned",
		ProjectID:  event.ProjectID,
		TaskID:     event.TaskID,
		AssigneeID: event.AssigneeID,
		ActorID:    event.ActorID,
		Timestamp:  event.Timestamp,
	})
	if event.AssigneeID != "" {
		m.hub.Publish(UserChannel(event.AssigneeID), WSEvent{
			Type:       "task_assigned_to_you",
			ProjectID:  event.ProjectID,
			TaskID:     event.TaskID,
			AssigneeID: event.AssigneeID,
			ActorID:    event.ActorID,
			Timestamp:  event.Timestamp,
		})
	}
	return nil
}

func (m *Module) handleTaskCompleted(_ context.Context, event events.TaskCompletedEvent, _ *mono.Msg) error {
	m.hub.Publish(ProjectChannel(event.ProjectID), WSEvent{
		Type:      "task_completed",
		ProjectID: event.ProjectID,
		TaskID:    event.TaskID,
		ActorID:   event.ActorID,
		Timestamp: event.Timestamp,
	})
	return nil
}

func (m *Module) handleTaskDeleted(_ context.Context, event events.TaskDeletedEvent, _ *mono.Msg) error {
	m.hub.Publish(ProjectChannel(event.ProjectID), WSEvent{
		Type:      "task_deleted",
		ProjectID: event.ProjectID,
		TaskID:    event.TaskID,
		Title:     event.Title,
		ActorID:   event.ActorID,
		Timestamp: event.Timestamp,
	})
	return nil
}

func (m *Module) handleCommentAdded(_ context.Context, event events.CommentAddedEvent, _ *mono.Msg) error {
	m.hub.Publish(ProjectChannel(event.ProjectID), WSEvent{
		Type:      "comment_added",
		ProjectID: event.ProjectID,
		TaskID:    event.TaskID,
		CommentID: event.CommentID,
		Preview:   event.Preview,
		ActorID:   event.ActorID,
		Timestamp: event.Timestamp,
	})
	return nil
}

// handleMemberAdded broadcasts to the project and personally to the new
// member.
func (m *Module) handleMemberAdded(_ context.Context, event events.MemberAddedEvent, _ *mono.Msg) error {
	m.hub.Publish(ProjectChannel(event.ProjectID), WSEvent{
		Type:      "member_added",
		ProjectID: event.ProjectID,
		UserID:    event.UserID,
		Role:      event.Role,
		ActorID:   event.ActorID,
		Timestamp: event.Timestamp,
	})
	m.hub.Publish(UserChannel(event.UserID), WSEvent{
		Type:      "added_to_project",
		ProjectID: event.ProjectID,
		UserID:    event.UserID,
		Role:      event.Role,
		ActorID:   event.ActorID,
		Timestamp: event.Timestamp,
	})
	return nil
}

func (m *Module) handleMemberRemoved(_ context.Context, event events.MemberRemovedEvent, _ *mono.Msg) error {
	m.hub.Publish(ProjectChannel(event.ProjectID), WSEvent{
		Type:      "member_removed",
		ProjectID: event.ProjectID,
		UserID:    event.UserID,
		ActorID:   event.ActorID,
		Timestamp: event.Timestamp,
	})
	return nil
}

func (m *Module) handleProjectUpdated(_ context.Context, event events.ProjectUpdatedEvent, _ *mono.Msg) error {
	m.hub.Publish(ProjectChannel(event.ProjectID), WSEvent{
		Type:      "project_updated",
		ProjectID: event.ProjectID,
		ActorID:   event.ActorID,
		Timestamp: event.Timestamp,
	})
	return nil
}

func (m *Module) handleProjectArchived(_ context.Context, event events.ProjectArchivedEvent, _ *mono.Msg) error {
	m.hub.Publish(ProjectChannel(event.ProjectID), WSEvent{
		Type:      "project_archived",
		ProjectID: event.ProjectID,
		Archived:  &event.Archived,
		ActorID:   event.ActorID,
		Timestamp: event.Timestamp,
	})
	return nil
}

// WSEvent is the structure sent to WebSocket clients. Every event carries a
// type tag, the ids of the entity that changed, the actor and a timestamp.
type WSEvent struct {
	Type       string                        `json:"type"`
	ProjectID  string                        `json:"project_id,omitempty"`
	TaskID     string                        `json:"task_id,omitempty"`
	CommentID  string                        `json:"comment_id,omitempty"`
	UserID     string                        `json:"user_id,omitempty"`
	AssigneeID string                        `json:"assignee_id,omitempty"`
	Role       string                        `json:"role,omitempty"`
	Title      string                        `json:"title,omitempty"`
	Preview    string                        `json:"preview,omitempty"`
	OldStatus  string                        `json:"old_status,omitempty"`
	NewStatus  string                        `json:"new_status,omitempty"`
	Changes    map[string]events.FieldChange `json:"changes,omitempty"`
	Archived   *bool                         `json:"archived,omitempty"`
	ActorID    string                        `json:"actor_id,omitempty"`
	Timestamp  time.Time                     `json:"timestamp,omitempty"`
}
