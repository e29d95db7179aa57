package task

import "github.com/example/taskboard/events"

// Notifier receives task events after the owning transaction commits. The
// module wires it to the EventBus; tests substitute a recorder.
type Notifier interface {
	TaskCreated(ev events.TaskCreatedEvent)
	TaskUpdated(ev events.TaskUpdatedEvent)
	TaskStatusChanged(ev events.TaskStatusChangedEvent)
	TaskAssigned(ev events.TaskAssignedEvent)
	TaskCompleted(ev events.TaskCompletedEvent)
	TaskDeleted(ev events.TaskDeletedEvent)
	CommentAdded(ev events.CommentAddedEvent)
}

// NopNotifier discards all events.
type NopNotifier struct{}

// TaskCreated implements Notifier.
func (NopNotifier) TaskCreated(events.TaskCreatedEvent) {}

// TaskUpdated implements Notifier.
func (NopNotifier) TaskUpdated(events.TaskUpdatedEvent) {}

// TaskStatusChanged implements Notifier.
func (NopNotifier) TaskStatusChanged(events.TaskStatusChangedEvent) {}

// TaskAssigned implements Notifier.
func (NopNotifier) TaskAssigned(events.TaskAssignedEvent) {}

// TaskCompleted implements Notifier.
func (NopNotifier) TaskCompleted(events.TaskCompletedEvent) {}

// TaskDeleted implements Notifier.
func (NopNotifier) TaskDeleted(events.TaskDeletedEvent) {}

// CommentAdded implements Notifier.
func (NopNotifier) CommentAdded(events.CommentAddedEvent) {}
