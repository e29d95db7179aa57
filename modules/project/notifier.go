package project

import "github.com/example/taskboard/events"

// Notifier receives project events after the owning transaction commits. The
// module wires it to the EventBus; tests substitute a recorder.
type Notifier interface {
	MemberAdded(ev events.MemberAddedEvent)
	MemberRemoved(ev events.MemberRemovedEvent)
	ProjectUpdated(ev events.ProjectUpdatedEvent)
	ProjectArchived(ev events.ProjectArchivedEvent)
}

// NopNotifier discards all events.
type NopNotifier struct{}

// MemberAdded implements Notifier.
func (NopNotifier) MemberAdded(events.MemberAddedEvent) {}

// MemberRemoved implements Notifier.
func (NopNotifier) MemberRemoved(events.MemberRemovedEvent) {}

// ProjectUpdated implements Notifier.
func (NopNotifier) ProjectUpdated(events.ProjectUpdatedEvent) {}

// ProjectArchived implements Notifier.
func (NopNotifier) ProjectArchived(events.ProjectArchivedEvent) {}
