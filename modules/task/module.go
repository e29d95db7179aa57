package task

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"

	"github.com/example/taskboard/events"
	"github.com/example/taskboard/modules/activity"
	"github.com/example/taskboard/modules/project"
	"github.com/example/taskboard/modules/storage"
	"github.com/example/taskboard/modules/tag"
)

// Module wires the task service into the application and publishes its
// events on the EventBus.
type Module struct {
	storage  *storage.Module
	project  *project.Module
	tag      *tag.Module
	eventBus mono.EventBus
	service  *Service
}

var _ mono.Module = (*Module)(nil)
var _ mono.EventEmitterModule = (*Module)(nil)

// NewModule creates the task module.
func NewModule(storageModule *storage.Module, projectModule *project.Module, tagModule *tag.Module) *Module {
	return &Module{
		storage: storageModule,
		project: projectModule,
		tag:     tagModule,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "task"
}

// SetEventBus receives the EventBus for publishing.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module emits.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.TaskCreatedV1.ToBase(),
		events.TaskUpdatedV1.ToBase(),
		events.TaskStatusChangedV1.ToBase(),
		events.TaskAssignedV1.ToBase(),
		events.TaskCompletedV1.ToBase(),
		events.TaskDeletedV1.ToBase(),
		events.CommentAddedV1.ToBase(),
	}
}

// Start builds the service on the shared connections.
func (m *Module) Start(_ context.Context) error {
	db := m.storage.DB()
	if db == nil {
		return fmt.Errorf("storage module not initialized")
	}
	if m.project.Service() == nil {
		return fmt.Errorf("project module not initialized")
	}
	if m.tag.Service() == nil {
		return fmt.Errorf("tag module not initialized")
	}
	m.service = NewService(
		NewRepository(db),
		m.project.Service().Access(),
		m.tag.Service(),
		activity.NewRecorder(),
		activity.NewRepository(db),
		&busNotifier{bus: &m.eventBus},
	)
	log.Println("[task] Module started")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[task] Module stopped")
	return nil
}

// Service returns the task service for dependent modules.
func (m *Module) Service() *Service {
	return m.service
}

// busNotifier forwards events to the EventBus. Publish failures are logged
// and dropped; delivery is best-effort by contract.
type busNotifier struct {
	bus *mono.EventBus
}

func (n *busNotifier) TaskCreated(ev events.TaskCreatedEvent) {
	if err := events.TaskCreatedV1.Publish(*n.bus, ev, nil); err != nil {
		log.Printf("[task] Failed to publish TaskCreated: %v", err)
	}
}

func (n *busNotifier) TaskUpdated(ev events.TaskUpdatedEvent) {
	if err := events.TaskUpdatedV1.Publish(*n.bus, ev, nil); err != nil {
		log.Printf("[task] Failed to publish TaskUpdated: %v", err)
	}
}

func (n *busNotifier) TaskStatusChanged(ev events.TaskStatusChangedEvent) {
	if err := events.TaskStatusChangedV1.Publish(*n.bus, ev, nil); err != nil {
		log.Printf("[task] Failed to publish TaskStatusChanged: %v", err)
	}
}

func (n *busNotifier) TaskAssigned(ev events.TaskAssignedEvent) {
	if err := events.TaskAssignedV1.Publish(*n.bus, ev, nil); err != nil {
		log.Printf("[task] Failed to publish TaskAssigned: %v", err)
	}
}

func (n *busNotifier) TaskCompleted(ev events.TaskCompletedEvent) {
	if err := events.TaskCompletedV1.Publish(*n.bus, ev, nil); err != nil {
		log.Printf("[task] Failed to publish TaskCompleted: %v", err)
	}
}

func (n *busNotifier) TaskDeleted(ev events.TaskDeletedEvent) {
	if err := events.TaskDeletedV1.Publish(*n.bus, ev, nil); err != nil {
		log.Printf("[task] Failed to publish TaskDeleted: %v", err)
	}
}

func (n *busNotifier) CommentAdded(ev events.CommentAddedEvent) {
	if err := events.CommentAddedV1.Publish(*n.bus, ev, nil); err != nil {
		log.Printf("[task] Failed to publish CommentAdded: %v", err)
	}
}
