package project

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"

	"github.com/example/taskboard/events"
	"github.com/example/taskboard/modules/activity"
	"github.com/example/taskboard/modules/cache"
	"github.com/example/taskboard/modules/storage"
)

// Module wires the project service into the application and publishes its
// events on the EventBus.
type Module struct {
	storage  *storage.Module
	cache    *cache.Module
	eventBus mono.EventBus
	service  *Service
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.EventEmitterModule = (*Module)(nil)

// NewModule creates the project module.
func NewModule(storageModule *storage.Module, cacheModule *cache.Module) *Module {
	return &Module{
		storage: storageModule,
		cache:   cacheModule,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "project"
}

// SetEventBus receives the EventBus for publishing.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module emits.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.MemberAddedV1.ToBase(),
		events.MemberRemovedV1.ToBase(),
		events.ProjectUpdatedV1.ToBase(),
		events.ProjectArchivedV1.ToBase(),
	}
}

// Start builds the service on the shared connections.
func (m *Module) Start(_ context.Context) error {
	db := m.storage.DB()
	if db == nil {
		return fmt.Errorf("storage module not initialized")
	}
	repo := NewRepository(db)
	access := NewAccessService(repo, m.cache.GetCache())
	m.service = NewService(repo, access, activity.NewRecorder(), &busNotifier{bus: &m.eventBus})
	log.Println("[project] Module started")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[project] Module stopped")
	return nil
}

// Service returns the project service for dependent modules.
func (m *Module) Service() *Service {
	return m.service
}

// busNotifier forwards events to the EventBus. Publish failures are logged
// and dropped; delivery is best-effort by contract.
type busNotifier struct {
	bus *mono.EventBus
}

func (n *busNotifier) MemberAdded(ev events.MemberAddedEvent) {
	if err := events.MemberAddedV1.Publish(*n.bus, ev, nil); err != nil {
		log.Printf("[project] Failed to publish MemberAdded: %v", err)
	}
}

func (n *busNotifier) MemberRemoved(ev events.MemberRemovedEvent) {
	if err := events.MemberRemovedV1.Publish(*n.bus, ev, nil); err != nil {
		log.Printf("[project] Failed to publish MemberRemoved: %v", err)
	}
}

func (n *busNotifier) ProjectUpdated(ev events.ProjectUpdatedEvent) {
	if err := events.ProjectUpdatedV1.Publish(*n.bus, ev, nil); err != nil {
		log.Printf("[project] Failed to publish ProjectUpdated: %v", err)
	}
}

func (n *busNotifier) ProjectArchived(ev events.ProjectArchivedEvent) {
	if err := events.ProjectArchivedV1.Publish(*n.bus, ev, nil); err != nil {
		log.Printf("[project] Failed to publish ProjectArchived: %v", err)
	}
}
