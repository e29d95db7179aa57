package tag

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"

	"github.com/example/taskboard/modules/project"
	"github.com/example/taskboard/modules/storage"
)

// Module wires the tag service into the application.
type Module struct {
	storage *storage.Module
	project *project.Module
	service *Service
}

var _ mono.Module = (*Module)(nil)

// NewModule creates the tag module.
func NewModule(storageModule *storage.Module, projectModule *project.Module) *Module {
	return &Module{
		storage: storageModule,
		project: projectModule,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "tag"
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
	m.service = NewService(NewRepository(db), m.project.Service().Access())
	log.Println("[tag] Module started")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[tag] Module stopped")
	return nil
}

// Service returns the tag service for dependent modules.
func (m *Module) Service() *Service {
	return m.service
}
