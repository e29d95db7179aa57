package identity

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"

	"github.com/example/taskboard/modules/cache"
	"github.com/example/taskboard/modules/storage"
)

// Module wires the identity service into the application lifecycle.
type Module struct {
	storage *storage.Module
	cache   *cache.Module
	service *Service
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)

// NewModule creates the identity module. storage and cache must be registered
// before it.
func NewModule(storageModule *storage.Module, cacheModule *cache.Module) *Module {
	return &Module{
		storage: storageModule,
		cache:   cacheModule,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "identity"
}

// Start builds the service on top of the shared connections.
func (m *Module) Start(_ context.Context) error {
	db := m.storage.DB()
	if db == nil {
		return fmt.Errorf("storage module not initialized")
	}
	m.service = NewService(NewRepository(db), m.cache.GetCache())
	log.Println("[identity] Module started")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[identity] Module stopped")
	return nil
}

// Service returns the identity service for dependent modules.
func (m *Module) Service() *Service {
	return m.service
}
