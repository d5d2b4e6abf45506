// File: internal/service/components.go
package service

import (
	"github.com/xkilldash9x/panelforge/internal/events"
	"github.com/xkilldash9x/panelforge/internal/hotswap"
	"github.com/xkilldash9x/panelforge/internal/loader"
	"github.com/xkilldash9x/panelforge/internal/observability"
	"github.com/xkilldash9x/panelforge/internal/orchestrator"
	"github.com/xkilldash9x/panelforge/internal/registry"
	"github.com/xkilldash9x/panelforge/internal/validator"

	"github.com/xkilldash9x/panelforge/api/schemas"
	compilerpkg "github.com/xkilldash9x/panelforge/internal/compiler"
)

// Components holds the initialized widget pipeline. This struct centralizes
// lifecycle management; construct it through the ComponentFactory and release
// it with Shutdown.
type Components struct {
	Bus          *events.Bus
	Loader       *loader.MemoryLoader
	Compiler     *compilerpkg.Compiler
	Validator    *validator.Validator
	Registry     *registry.Registry
	Hotswap      *hotswap.Manager
	LLM          schemas.LLMClient
	Orchestrator *orchestrator.Orchestrator
}

// Shutdown releases all components in dependency order: caches before the
// registry, the registry before the loader, the bus last so late lifecycle
// events still reach subscribers.
func (c *Components) Shutdown() {
	logger := observability.GetLogger()
	logger.Debug("Beginning components shutdown sequence.")

	if c.Hotswap != nil {
		c.Hotswap.Close()
		logger.Debug("Hot-replacement cache released.")
	}

	if c.Registry != nil {
		c.Registry.Close()
		logger.Debug("Registry released.")
	}

	if c.Bus != nil {
		c.Bus.Shutdown()
		logger.Debug("Event bus shut down.")
	}

	logger.Info("All components shut down successfully.")
}
