// File: internal/service/factory.go
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/panelforge/internal/compiler"
	"github.com/xkilldash9x/panelforge/internal/config"
	"github.com/xkilldash9x/panelforge/internal/events"
	"github.com/xkilldash9x/panelforge/internal/hotswap"
	"github.com/xkilldash9x/panelforge/internal/llmclient"
	"github.com/xkilldash9x/panelforge/internal/loader"
	"github.com/xkilldash9x/panelforge/internal/orchestrator"
	"github.com/xkilldash9x/panelforge/internal/registry"
	"github.com/xkilldash9x/panelforge/internal/validator"
)

// ComponentFactory builds the full widget pipeline from configuration. The
// abstraction exists so command-level logic can be tested against a fake.
type ComponentFactory interface {
	Create(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error)
}

// concreteFactory is the production implementation of the ComponentFactory.
type concreteFactory struct{}

// NewComponentFactory creates a new production-ready component factory.
func NewComponentFactory() ComponentFactory {
	return &concreteFactory{}
}

// Create handles the full dependency injection and initialization of the
// pipeline: bus, loader, compiler, registry, hot-replacement manager, LLM
// client, orchestrator. Cleanup of partially built components happens here
// if any step fails.
func (f *concreteFactory) Create(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	components := &Components{}

	var initializationErr error
	defer func() {
		if initializationErr != nil {
			logger.Warn("Initialization failed, shutting down partially created components.", zap.Error(initializationErr))
			components.Shutdown()
		}
	}()

	// 1. Event bus. First up so every later component can publish.
	components.Bus = events.NewBus(logger, cfg.Hotswap.EventBuffer)
	logger.Debug("Event bus initialized.")

	// 2. Module loader.
	components.Loader = loader.New(logger)
	logger.Debug("Module loader initialized.")

	// 3. Compiler.
	transpiler := compiler.NewTranspiler(cfg.Compiler)
	components.Compiler = compiler.New(transpiler, components.Loader, logger)
	logger.Debug("Compiler initialized.")

	// 4. Validator.
	components.Validator = validator.New(cfg.Validator)
	logger.Debug("Validator initialized.")

	// 5. Registry.
	components.Registry = registry.New(components.Compiler, components.Loader, components.Bus, logger)
	logger.Debug("Registry initialized.")

	// 6. Hot-replacement manager, attached so registry updates flow through it.
	components.Hotswap = hotswap.New(components.Compiler, components.Loader, components.Bus, logger)
	components.Registry.AttachHotNotifier(components.Hotswap)
	logger.Debug("Hot-replacement manager initialized.")

	// 7. LLM client.
	llm, err := llmclient.NewClient(cfg.Generation.LLM, logger)
	if err != nil {
		initializationErr = fmt.Errorf("failed to create LLM client: %w", err)
		return nil, initializationErr
	}
	components.LLM = llm
	logger.Debug("LLM client initialized.")

	// 8. Orchestrator.
	components.Orchestrator = orchestrator.New(cfg.Generation, llm, components.Validator, components.Registry, logger)
	logger.Debug("Orchestrator initialized.")

	logger.Info("All components initialized successfully.")
	return components, nil
}
