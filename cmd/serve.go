// File: cmd/serve.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/panelforge/internal/observability"
	"github.com/xkilldash9x/panelforge/internal/server"
	"github.com/xkilldash9x/panelforge/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the widget API server.",
	Long: `Starts the HTTP API and WebSocket event relay. Widgets can be
generated, updated, rendered, and removed over the API; connected clients
receive lifecycle events as they happen.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := observability.GetLogger()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	factory := service.NewComponentFactory()
	components, err := factory.Create(ctx, appConfig, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}
	defer components.Shutdown()

	srv := server.New(appConfig.Server, components, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Server stopped.")
	return nil
}
