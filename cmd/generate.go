// File: cmd/generate.go
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/panelforge/api/schemas"
	"github.com/xkilldash9x/panelforge/internal/observability"
	"github.com/xkilldash9x/panelforge/internal/service"
)

var (
	generateCategory string
	generateContext  string
	generateRender   bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <prompt>",
	Short: "Generate a widget from a natural-language request.",
	Long: `Runs the full generation pipeline once: calls the model, validates
and sanitizes the returned source, and registers the widget. Prints the
result as JSON. With --render the widget is also rendered to HTML with
empty props.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateCategory, "category", "", "widget category hint passed to the model")
	generateCmd.Flags().StringVar(&generateContext, "context", "", "extra context passed to the model")
	generateCmd.Flags().BoolVar(&generateRender, "render", false, "render the resulting widget to HTML")
	rootCmd.AddCommand(generateCmd)
}

type generateOutput struct {
	Identity string                    `json:"identity"`
	Fallback bool                      `json:"fallback"`
	Attempt  schemas.GenerationAttempt `json:"attempt"`
	HTML     string                    `json:"html,omitempty"`
}

func runGenerate(cmd *cobra.Command, args []string) error {
	logger := observability.GetLogger()

	factory := service.NewComponentFactory()
	components, err := factory.Create(cmd.Context(), appConfig, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}
	defer components.Shutdown()

	result, err := components.Orchestrator.GenerateWidget(cmd.Context(), schemas.GenerationRequest{
		Prompt:   strings.Join(args, " "),
		Category: generateCategory,
		Context:  generateContext,
	})
	if err != nil {
		return err
	}

	out := generateOutput{
		Identity: result.Identity,
		Fallback: result.Fallback,
		Attempt:  result.Attempt,
	}
	if generateRender {
		html, err := result.Instance.Render(nil)
		if err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		out.HTML = html
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
