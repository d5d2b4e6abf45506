// File: cmd/check.go
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/panelforge/internal/validator"
)

var checkCmd = &cobra.Command{
	Use:   "check <file.jsx>",
	Short: "Validate widget source without registering it.",
	Long: `Runs the security and shape checks against a source file and prints
the result as JSON. Exits non-zero when the source is rejected. Useful for
vetting hand-written widgets before pushing them through the API.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	source, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	v := validator.New(appConfig.Validator)
	result := v.Validate(string(source))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}

	if !result.Accepted {
		return fmt.Errorf("%s failed validation", args[0])
	}
	return nil
}
