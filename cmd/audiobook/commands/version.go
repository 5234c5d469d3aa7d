package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/audiobook/cmd/audiobook/internal/build"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if isJSONOutput() {
			return outputResult(build.Get())
		}
		fmt.Println(build.String())
		if verbose {
			fmt.Printf("  go:     %s\n", build.Get().Go)
			if cfg := getConfig(); cfg != nil {
				fmt.Printf("  config: %s\n", cfg.Path())
			}
		}
		return nil
	},
}
