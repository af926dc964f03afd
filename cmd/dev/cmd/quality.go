package cmd

import (
	"fmt"

	"github.com/gophertribe/devtool/test"
	"github.com/spf13/cobra"
)

func TestCmd() *cobra.Command {
	return taskCmd("test", "Run unit tests", test.Test)
}

func LintCmd() *cobra.Command {
	return taskCmd("lint", "Run linting", test.Lint)
}

// IntegrationTestCmd runs the tests that need an SCD4x on a real bus.
func IntegrationTestCmd() *cobra.Command {
	return taskCmd("integration-test", "Run integration tests against attached hardware", test.Integ)
}

func taskCmd(use, short string, task func() error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := task(); err != nil {
				return fmt.Errorf("%s failed: %w", use, err)
			}
			return nil
		},
	}
}
