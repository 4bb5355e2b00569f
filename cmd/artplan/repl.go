package main

import (
	"github.com/spf13/cobra"

	"github.com/ByBren-LLC/WTFB-Linear-agents-sub003/internal/repl"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start the interactive planning shell",
	Long: `Start an interactive shell for inspecting stored plans and
driving planning passes without re-invoking the CLI per command.

Type 'help' in the shell for available commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := repl.New(&repl.Config{
			Store:       store,
			Coordinator: newCoordinator(),
		})
		if err != nil {
			return err
		}
		return r.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}
