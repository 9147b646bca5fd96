package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/natefield/sshmux/internal/ui"
)

// testCmd probes a single session for liveness.
var testCmd = &cobra.Command{
	Use:   "test <target>",
	Short: "Test whether the target's session is live",
	Long: `Probe the target's session without running anything. Exits 0 when a
live session exists, 1 when it does not.

Examples:
  sshmux test ubuntu@10.0.0.5
  sshmux test build-box && echo ready`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		id, err := parseTarget(args[0])
		if err != nil {
			return err
		}

		live, err := a.sessions.Alive(cmd.Context(), id)
		if err != nil {
			return err
		}
		if !live {
			fmt.Println(ui.Failure(ui.SymbolFail + " no live session for " + id.Key()))
			return &ExitCodeError{Code: 1}
		}
		fmt.Println(ui.Success(ui.SymbolSuccess + " session " + id.Key() + " is live"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(testCmd)
}
