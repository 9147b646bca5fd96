package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/natefield/sshmux/internal/ui"
)

// connectCmd establishes a persistent session without running anything.
var connectCmd = &cobra.Command{
	Use:   "connect <target>",
	Short: "Establish a persistent session",
	Long: `Establish a persistent background session to the target.

The session authenticates once and stays alive for subsequent exec, copy
and batch commands, across sshmux invocations. Connecting to a target
with a live session is a no-op.

Examples:
  sshmux connect ubuntu@10.0.0.5
  sshmux connect build-box
  sshmux connect admin@db.internal:2222`,
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

		sess, err := a.sessions.Connect(cmd.Context(), id)
		if err != nil {
			return err
		}

		fmt.Println(ui.Success(ui.SymbolSuccess+" session "+id.Key()) + ui.Muted("  ("+sess.ControlPath+")"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)
}
