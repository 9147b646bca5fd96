package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/natefield/sshmux/internal/ui"
)

// cleanupCmd reaps stale session artifacts.
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove stale session artifacts",
	Long: `Scan the control directory for artifacts whose sessions no longer
answer liveness probes (left behind by crashed masters or reboots) and
remove them. Live sessions are never touched.

Examples:
  sshmux cleanup`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		removed, err := a.sessions.Cleanup(cmd.Context())
		if err != nil {
			return err
		}
		if len(removed) == 0 {
			fmt.Println("Nothing to clean up")
			return nil
		}
		for _, id := range removed {
			fmt.Println(ui.Success(ui.SymbolSuccess + " reaped stale session " + id.Key()))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}
