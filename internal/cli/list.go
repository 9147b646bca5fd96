package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/natefield/sshmux/internal/ui"
)

// listCmd shows every session recorded in the control directory.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions and their liveness",
	Long: `List every session recorded in the control directory, probing each
for liveness. Sessions created by other sshmux processes appear too.

Examples:
  sshmux list`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		infos, err := a.sessions.List(cmd.Context())
		if err != nil {
			return err
		}

		// Piped output gets plain tab-separated lines for scripting.
		if !ui.IsTerminal() {
			for _, info := range infos {
				state := "stale"
				if info.Live {
					state = "live"
				}
				fmt.Printf("%s\t%s\t%s\n", state, info.Identity.Key(),
					info.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"))
			}
			return nil
		}

		rows := make([]ui.SessionRow, len(infos))
		for i, info := range infos {
			rows[i] = ui.SessionRow{
				Live:    info.Live,
				Session: info.Identity.Key(),
				Socket:  info.Identity.ControlPath(a.cfg.ControlDir),
				Created: info.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			}
		}
		fmt.Print(ui.RenderSessionTable(rows))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
