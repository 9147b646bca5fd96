package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/natefield/sshmux/internal/errors"
	"github.com/natefield/sshmux/internal/ui"
)

var disconnectAll bool

// disconnectCmd tears down sessions and removes their artifacts.
var disconnectCmd = &cobra.Command{
	Use:   "disconnect [target]",
	Short: "Terminate a persistent session",
	Long: `Terminate the persistent session for the target and remove its control
socket. Disconnecting a target with no live session is not an error.

Examples:
  sshmux disconnect ubuntu@10.0.0.5
  sshmux disconnect --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		if disconnectAll {
			if len(args) > 0 {
				return errors.New(errors.ErrConfig,
					"--all does not take a target",
					"Use 'sshmux disconnect --all' or 'sshmux disconnect <target>'")
			}
			infos, err := a.sessions.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, info := range infos {
				if err := a.sessions.Disconnect(cmd.Context(), info.Identity); err != nil {
					return err
				}
				fmt.Println(ui.Success(ui.SymbolSuccess + " disconnected " + info.Identity.Key()))
			}
			if len(infos) == 0 {
				fmt.Println("No sessions")
			}
			return nil
		}

		if len(args) == 0 {
			return errors.New(errors.ErrConfig,
				"No target given",
				"Name a target, or use --all to disconnect every session")
		}
		id, err := parseTarget(args[0])
		if err != nil {
			return err
		}
		if err := a.sessions.Disconnect(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Println(ui.Success(ui.SymbolSuccess + " disconnected " + id.Key()))
		return nil
	},
}

func init() {
	disconnectCmd.Flags().BoolVar(&disconnectAll, "all", false, "disconnect every session")
	rootCmd.AddCommand(disconnectCmd)
}
