package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/natefield/sshmux/internal/remote"
	"github.com/natefield/sshmux/internal/retry"
	"github.com/natefield/sshmux/internal/ui"
)

var (
	copyTimeoutFlag string
	copyRetriesFlag int
)

// copyCmd transfers files through the target's session.
var copyCmd = &cobra.Command{
	Use:   "copy <target> <to|from> <source> <destination>",
	Short: "Transfer files through the target's session",
	Long: `Transfer a file or directory through the target's persistent session,
without a separate authentication round trip. Directories copy
recursively.

'to' pushes a local source to a remote destination; 'from' pulls a
remote source to a local destination. Transient failures retry with the
transfer backoff policy.

Examples:
  sshmux copy ubuntu@10.0.0.5 to ./build.tar.gz /tmp/build.tar.gz
  sshmux copy db from /var/backups/dump.sql ./dump.sql
  sshmux copy web to ./static/ /srv/www/static/`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		id, err := parseTarget(args[0])
		if err != nil {
			return err
		}
		dir, err := remote.ParseDirection(args[1])
		if err != nil {
			return err
		}
		if copyTimeoutFlag != "" {
			d, err := parseTimeout(copyTimeoutFlag)
			if err != nil {
				return err
			}
			a.remote.OperationTimeout = d
		}
		if copyRetriesFlag > 0 {
			a.transfers.Policy.MaxAttempts = copyRetriesFlag
		}

		source, destination := args[2], args[3]
		label := fmt.Sprintf("copy %s %s -> %s", dir, source, destination)

		res, err := a.transfers.Do(cmd.Context(), label, func(ctx context.Context) (retry.Outcome, error) {
			out, err := a.remote.Copy(ctx, id, dir, source, destination)
			if err != nil {
				return retry.Outcome{}, err
			}
			return retry.Outcome{ExitCode: out.ExitCode, Stdout: out.Stdout, Stderr: out.Stderr}, nil
		})
		if err != nil {
			return err
		}

		if !res.Succeeded() {
			fmt.Fprint(os.Stderr, res.Stderr)
			fmt.Fprintln(os.Stderr, ui.Failure(res.Report(label)))
			return &ExitCodeError{Code: res.ExitCode}
		}

		fmt.Println(ui.Success(ui.SymbolSuccess + " " + label))
		return nil
	},
}

func init() {
	copyCmd.Flags().StringVar(&copyTimeoutFlag, "timeout", "", "per-operation timeout (e.g. 30s, 5m)")
	copyCmd.Flags().IntVar(&copyRetriesFlag, "retries", 0, "override maximum attempts for this transfer")
	rootCmd.AddCommand(copyCmd)
}
