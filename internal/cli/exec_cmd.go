package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/natefield/sshmux/internal/errors"
	"github.com/natefield/sshmux/internal/retry"
	"github.com/natefield/sshmux/internal/ui"
)

var (
	execTimeoutFlag string
	execRetriesFlag int
)

// execCmd runs a command through the target's session.
var execCmd = &cobra.Command{
	Use:   "exec <target> <command...>",
	Short: "Run a command through the target's session",
	Long: `Run a command on the target through its persistent session,
establishing the session first if none is live.

The remote command's stdout, stderr and exit code pass through unchanged.
Transient failures retry with exponential backoff; exit codes listed in
retry.command.fatal_exit_codes (126 and 127 by default) fail immediately.

Examples:
  sshmux exec ubuntu@10.0.0.5 "uname -a"
  sshmux exec build-box make test
  sshmux exec db "pg_dump app" --timeout 5m`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		id, err := parseTarget(args[0])
		if err != nil {
			return err
		}
		if execTimeoutFlag != "" {
			d, err := parseTimeout(execTimeoutFlag)
			if err != nil {
				return err
			}
			a.remote.OperationTimeout = d
		}
		if execRetriesFlag > 0 {
			a.commands.Policy.MaxAttempts = execRetriesFlag
		}

		command := strings.Join(args[1:], " ")
		res, err := a.commands.Do(cmd.Context(), command, func(ctx context.Context) (retry.Outcome, error) {
			out, err := a.remote.Exec(ctx, id, command)
			if err != nil {
				return retry.Outcome{}, err
			}
			return retry.Outcome{ExitCode: out.ExitCode, Stdout: out.Stdout, Stderr: out.Stderr}, nil
		})
		if err != nil {
			return err
		}

		fmt.Print(res.Stdout)
		fmt.Fprint(os.Stderr, res.Stderr)

		if !res.Succeeded() {
			fmt.Fprintln(os.Stderr, ui.Failure(res.Report(command)))
			return &ExitCodeError{Code: res.ExitCode}
		}
		return nil
	},
}

// parseTimeout parses a --timeout value.
func parseTimeout(flag string) (time.Duration, error) {
	d, err := time.ParseDuration(flag)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("'%s' doesn't look like a valid timeout", flag),
			"Try something like 30s, 5m, or 1h")
	}
	return d, nil
}

func init() {
	execCmd.Flags().StringVar(&execTimeoutFlag, "timeout", "", "per-operation timeout (e.g. 30s, 5m)")
	execCmd.Flags().IntVar(&execRetriesFlag, "retries", 0, "override maximum attempts for this command")
	rootCmd.AddCommand(execCmd)
}
