package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/natefield/sshmux/internal/batch"
	"github.com/natefield/sshmux/internal/errors"
	"github.com/natefield/sshmux/internal/ui"
)

var (
	batchFileFlag     string
	batchCommandsFlag []string
	batchTimeoutFlag  string
)

// batchCmd runs many operations over one session.
var batchCmd = &cobra.Command{
	Use:   "batch <target>",
	Short: "Run a batch of operations over one session",
	Long: `Run a sequence of commands and transfers against the target through
one persistent session. Consecutive commands are aggregated into a
single remote invocation; a failing operation never stops the ones
after it.

Operations come from a YAML file (--file), from repeated -c flags, or
both (file operations run first). The exit code is 0 only when every
operation succeeded.

Examples:
  sshmux batch web -c "systemctl stop app" -c "rm -rf /tmp/cache" -c "systemctl start app"
  sshmux batch db -f migrate.yaml
  sshmux batch web -f deploy.yaml -c "systemctl status app"`,
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
		if batchTimeoutFlag != "" {
			d, err := parseTimeout(batchTimeoutFlag)
			if err != nil {
				return err
			}
			a.remote.OperationTimeout = d
		}

		var b *batch.Batch
		if batchFileFlag != "" {
			b, err = batch.LoadFile(batchFileFlag)
			if err != nil {
				return err
			}
		} else {
			b = batch.New(id.Key())
		}
		for _, command := range batchCommandsFlag {
			b.AddCommand("", command)
		}
		if b.Len() == 0 {
			return errors.New(errors.ErrBatch,
				"Batch has no operations",
				"Provide --file or at least one -c command")
		}

		exec := batch.NewExecutor(a.remote, a.commands, a.transfers, nil)
		res, err := exec.Execute(cmd.Context(), id, b)
		if err != nil {
			return err
		}

		lines := make([]ui.BatchLine, len(res.Results))
		for i, r := range res.Results {
			lines[i] = ui.BatchLine{
				Label:    r.Operation.Describe(),
				ExitCode: r.ExitCode,
				Attempts: r.Attempts,
				Output:   r.Output,
			}
		}
		fmt.Print(ui.RenderBatchSummary(res.BatchID, lines))

		if !res.Succeeded() {
			return &ExitCodeError{Code: res.ExitCode()}
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVarP(&batchFileFlag, "file", "f", "", "YAML batch file")
	batchCmd.Flags().StringArrayVarP(&batchCommandsFlag, "command", "c", nil, "command to run (repeatable)")
	batchCmd.Flags().StringVar(&batchTimeoutFlag, "timeout", "", "per-operation timeout (e.g. 30s, 5m)")
	rootCmd.AddCommand(batchCmd)
}
