package batch

import (
	"context"
	"fmt"
	"strings"

	"github.com/natefield/sshmux/internal/logger"
	"github.com/natefield/sshmux/internal/remote"
	"github.com/natefield/sshmux/internal/retry"
	"github.com/natefield/sshmux/internal/session"
)

// Executor runs batches against one session. Consecutive command
// operations collapse into a single aggregated remote invocation;
// transfers execute individually at their submission position. Retry
// applies per invocation: the command policy governs aggregated segments,
// the transfer policy governs each transfer.
type Executor struct {
	Remote    *remote.Executor
	Commands  *retry.Engine
	Transfers *retry.Engine
	Log       logger.Logger
}

// NewExecutor creates a batch executor on top of a remote executor and the
// two retry engines.
func NewExecutor(rem *remote.Executor, commands, transfers *retry.Engine, log logger.Logger) *Executor {
	if log == nil {
		log = logger.NewEnvLogger("[batch]")
	}
	return &Executor{Remote: rem, Commands: commands, Transfers: transfers, Log: log}
}

// Execute runs every operation of b against id, best-effort: one
// operation's failure never stops the ones after it. Results come back in
// submission order, one per operation. A non-nil error means the batch
// infrastructure itself broke (invalid batch, context cancelled); partial
// results accumulated so far are still returned.
func (e *Executor) Execute(ctx context.Context, id session.Identity, b *Batch) (Result, error) {
	res := Result{BatchID: b.ID}
	if err := b.Validate(); err != nil {
		return res, err
	}

	ops := b.Operations()
	e.Log.Debug("batch %s: %d operations against %s", b.ID, len(ops), id.Key())

	for i := 0; i < len(ops); {
		if ops[i].Kind != Command {
			r, err := e.runTransfer(ctx, id, i, ops[i])
			res.record(r)
			if err != nil {
				return res, err
			}
			i++
			continue
		}

		j := i
		for j < len(ops) && ops[j].Kind == Command {
			j++
		}
		outs, err := e.runSegment(ctx, id, ops[i:j], i)
		for _, r := range outs {
			res.record(r)
		}
		if err != nil {
			return res, err
		}
		i = j
	}

	e.Log.Debug("batch %s: %d succeeded, %d failed", b.ID, res.SuccessCount, res.FailureCount)
	return res, nil
}

// runSegment executes consecutive command operations as one aggregated
// invocation and splits the output back into per-operation results.
func (e *Executor) runSegment(ctx context.Context, id session.Identity, ops []Operation, offset int) ([]OpResult, error) {
	script := segmentScript(ops, offset)
	label := fmt.Sprintf("batch segment (operations %d-%d)", offset+1, offset+len(ops))
	e.Log.Debug("%s: aggregated into one invocation", label)

	rres, err := e.Commands.Do(ctx, label, func(ctx context.Context) (retry.Outcome, error) {
		out, err := e.Remote.Exec(ctx, id, script)
		if err != nil {
			return retry.Outcome{}, err
		}
		return retry.Outcome{ExitCode: out.ExitCode, Stdout: out.Stdout, Stderr: out.Stderr}, nil
	})
	if err != nil {
		return nil, err
	}

	// The aggregated script exits 0 even when operations inside it fail;
	// a nonzero exit here means the transport itself died. Operations
	// whose markers never came back inherit that exit code.
	fallback := rres.ExitCode
	if fallback == 0 {
		fallback = 1
	}
	attempts := len(rres.Attempts)
	if rres.Succeeded() {
		attempts++ // the successful attempt is not in the failure history
	}

	outcomes := parseSegment(rres.Stdout, offset, len(ops), fallback)
	results := make([]OpResult, len(ops))
	for i, oc := range outcomes {
		output := oc.output
		exit := oc.exitCode
		if !oc.seen && rres.ExitCode != 0 {
			output = rres.Stderr
			exit = rres.ExitCode
		}
		results[i] = OpResult{
			Index:     offset + i,
			Operation: ops[i],
			ExitCode:  exit,
			Output:    strings.TrimRight(output, "\n"),
			Attempts:  attempts,
		}
	}
	return results, nil
}

// runTransfer executes one transfer operation under the transfer retry
// policy.
func (e *Executor) runTransfer(ctx context.Context, id session.Identity, index int, op Operation) (OpResult, error) {
	dir := remote.To
	if op.Kind == TransferFrom {
		dir = remote.From
	}
	label := fmt.Sprintf("batch transfer %d (%s)", index+1, op.Describe())

	rres, err := e.Transfers.Do(ctx, label, func(ctx context.Context) (retry.Outcome, error) {
		out, err := e.Remote.Copy(ctx, id, dir, op.Source, op.Destination)
		if err != nil {
			return retry.Outcome{}, err
		}
		return retry.Outcome{ExitCode: out.ExitCode, Stdout: out.Stdout, Stderr: out.Stderr}, nil
	})
	if err != nil {
		return OpResult{Index: index, Operation: op, ExitCode: -1}, err
	}

	attempts := len(rres.Attempts)
	if rres.Succeeded() {
		attempts++
	}
	output := rres.Stdout
	if rres.Stderr != "" {
		output = strings.TrimRight(output+"\n"+rres.Stderr, "\n")
	}
	return OpResult{
		Index:     index,
		Operation: op,
		ExitCode:  rres.ExitCode,
		Output:    strings.TrimRight(output, "\n"),
		Attempts:  attempts,
	}, nil
}
