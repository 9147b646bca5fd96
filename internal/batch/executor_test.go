package batch

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natefield/sshmux/internal/config"
	"github.com/natefield/sshmux/internal/logger"
	"github.com/natefield/sshmux/internal/remote"
	"github.com/natefield/sshmux/internal/retry"
	"github.com/natefield/sshmux/internal/session"
)

var rcMarkerRe = regexp.MustCompile(`__SSHMUX_RC_(\d+)=%d__`)

// muxRunner plays the remote side: liveness probes succeed, aggregated
// scripts produce marker output, transfers report a scripted exit code.
type muxRunner struct {
	mu    sync.Mutex
	calls [][]string

	// exit code per operation index inside aggregated scripts
	opExit map[int]int
	// consecutive transport failures before scripts start answering
	transportFailures int
	// exit code for scp invocations
	scpExit int
}

func (r *muxRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]string{name}, args...))

	if isCheck(args) {
		return nil, nil, 0, nil
	}
	if name == "scp" {
		if r.scpExit != 0 {
			return nil, []byte("scp: transfer failed\n"), r.scpExit, nil
		}
		return nil, nil, 0, nil
	}

	if r.transportFailures > 0 {
		r.transportFailures--
		return nil, []byte("mux_client_request_session: session request failed\n"), 255, nil
	}

	// Synthesize per-operation output for the indices the script names.
	script := args[len(args)-1]
	var out strings.Builder
	for _, m := range rcMarkerRe.FindAllStringSubmatch(script, -1) {
		idx, _ := strconv.Atoi(m[1])
		rc := r.opExit[idx]
		fmt.Fprintf(&out, "__SSHMUX_BEGIN_%d__\nout%d\n__SSHMUX_RC_%d=%d__\n", idx, idx, idx, rc)
	}
	return []byte(out.String()), nil, 0, nil
}

func isCheck(args []string) bool {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "-O" && args[i+1] == "check" {
			return true
		}
	}
	return false
}

func (r *muxRunner) execCalls(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, call := range r.calls {
		if call[0] == name && !isCheck(call[1:]) {
			n++
		}
	}
	return n
}

func testExecutor(t *testing.T, run *muxRunner) *Executor {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.ControlDir = t.TempDir()
	mgr := session.NewManager(cfg, run, logger.Noop())
	rem := remote.NewExecutor(mgr, logger.Noop())

	rc := config.RetryConfig{
		MaxAttempts:    3,
		BaseDelay:      time.Millisecond,
		Multiplier:     2,
		MaxDelay:       time.Millisecond,
		FatalExitCodes: []int{127},
	}
	noSleep := func(ctx context.Context, d time.Duration) error { return nil }
	commands := retry.NewEngine(retry.NewPolicy(rc), logger.Noop())
	commands.Sleep = noSleep
	transfers := retry.NewEngine(retry.NewPolicy(rc), logger.Noop())
	transfers.Sleep = noSleep

	return NewExecutor(rem, commands, transfers, logger.Noop())
}

func testIdentity() session.Identity {
	return session.Identity{User: "ubuntu", Host: "10.0.0.5", Port: 22}
}

func TestExecuteAggregatesConsecutiveCommands(t *testing.T) {
	run := &muxRunner{opExit: map[int]int{}}
	e := testExecutor(t, run)

	b := New("deploy")
	b.AddCommand("stop", "systemctl stop app")
	b.AddCommand("clear", "rm -rf /tmp/cache")
	b.AddCommand("start", "systemctl start app")

	res, err := e.Execute(context.Background(), testIdentity(), b)
	require.NoError(t, err)

	assert.Equal(t, 1, run.execCalls("ssh"), "consecutive commands collapse into one invocation")
	require.Len(t, res.Results, 3)
	assert.Equal(t, 3, res.SuccessCount)
	assert.Equal(t, 0, res.FailureCount)
	assert.True(t, res.Succeeded())
	assert.Equal(t, 0, res.ExitCode())

	for i, r := range res.Results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, fmt.Sprintf("out%d", i), r.Output)
	}
}

func TestExecuteBestEffortContinuation(t *testing.T) {
	run := &muxRunner{opExit: map[int]int{1: 1}}
	e := testExecutor(t, run)

	b := New("deploy")
	b.AddCommand("", "step-one")
	b.AddCommand("", "step-two")
	b.AddCommand("", "step-three")

	res, err := e.Execute(context.Background(), testIdentity(), b)
	require.NoError(t, err)

	require.Len(t, res.Results, 3)
	assert.Equal(t, 0, res.Results[0].ExitCode)
	assert.Equal(t, 1, res.Results[1].ExitCode)
	assert.Equal(t, 0, res.Results[2].ExitCode, "a failing operation must not stop the ones after it")

	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, 1, res.FailureCount)
	assert.Equal(t, len(res.Results), res.SuccessCount+res.FailureCount)
	assert.Equal(t, 1, res.ExitCode())
}

func TestExecuteMixedBatch(t *testing.T) {
	run := &muxRunner{opExit: map[int]int{}}
	e := testExecutor(t, run)

	b := New("mixed")
	b.AddCommand("", "systemctl stop app")
	b.AddTransfer("push", TransferTo, "./app.bin", "/usr/local/bin/app")
	b.AddCommand("", "systemctl start app")

	res, err := e.Execute(context.Background(), testIdentity(), b)
	require.NoError(t, err)

	assert.Equal(t, 2, run.execCalls("ssh"), "transfer splits the command segments")
	assert.Equal(t, 1, run.execCalls("scp"))

	require.Len(t, res.Results, 3)
	assert.Equal(t, Command, res.Results[0].Operation.Kind)
	assert.Equal(t, TransferTo, res.Results[1].Operation.Kind)
	assert.Equal(t, Command, res.Results[2].Operation.Kind)
	assert.True(t, res.Succeeded())
}

func TestExecuteTransferFailureContinues(t *testing.T) {
	run := &muxRunner{opExit: map[int]int{}, scpExit: 1}
	e := testExecutor(t, run)

	b := New("mixed")
	b.AddTransfer("push", TransferTo, "./a", "/tmp/a")
	b.AddCommand("", "uptime")

	res, err := e.Execute(context.Background(), testIdentity(), b)
	require.NoError(t, err)

	require.Len(t, res.Results, 2)
	assert.Equal(t, 1, res.Results[0].ExitCode)
	assert.Equal(t, 3, res.Results[0].Attempts, "transfer retries until attempts are exhausted")
	assert.Equal(t, 0, res.Results[1].ExitCode, "the command after a failed transfer still runs")
	assert.Equal(t, 1, res.FailureCount)
}

func TestExecuteRetriesTransportFailure(t *testing.T) {
	run := &muxRunner{opExit: map[int]int{}, transportFailures: 1}
	e := testExecutor(t, run)

	b := New("retry")
	b.AddCommand("", "uptime")

	res, err := e.Execute(context.Background(), testIdentity(), b)
	require.NoError(t, err)

	assert.Equal(t, 2, run.execCalls("ssh"), "the aggregated invocation is retried as a unit")
	require.Len(t, res.Results, 1)
	assert.Equal(t, 0, res.Results[0].ExitCode)
	assert.Equal(t, 2, res.Results[0].Attempts)
}

func TestExecuteTransportExhaustion(t *testing.T) {
	run := &muxRunner{opExit: map[int]int{}, transportFailures: 10}
	e := testExecutor(t, run)

	b := New("down")
	b.AddCommand("", "uptime")
	b.AddCommand("", "free -m")

	res, err := e.Execute(context.Background(), testIdentity(), b)
	require.NoError(t, err)

	require.Len(t, res.Results, 2, "every operation gets a result even when the transport is down")
	for _, r := range res.Results {
		assert.Equal(t, 255, r.ExitCode)
	}
	assert.Equal(t, 2, res.FailureCount)
}

func TestExecuteRejectsInvalidBatch(t *testing.T) {
	e := testExecutor(t, &muxRunner{opExit: map[int]int{}})

	_, err := e.Execute(context.Background(), testIdentity(), New("empty"))
	assert.Error(t, err)
}
