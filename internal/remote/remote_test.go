package remote

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natefield/sshmux/internal/config"
	"github.com/natefield/sshmux/internal/logger"
	"github.com/natefield/sshmux/internal/session"
)

// scriptedRunner answers liveness probes as alive and records every other
// invocation for inspection.
type scriptedRunner struct {
	mu    sync.Mutex
	calls [][]string

	exitCode int
	stdout   string
	stderr   string
}

func (r *scriptedRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, int, error) {
	r.mu.Lock()
	r.calls = append(r.calls, append([]string{name}, args...))
	r.mu.Unlock()

	if isCheck(args) {
		return nil, nil, 0, nil
	}
	return []byte(r.stdout), []byte(r.stderr), r.exitCode, nil
}

func isCheck(args []string) bool {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "-O" && args[i+1] == "check" {
			return true
		}
	}
	return false
}

func (r *scriptedRunner) lastCall() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[len(r.calls)-1]
}

func testExecutor(t *testing.T, run *scriptedRunner) *Executor {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.ControlDir = t.TempDir()
	mgr := session.NewManager(cfg, run, logger.Noop())
	return NewExecutor(mgr, logger.Noop())
}

func testIdentity() session.Identity {
	return session.Identity{User: "ubuntu", Host: "10.0.0.5", Port: 2222}
}

func TestExecPassesThroughOutput(t *testing.T) {
	run := &scriptedRunner{exitCode: 0, stdout: "Linux build-box\n", stderr: "warning: locale\n"}
	e := testExecutor(t, run)

	res, err := e.Exec(context.Background(), testIdentity(), "uname -a")
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Equal(t, "Linux build-box\n", res.Stdout)
	assert.Equal(t, "warning: locale\n", res.Stderr)
}

func TestExecArgsUseControlSocket(t *testing.T) {
	run := &scriptedRunner{}
	e := testExecutor(t, run)
	id := testIdentity()

	_, err := e.Exec(context.Background(), id, "systemctl restart app")
	require.NoError(t, err)

	call := run.lastCall()
	assert.Equal(t, "ssh", call[0])
	assert.Contains(t, call, "-S")
	assert.Contains(t, call, "ubuntu@10.0.0.5")
	assert.Equal(t, "systemctl restart app", call[len(call)-1])
	assert.Equal(t, "--", call[len(call)-2])

	sess := e.Sessions.Session(id)
	assert.False(t, sess.LastUsedAt.IsZero(), "a successful operation refreshes last-used")
}

func TestExecExitCodeNotSwallowed(t *testing.T) {
	run := &scriptedRunner{exitCode: 3, stderr: "service not running\n"}
	e := testExecutor(t, run)

	res, err := e.Exec(context.Background(), testIdentity(), "systemctl status app")
	require.NoError(t, err, "a nonzero remote exit is a result, not an error")
	assert.Equal(t, 3, res.ExitCode)
	assert.False(t, res.Succeeded())
}

func TestCopyToRemote(t *testing.T) {
	run := &scriptedRunner{}
	e := testExecutor(t, run)

	res, err := e.Copy(context.Background(), testIdentity(), To, "./build.tar.gz", "/tmp/build.tar.gz")
	require.NoError(t, err)
	assert.True(t, res.Succeeded())

	call := run.lastCall()
	assert.Equal(t, "scp", call[0])
	assert.Contains(t, call, "-r")
	assert.Contains(t, call, "./build.tar.gz")
	assert.Contains(t, call, "ubuntu@10.0.0.5:'/tmp/build.tar.gz'")
}

func TestCopyFromRemote(t *testing.T) {
	run := &scriptedRunner{}
	e := testExecutor(t, run)

	_, err := e.Copy(context.Background(), testIdentity(), From, "/var/backups/dump.sql", "./dump.sql")
	require.NoError(t, err)

	call := run.lastCall()
	assert.Contains(t, call, "ubuntu@10.0.0.5:'/var/backups/dump.sql'")
	assert.Contains(t, call, "./dump.sql")
}

func TestCopyQuotesRemoteTilde(t *testing.T) {
	run := &scriptedRunner{}
	e := testExecutor(t, run)

	_, err := e.Copy(context.Background(), testIdentity(), To, "./notes.txt", "~/my docs/notes.txt")
	require.NoError(t, err)

	call := run.lastCall()
	assert.Contains(t, call, "ubuntu@10.0.0.5:~/'my docs/notes.txt'")
}

func TestParseDirection(t *testing.T) {
	dir, err := ParseDirection("to")
	require.NoError(t, err)
	assert.Equal(t, To, dir)
	assert.Equal(t, "to", dir.String())

	dir, err = ParseDirection("from")
	require.NoError(t, err)
	assert.Equal(t, From, dir)
	assert.Equal(t, "from", dir.String())

	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}

func TestOperationTimeoutContext(t *testing.T) {
	run := &scriptedRunner{}
	e := testExecutor(t, run)
	e.OperationTimeout = time.Minute

	ctx, cancel := e.opContext(context.Background())
	defer cancel()
	deadline, ok := ctx.Deadline()
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 2*time.Second)

	e.OperationTimeout = 0
	ctx2, cancel2 := e.opContext(context.Background())
	defer cancel2()
	_, ok = ctx2.Deadline()
	assert.False(t, ok, "zero timeout means unbounded")
}
