package retry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/natefield/sshmux/internal/logger"
)

// Outcome is the result of a single attempt of an operation.
type Outcome struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Succeeded reports whether the attempt finished with exit code 0.
func (o Outcome) Succeeded() bool {
	return o.ExitCode == 0
}

// Attempt records one failed attempt for the exhaustion report.
type Attempt struct {
	Number   int
	ExitCode int
	Stderr   string
	Class    Class
}

// Result is the final outcome of a retried operation, successful or not.
type Result struct {
	Outcome
	Attempts []Attempt // failed attempts, in order
	Exhausted bool     // true when MaxAttempts were consumed without success
}

// Op executes one attempt of an operation. Implementations must not retry
// internally; retrying is this package's responsibility.
type Op func(ctx context.Context) (Outcome, error)

// Sleeper abstracts the backoff sleep so tests can observe delays without
// waiting.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext waits for d or until ctx is done, whichever comes first.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Engine runs operations under a Policy.
type Engine struct {
	Policy Policy
	Log    logger.Logger
	Sleep  Sleeper
}

// NewEngine creates an Engine with the default sleeper.
func NewEngine(policy Policy, log logger.Logger) *Engine {
	if log == nil {
		log = logger.Noop()
	}
	return &Engine{Policy: policy, Log: log, Sleep: SleepContext}
}

// Do runs op until it succeeds, fails fatally, or attempts are exhausted.
// The returned Result always carries the last attempt's outcome, so callers
// can propagate the final exit code unchanged. A non-nil error is returned
// only for infrastructure failures (the operation could not run at all, or
// the context was cancelled during backoff).
func (e *Engine) Do(ctx context.Context, label string, op Op) (Result, error) {
	var res Result

	for n := 1; n <= e.Policy.MaxAttempts; n++ {
		if d := e.Policy.Delay(n); d > 0 {
			e.Log.Debug("backing off %s before attempt %d/%d of %s", d, n, e.Policy.MaxAttempts, label)
			if err := e.Sleep(ctx, d); err != nil {
				return res, err
			}
		}

		out, err := op(ctx)
		if err != nil {
			return res, err
		}
		res.Outcome = out

		if out.Succeeded() {
			return res, nil
		}

		class := e.Policy.Classify(out.ExitCode)
		res.Attempts = append(res.Attempts, Attempt{
			Number:   n,
			ExitCode: out.ExitCode,
			Stderr:   out.Stderr,
			Class:    class,
		})
		e.Log.Debug("attempt %d/%d of %s failed: exit %d (%s)", n, e.Policy.MaxAttempts, label, out.ExitCode, class)

		if class == Fatal {
			return res, nil
		}
	}

	res.Exhausted = true
	return res, nil
}

// Report formats the multi-attempt failure history plus a causal hint for a
// failed Result. Advisory text only; nothing here attempts remediation.
func (r Result) Report(label string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s failed with exit code %d", label, r.ExitCode)
	if r.Exhausted {
		fmt.Fprintf(&b, " after %d attempts", len(r.Attempts))
	}
	b.WriteString("\n")

	for _, a := range r.Attempts {
		text := strings.TrimSpace(a.Stderr)
		if text == "" {
			text = "(no error output)"
		}
		fmt.Fprintf(&b, "  attempt %d: exit %d (%s): %s\n", a.Number, a.ExitCode, a.Class, text)
	}

	if hint := Diagnose(r.Stderr); hint != "" {
		fmt.Fprintf(&b, "  likely cause: %s\n", hint)
	}
	if cmds := SuggestedChecks(r.Stderr); len(cmds) > 0 {
		b.WriteString("  try:\n")
		for _, c := range cmds {
			fmt.Fprintf(&b, "    %s\n", c)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
