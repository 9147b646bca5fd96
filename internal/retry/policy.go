// Package retry wraps single remote operations with an exponential-backoff
// retry loop that distinguishes transient failures from fatal ones.
package retry

import (
	"math"
	"time"

	"github.com/natefield/sshmux/internal/config"
)

// Class is the retry classification of a failed attempt.
type Class int

const (
	// Retryable failures are re-attempted while attempts remain.
	Retryable Class = iota
	// Fatal failures stop the loop immediately.
	Fatal
)

func (c Class) String() string {
	if c == Fatal {
		return "fatal"
	}
	return "retryable"
}

// Policy holds the backoff tunables and classification for one
// operation-kind family. Immutable once configured for a process run.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration

	fatalCodes map[int]bool
}

// NewPolicy builds a Policy from the config tunables of one family.
func NewPolicy(rc config.RetryConfig) Policy {
	fatal := make(map[int]bool, len(rc.FatalExitCodes))
	for _, code := range rc.FatalExitCodes {
		fatal[code] = true
	}
	return Policy{
		MaxAttempts: rc.MaxAttempts,
		BaseDelay:   rc.BaseDelay,
		Multiplier:  rc.Multiplier,
		MaxDelay:    rc.MaxDelay,
		fatalCodes:  fatal,
	}
}

// Classify maps a failed attempt's exit code to Retryable or Fatal.
// Unrecognized exit codes default to Retryable: a conservative heuristic
// favoring availability over fast-fail, tunable via fatal_exit_codes.
func (p Policy) Classify(exitCode int) Class {
	if p.fatalCodes[exitCode] {
		return Fatal
	}
	return Retryable
}

// Delay returns the backoff delay before attempt n (1-based).
// There is no delay before attempt 1; afterwards
// delay(n) = min(base * multiplier^(n-2), max).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	d := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-2))
	if d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}
