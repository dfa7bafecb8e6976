// Package poller drives a submitted long-running operation to a terminal
// state by checking its status at a fixed interval within a wall-clock
// budget. One Run is one bounded poll session; callers decide when to start
// a session and may start another later for the same operation.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/supplierstudio/studio-api/internal/veo"
)

// State is the poll session state.
type State string

const (
	// StatePending means the session has not issued a status check yet.
	StatePending State = "PENDING"
	// StatePolling means at least one status check has been issued.
	StatePolling State = "POLLING"
	// StateSucceeded means the operation finished successfully.
	StateSucceeded State = "SUCCEEDED"
	// StateFailed means the operation failed upstream or a status check
	// could not be completed.
	StateFailed State = "FAILED"
	// StateTimedOut means the budget elapsed before the operation finished.
	// The upstream job may still complete; a later session can pick it up.
	StateTimedOut State = "TIMED_OUT"
)

// IsTerminal returns true if the state ends the session.
func (s State) IsTerminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateTimedOut:
		return true
	default:
		return false
	}
}

// Outcome is the result of a completed poll session.
type Outcome struct {
	// State is the terminal session state.
	State State
	// VideoURL is the artifact URL when State is SUCCEEDED. Empty means the
	// operation succeeded without an artifact.
	VideoURL string
	// ErrorDetail carries the failure reason for FAILED sessions.
	ErrorDetail string
	// Polls is the number of status checks issued.
	Polls int
	// Elapsed is the session wall-clock duration.
	Elapsed time.Duration
}

// Engine runs bounded fixed-interval poll sessions against a veo client.
// No backoff growth: a constant interval keeps worst-case latency for short
// jobs predictable, and the budget bounds the total wait.
type Engine struct {
	client   veo.Client
	interval time.Duration
	budget   time.Duration
	logger   *slog.Logger
}

// Option is a function that configures an Engine.
type Option func(*Engine)

// WithInterval sets the delay between status checks.
func WithInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.interval = d
		}
	}
}

// WithBudget sets the wall-clock timeout for a session.
func WithBudget(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.budget = d
		}
	}
}

// NewEngine creates an Engine. Defaults: 1s interval, 5m budget; rendering
// jobs run for minutes while the checks cost seconds.
func NewEngine(client veo.Client, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		client:   client,
		interval: time.Second,
		budget:   5 * time.Minute,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run polls the operation until it reaches a terminal state, the budget
// elapses, or ctx is cancelled. The context is honored at every sleep and
// check boundary so an abandoned record stops costing upstream calls.
func (e *Engine) Run(ctx context.Context, operationName string) (Outcome, error) {
	if operationName == "" {
		return Outcome{}, veo.ErrOperationNameRequired
	}

	start := time.Now()
	polls := 0

	for {
		if err := ctx.Err(); err != nil {
			return Outcome{}, fmt.Errorf("poller: session cancelled: %w", err)
		}

		if elapsed := time.Since(start); elapsed >= e.budget {
			return Outcome{
				State:   StateTimedOut,
				Polls:   polls,
				Elapsed: elapsed,
			}, nil
		}

		polls++

		check, err := e.client.Fetch(ctx, operationName)
		if err != nil {
			// A failed status check ends the session; the caller may start
			// a fresh one since the operation itself may still be running.
			e.logger.Warn("status check failed",
				slog.String("operation", operationName),
				slog.Int("polls", polls),
				slog.String("error", err.Error()),
			)
			return Outcome{
				State:       StateFailed,
				ErrorDetail: err.Error(),
				Polls:       polls,
				Elapsed:     time.Since(start),
			}, nil
		}

		if check.Done {
			if check.Succeeded {
				return Outcome{
					State:    StateSucceeded,
					VideoURL: check.VideoURL,
					Polls:    polls,
					Elapsed:  time.Since(start),
				}, nil
			}
			return Outcome{
				State:       StateFailed,
				ErrorDetail: check.ErrorDetail,
				Polls:       polls,
				Elapsed:     time.Since(start),
			}, nil
		}

		select {
		case <-ctx.Done():
			return Outcome{}, fmt.Errorf("poller: session cancelled: %w", ctx.Err())
		case <-time.After(e.interval):
		}
	}
}
