package store

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

// Policy controls how transient failures are retried. MaxAttempts counts
// every invocation including the first. The wait before attempt n+1 is
// BaseDelay*n.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultPolicy returns three attempts with a one second linear step.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, BaseDelay: DefaultBaseDelay}
}

// Delay returns the wait taken after the given failed attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(attempt)
}

// Reconnector re-establishes the underlying connection. Generation changes
// every time the connection is replaced, so concurrent callers that observed
// the same failure reconnect once.
type Reconnector interface {
	Generation() uint64
	Reconnect(ctx context.Context, observed uint64) error
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Retrier runs operations under a Policy.
type Retrier struct {
	policy Policy
	conn   Reconnector
	logger *slog.Logger
	sleep  SleepFunc
}

// NewRetrier creates a retrier. conn may be nil, in which case no reconnect
// is attempted between tries.
func NewRetrier(policy Policy, conn Reconnector, logger *slog.Logger) *Retrier {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrier{
		policy: policy,
		conn:   conn,
		logger: logger,
		sleep:  sleepContext,
	}
}

// WithSleep replaces the wait function. Used by tests.
func (r *Retrier) WithSleep(fn SleepFunc) *Retrier {
	r.sleep = fn
	return r
}

// Policy returns the retry policy in use.
func (r *Retrier) Policy() Policy {
	return r.policy
}

// Do runs op until it succeeds, fails with a non-transient error, or the
// attempts are used up. The last error is returned as is; transient errors
// come back wrapped in *TransientError.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		var gen uint64
		if r.conn != nil {
			gen = r.conn.Generation()
		}

		err := Classify(op(ctx))
		if err == nil {
			return nil
		}
		if !IsTransient(err) && r.replacedSince(gen) {
			err = &TransientError{Err: err}
		}
		lastErr = err
		if !IsTransient(err) || attempt == r.policy.MaxAttempts {
			break
		}

		delay := r.policy.Delay(attempt)
		r.logger.Warn("transient database error, retrying",
			"attempt", attempt,
			"max_attempts", r.policy.MaxAttempts,
			"delay", delay,
			"error", err,
		)
		if err := r.sleep(ctx, delay); err != nil {
			return errors.Join(lastErr, err)
		}

		if r.conn != nil {
			if err := r.conn.Reconnect(ctx, gen); err != nil {
				r.logger.Error("database reconnect failed", "attempt", attempt, "error", err)
			}
		}
	}
	return lastErr
}

// replacedSince reports whether the connection was swapped after gen was
// read. An operation that failed meanwhile may have run on the closed handle.
func (r *Retrier) replacedSince(gen uint64) bool {
	return r.conn != nil && r.conn.Generation() != gen
}

// Runner is anything that can run an operation with retries. *Pool and
// *Retrier implement it.
type Runner interface {
	Do(ctx context.Context, op func(ctx context.Context) error) error
}

// Query runs op through r and returns its result.
func Query[T any](ctx context.Context, r Runner, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := r.Do(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
