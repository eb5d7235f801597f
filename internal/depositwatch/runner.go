package depositwatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gabapcia/depositwatch/internal/pkg/logger"
	"github.com/gabapcia/depositwatch/internal/pkg/resilience/retry"
	"github.com/gabapcia/depositwatch/internal/pkg/x/chflow"
)

// ErrRunnerAlreadyStarted is returned by Run on a runner that is running.
var ErrRunnerAlreadyStarted = errors.New("runner already started")

// Runner repeats cycles until its context is done.
type Runner interface {
	Run(ctx context.Context) error
}

type runner struct {
	mu        sync.Mutex
	isStarted bool

	cycler Cycler
	store  StateStore
	retry  retry.Retry

	successDelay time.Duration
	failureDelay time.Duration
	fromBlock    *int64
}

var _ Runner = (*runner)(nil)

type runnerConfig struct {
	store        StateStore
	retry        retry.Retry
	successDelay time.Duration
	failureDelay time.Duration
	fromBlock    *int64
}

// RunnerOption customizes a Runner built by NewRunner.
type RunnerOption func(*runnerConfig)

// NewRunner returns a Runner driving c. Defaults: no persistence, 1s pause
// after a completed cycle, 30s after a failed one, 3 attempts for the
// start block cycle.
func NewRunner(c Cycler, opts ...RunnerOption) *runner {
	cfg := runnerConfig{
		store:        nopStateStore{},
		retry:        retry.New(),
		successDelay: 1 * time.Second,
		failureDelay: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &runner{
		cycler:       c,
		store:        cfg.store,
		retry:        cfg.retry,
		successDelay: cfg.successDelay,
		failureDelay: cfg.failureDelay,
		fromBlock:    cfg.fromBlock,
	}
}

// WithStateStore loads the initial state from s and saves it after every
// cycle. The default keeps nothing.
func WithStateStore(s StateStore) RunnerOption {
	return func(c *runnerConfig) {
		c.store = s
	}
}

// WithRetry sets the policy for the start block cycle.
func WithRetry(r retry.Retry) RunnerOption {
	return func(c *runnerConfig) {
		c.retry = r
	}
}

// WithSuccessDelay sets the pause after a successful cycle.
func WithSuccessDelay(d time.Duration) RunnerOption {
	return func(c *runnerConfig) {
		c.successDelay = d
	}
}

// WithFailureDelay sets the pause after a failed cycle.
func WithFailureDelay(d time.Duration) RunnerOption {
	return func(c *runnerConfig) {
		c.failureDelay = d
	}
}

// WithFromBlock makes the first cycle start its confirmed range at height.
func WithFromBlock(height int64) RunnerOption {
	return func(c *runnerConfig) {
		c.fromBlock = &height
	}
}

// Run loads the saved state, runs the start block cycle when one was
// configured, then runs cycles until ctx is done. Failed cycles are logged
// and retried after the failure delay. Run returns nil once ctx is done.
func (r *runner) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.isStarted {
		r.mu.Unlock()
		return ErrRunnerAlreadyStarted
	}
	r.isStarted = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.isStarted = false
		r.mu.Unlock()
	}()

	state, err := r.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	if r.fromBlock != nil {
		logger.Info(ctx, "scanning from start block", "from_block", *r.fromBlock)

		state, err = r.runFrom(ctx, state, *r.fromBlock)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("scan from block %d: %w", *r.fromBlock, err)
		}

		if !chflow.Wait(ctx, r.successDelay) {
			return nil
		}
	}

	for {
		var err error
		state, err = r.cycler.RunCycle(ctx, state)
		r.save(ctx, state)

		delay := r.successDelay
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			logger.Error(ctx, "cycle failed", "error", err)
			delay = r.failureDelay
		}

		if !chflow.Wait(ctx, delay) {
			return nil
		}
	}
}

func (r *runner) runFrom(ctx context.Context, state State, from int64) (State, error) {
	err := r.retry.Execute(ctx, func() error {
		next, err := r.cycler.RunCycleFrom(ctx, state, from)
		state = next
		r.save(ctx, state)
		if err != nil {
			logger.Warn(ctx, "start block cycle failed", "error", err)
		}
		return err
	})

	return state, err
}

// save persists s. A failed save is logged only: the in-memory state stays
// authoritative and the next cycle saves again.
func (r *runner) save(ctx context.Context, s State) {
	if err := r.store.Save(ctx, s); err != nil {
		logger.Error(ctx, "failed to save state", "error", err)
	}
}
