package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/aryankumar/procpool/internal/protocol"
	"github.com/aryankumar/procpool/internal/util"
)

// Request names the function to run and one argument unit per task
type Request struct {
	Func string
	Args []protocol.Arg
}

// Result is the ordered outcome of a batch: Outcomes[i] belongs to Args[i]
type Result struct {
	BatchID  string
	Func     string
	Workers  int
	Outcomes []Outcome
	Duration time.Duration
}

// Dispatcher runs batches, each on a fresh pool of worker processes.
// A Dispatcher holds no state between batches and is safe for concurrent use.
type Dispatcher struct {
	cfg    Config
	logger *slog.Logger

	// outMu keeps the output blocks of concurrent tasks whole
	outMu sync.Mutex
}

// NewDispatcher validates cfg and fills in its defaults
func NewDispatcher(cfg Config) (*Dispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	return &Dispatcher{
		cfg:    cfg,
		logger: cfg.Logger,
	}, nil
}

// Config returns the effective configuration
func (d *Dispatcher) Config() Config {
	return d.cfg
}

// batch is the state of one Run call
type batch struct {
	d      *Dispatcher
	id     string
	state  State
	logger *slog.Logger
}

func (b *batch) transition(to State) {
	from := b.state
	b.state = to
	b.logger.Debug("batch state changed", "from", from.String(), "to", to.String())
	if to.Terminal() {
		batchesTotal.WithLabelValues(to.String()).Inc()
	}
	if b.d.cfg.OnStateChange != nil {
		b.d.cfg.OnStateChange(from, to)
	}
}

// Run executes req.Func once per argument unit in worker processes and returns the outcomes
// in argument order.
//
// Each task's console output is written to the configured Output as one block when the task
// completes. Run returns a *util.TaskError when a task fails under the propagate policy, a
// *util.TimeoutError when the batch outlives its timeout, a *util.InterruptError when ctx is
// cancelled or an interrupt arrives while the pool starts, and a *util.PoolError when the
// workers cannot be started or die. In all of these cases partial results are discarded.
// Every worker process has exited by the time Run returns.
func (d *Dispatcher) Run(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()

	if _, ok := d.cfg.Registry.Lookup(req.Func); !ok {
		return nil, fmt.Errorf("%w: %q", util.ErrUnknownFunc, req.Func)
	}

	b := &batch{
		d:     d,
		id:    ulid.Make().String(),
		state: StateIdle,
	}
	b.logger = d.logger.With("batch_id", b.id, "func", req.Func)

	total := len(req.Args)
	if total == 0 {
		b.logger.Debug("empty batch, no workers started")
		return &Result{BatchID: b.id, Func: req.Func, Outcomes: []Outcome{}}, nil
	}

	workers := min(d.cfg.Workers, total)

	held := util.HoldSignals(d.cfg.Signals...)

	// A caller's own signal handler may cancel ctx while the workers start. The start is
	// bounded by StartTimeout, so it runs detached and ctx is looked at once the pool exists.
	var (
		pool *Pool
		err  = ctx.Err()
	)
	b.transition(StatePoolStarting)
	if err == nil {
		pool, err = NewPool(context.WithoutCancel(ctx), workers, d.cfg.StartTimeout, b.logger)
	}
	sig, pending := held.Release()

	if err != nil {
		err = b.abort(ctx, err)
		b.transition(StateTeardown)
		b.transition(StateDone)
		return nil, err
	}

	if d.cfg.OnPoolStart != nil {
		d.cfg.OnPoolStart(pool.PIDs())
	}

	if pending {
		b.logger.Info("interrupt received while starting workers", "signal", sig.String())
		b.transition(StateInterrupted)
		b.teardown(pool, false)
		return nil, &util.InterruptError{Signal: sig}
	}
	if ctx.Err() != nil {
		b.logger.Info("context done while starting workers", "error", ctx.Err())
		err = b.abort(ctx, ctx.Err())
		b.teardown(pool, false)
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	b.transition(StateRunning)
	completions := pool.Map(runCtx, b.id, req.Func, tasksFrom(req.Args), d.cfg.Policy)

	outcomes, err := b.collect(ctx, completions, total)
	cancel()

	teardownErr := b.teardown(pool, err == nil)
	if err != nil {
		if teardownErr != nil {
			b.logger.Warn("teardown after failed batch", "error", teardownErr)
		}
		return nil, err
	}

	result := &Result{
		BatchID:  b.id,
		Func:     req.Func,
		Workers:  workers,
		Outcomes: outcomes,
		Duration: time.Since(started),
	}
	b.logger.Debug("batch finished", "tasks", total, "workers", workers, "duration", result.Duration)

	// The results are complete; a worker that misbehaved on the way out is still reported.
	return result, teardownErr
}

// collect waits for every outcome, the timeout, a propagated failure or cancellation,
// whichever comes first, and moves the batch to the matching terminal state
func (b *batch) collect(ctx context.Context, completions <-chan Completion, total int) ([]Outcome, error) {
	cfg := b.d.cfg
	outcomes := make([]Outcome, total)
	completed := 0

	timer := time.NewTimer(cfg.Timeout)
	defer timer.Stop()

	for completed < total {
		select {
		case c, ok := <-completions:
			if !ok {
				b.transition(StateFailed)
				return nil, util.NewPoolError("collect",
					fmt.Errorf("workers stopped after %d of %d tasks", completed, total))
			}
			if c.Err != nil {
				b.transition(StateFailed)
				return nil, c.Err
			}

			o := c.Outcome
			b.d.emit(o)
			observeOutcome(o)
			outcomes[o.Index] = o
			completed++

			if o.Failed() {
				b.logger.Debug("task failed, aborting batch", "task", o.Index, "error", o.Err.Message)
				b.transition(StateFailed)
				return nil, o.Err
			}
			if o.Suppressed {
				b.logger.Debug("task failure suppressed", "task", o.Index, "error", o.Err.Message)
			}

		case <-timer.C:
			b.transition(StateTimedOut)
			return nil, &util.TimeoutError{Timeout: cfg.Timeout, Completed: completed, Total: total}

		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				b.transition(StateTimedOut)
				return nil, &util.TimeoutError{Timeout: cfg.Timeout, Completed: completed, Total: total}
			}
			b.transition(StateInterrupted)
			return nil, &util.InterruptError{Cause: ctx.Err()}
		}
	}

	b.transition(StateCompleted)
	return outcomes, nil
}

// abort maps a pool start failure to the batch's terminal state and error
func (b *batch) abort(ctx context.Context, err error) error {
	switch {
	case ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded):
		b.transition(StateTimedOut)
		return &util.TimeoutError{Timeout: b.d.cfg.Timeout}
	case ctx.Err() != nil:
		b.transition(StateInterrupted)
		return &util.InterruptError{Cause: ctx.Err()}
	default:
		b.transition(StateFailed)
		return err
	}
}

// teardown releases the pool: gracefully after a completed batch, by killing otherwise
func (b *batch) teardown(pool *Pool, graceful bool) error {
	b.transition(StateTeardown)
	defer b.transition(StateDone)

	if graceful {
		if err := pool.Close(); err != nil {
			b.logger.Debug("closing worker input", "error", err)
		}
	} else {
		pool.Terminate()
	}
	return pool.Join()
}

// emit writes a task's buffered output as one block
func (d *Dispatcher) emit(o Outcome) {
	if len(o.Output) == 0 {
		return
	}

	d.outMu.Lock()
	defer d.outMu.Unlock()

	if _, err := d.cfg.Output.Write(o.Output); err != nil {
		d.logger.Warn("writing task output", "task", o.Index, "error", err)
	}
}

func tasksFrom(args []protocol.Arg) []Task {
	tasks := make([]Task, len(args))
	for i, arg := range args {
		tasks[i] = Task{Index: i, Arg: arg}
	}
	return tasks
}
