package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aryankumar/procpool/internal/protocol"
	"github.com/aryankumar/procpool/internal/util"
)

// Task is one argument unit of a batch together with its position in the argument list.
// The index is only used to put the outcome back in its slot.
type Task struct {
	Index int
	Arg   protocol.Arg
}

// Outcome is what one task produced
type Outcome struct {
	// Index is the task's position in the argument list
	Index int

	// Value is the JSON-encoded return value; "null" for functions without a value and for
	// suppressed failures
	Value json.RawMessage

	// Err is the task's failure, nil on success. Under log-and-continue the error is kept
	// here for reporting and Suppressed is set.
	Err *util.TaskError

	// Suppressed marks a failure that was printed into Output instead of aborting the batch
	Suppressed bool

	// Output is everything the task wrote to stdout and stderr, empty if it wrote nothing
	Output []byte

	// Duration is how long the task ran inside the worker
	Duration time.Duration

	// WorkerPID is the process that ran the task
	WorkerPID int
}

// Failed reports whether the outcome is a failure that was not contained
func (o Outcome) Failed() bool {
	return o.Err != nil && !o.Suppressed
}

// Completion is an outcome or a transport failure, as delivered by a worker goroutine.
// A non-nil Err means the worker process could not be driven and Outcome is empty.
type Completion struct {
	Outcome Outcome
	Err     error
}

// Pool is a fixed set of worker processes.
// A pool is built for one batch and released with Close or Terminate followed by Join.
type Pool struct {
	// workers is the number of worker processes
	workers int

	// procs are the running workers, one goroutine each while mapping
	procs []*workerProcess

	// logger for structured logging
	logger *slog.Logger

	// wg tracks the worker goroutines started by Map
	wg sync.WaitGroup

	// running indicates that Map has been called
	running atomic.Bool

	// terminated indicates that workers were killed rather than closed
	terminated atomic.Bool

	seq      atomic.Uint64
	joinOnce sync.Once
	joinErr  error
}

// NewPool starts workers worker processes and waits until every one of them is ready.
// If any worker fails to start, the ones already running are killed and a PoolError
// is returned; a pool is never handed out half-built.
func NewPool(ctx context.Context, workers int, startTimeout time.Duration, logger *slog.Logger) (*Pool, error) {
	if workers <= 0 {
		workers = 1
	}

	if logger == nil {
		logger = slog.Default()
	}

	if startTimeout <= 0 {
		startTimeout = DefaultStartTimeout
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	started := time.Now()
	procs := make([]*workerProcess, workers)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		id := i
		g.Go(func() error {
			proc, err := startWorker(gctx, id, startTimeout, logger)
			if err != nil {
				return err
			}
			procs[id] = proc
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, proc := range procs {
			if proc != nil {
				proc.kill()
				proc.wait()
			}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	poolStartDuration.Observe(time.Since(started).Seconds())
	activeWorkers.Add(float64(workers))

	logger.Debug("worker pool started", "workers", workers, "duration", time.Since(started))

	return &Pool{
		workers: workers,
		procs:   procs,
		logger:  logger,
	}, nil
}

// Map submits every task and returns at once. Each worker process takes tasks from a
// shared queue one at a time; completions arrive on the returned channel in completion
// order and carry their task index. The channel is closed when all workers have stopped,
// either because the queue is drained, ctx is done, or their process died.
func (p *Pool) Map(ctx context.Context, batchID, fn string, tasks []Task, policy protocol.Policy) <-chan Completion {
	if !p.running.CompareAndSwap(false, true) {
		ch := make(chan Completion, 1)
		ch <- Completion{Err: util.NewPoolError("map", fmt.Errorf("pool already in use"))}
		close(ch)
		return ch
	}

	// Buffer size = task count so workers never block on a slow reader
	taskChan := make(chan Task, len(tasks))
	resultChan := make(chan Completion, len(tasks)+len(p.procs))

	for _, task := range tasks {
		taskChan <- task
	}
	close(taskChan)

	for _, proc := range p.procs {
		p.wg.Add(1)
		go p.worker(ctx, proc, batchID, fn, policy, taskChan, resultChan)
	}

	go func() {
		p.wg.Wait()
		close(resultChan)
	}()

	p.logger.Debug("tasks submitted", "batch_id", batchID, "tasks", len(tasks), "workers", len(p.procs))

	return resultChan
}

// worker feeds tasks to one process until the queue is empty or the process fails
func (p *Pool) worker(
	ctx context.Context,
	proc *workerProcess,
	batchID, fn string,
	policy protocol.Policy,
	taskChan <-chan Task,
	resultChan chan<- Completion,
) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case task, ok := <-taskChan:
			if !ok {
				return
			}

			req := protocol.Request{
				Seq:    p.seq.Add(1),
				Index:  task.Index,
				Batch:  batchID,
				Func:   fn,
				Arg:    task.Arg,
				Policy: policy,
			}

			resp, err := proc.call(req)
			if err != nil {
				if p.terminated.Load() || ctx.Err() != nil {
					// Expected: the pool is being torn down.
					return
				}
				resultChan <- Completion{Err: err}
				return
			}

			resultChan <- Completion{Outcome: outcomeFrom(resp, fn, proc.pid)}
		}
	}
}

func outcomeFrom(resp protocol.Response, fn string, pid int) Outcome {
	o := Outcome{
		Index:      resp.Index,
		Value:      resp.Value,
		Suppressed: resp.Suppressed,
		Output:     resp.Output,
		Duration:   resp.Duration,
		WorkerPID:  pid,
	}
	if resp.Error != nil {
		o.Err = &util.TaskError{
			Index:   resp.Index,
			Func:    fn,
			Message: resp.Error.Message,
			Origin:  resp.Error.Origin,
			Panic:   resp.Error.Panic,
			Stack:   resp.Error.Stack,
		}
	}
	return o
}

// Close lets the workers finish and exit on their own
func (p *Pool) Close() error {
	var errs util.MultiError
	for _, proc := range p.procs {
		errs.Add(proc.close())
	}
	return errs.ErrorOrNil()
}

// Terminate kills every worker process immediately
func (p *Pool) Terminate() {
	if !p.terminated.CompareAndSwap(false, true) {
		return
	}
	p.logger.Debug("terminating worker pool", "workers", len(p.procs))
	for _, proc := range p.procs {
		proc.kill()
	}
}

// Join waits for every worker process and goroutine to finish.
// After Close a worker that does not exit within a grace period is killed.
// Join is idempotent and returns the same error every time.
func (p *Pool) Join() error {
	p.joinOnce.Do(func() {
		var errs util.MultiError
		for _, proc := range p.procs {
			if p.terminated.Load() {
				proc.wait()
				continue
			}
			errs.Add(proc.waitOrKill(closeGrace))
		}
		p.wg.Wait()
		activeWorkers.Sub(float64(len(p.procs)))

		if err := errs.ErrorOrNil(); err != nil {
			p.joinErr = util.NewPoolError("teardown", err)
		}
	})
	return p.joinErr
}

// WorkerCount returns the number of workers in the pool
func (p *Pool) WorkerCount() int {
	return p.workers
}

// PIDs returns the process ids of the workers
func (p *Pool) PIDs() []int {
	pids := make([]int, len(p.procs))
	for i, proc := range p.procs {
		pids[i] = proc.pid
	}
	return pids
}

// IsRunning returns true once tasks have been submitted
func (p *Pool) IsRunning() bool {
	return p.running.Load()
}
