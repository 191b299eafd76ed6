// Package procpool runs a function over a list of arguments in separate worker processes,
// with bounded concurrency, results in argument order and readable console output.
//
// Task functions are registered by name, usually in an init function:
//
//	func init() {
//	    procpool.MustRegister("double", func(v int) int { return v * 2 })
//	}
//
// Workers are the running executable started again, so main (and TestMain) must hand
// control to the worker loop before doing anything else:
//
//	func main() {
//	    procpool.ServeIfWorker()
//	    ...
//	    doubled, err := procpool.Run[int](ctx, "double", []any{9, 3, 8, 1, 33})
//	}
//
// A procpool.Tuple argument is spread into positional parameters; any other value is
// passed whole as the only parameter.
package procpool

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aryankumar/procpool/internal/executor"
	"github.com/aryankumar/procpool/internal/protocol"
	"github.com/aryankumar/procpool/internal/registry"
	"github.com/aryankumar/procpool/internal/util"
	"github.com/aryankumar/procpool/internal/worker"
)

// Tuple is an argument unit whose elements are passed as separate arguments
type Tuple = protocol.Tuple

// Policy decides what a task failure does to the rest of the batch
type Policy = protocol.Policy

const (
	// Propagate aborts the batch with the first task failure
	Propagate = protocol.Propagate

	// LogAndContinue prints the failure with the task's output and continues;
	// the failed task's result is the zero value
	LogAndContinue = protocol.LogAndContinue
)

// Result and outcome of a batch
type (
	Result  = executor.Result
	Outcome = executor.Outcome
)

// Errors returned by Run
type (
	TaskError      = util.TaskError
	TimeoutError   = util.TimeoutError
	InterruptError = util.InterruptError
	PoolError      = util.PoolError
)

// Sentinel errors for errors.Is
var (
	ErrTaskFailed    = util.ErrTaskFailed
	ErrTimeout       = util.ErrTimeout
	ErrCancelled     = util.ErrCancelled
	ErrPool          = util.ErrPool
	ErrInvalidConfig = util.ErrInvalidConfig
	ErrInvalidFunc   = util.ErrInvalidFunc
	ErrUnknownFunc   = util.ErrUnknownFunc
)

// DefaultTimeout bounds a batch unless WithTimeout says otherwise
const DefaultTimeout = executor.DefaultTimeout

// Register makes fn available to worker processes under name.
// fn must be a func whose results are (), (T), (error) or (T, error).
func Register(name string, fn any) error {
	return registry.Default.Register(name, fn)
}

// MustRegister is like Register but panics on error
func MustRegister(name string, fn any) {
	registry.Default.MustRegister(name, fn)
}

// Registered returns the names of all registered functions
func Registered() []string {
	return registry.Default.Names()
}

// ServeIfWorker turns the process into a worker and exits when it was started as one.
// In any other process it returns immediately.
func ServeIfWorker() {
	if worker.IsWorkerProcess() {
		os.Exit(worker.Main(registry.Default))
	}
}

// IsWorker reports whether the process was started as a worker
func IsWorker() bool {
	return worker.IsWorkerProcess()
}

// Option configures a batch
type Option func(*executor.Config)

// WithWorkers sets the number of worker processes (default: number of CPUs)
func WithWorkers(n int) Option {
	return func(c *executor.Config) { c.Workers = n }
}

// WithTimeout bounds the wait for all results (default: DefaultTimeout)
func WithTimeout(d time.Duration) Option {
	return func(c *executor.Config) { c.Timeout = d }
}

// WithStartTimeout bounds the wait for the workers to come up
func WithStartTimeout(d time.Duration) Option {
	return func(c *executor.Config) { c.StartTimeout = d }
}

// WithFailurePolicy selects Propagate (default) or LogAndContinue
func WithFailurePolicy(p Policy) Option {
	return func(c *executor.Config) { c.Policy = p }
}

// WithOutput sets where task output blocks are written (default: os.Stdout)
func WithOutput(w io.Writer) Option {
	return func(c *executor.Config) { c.Output = w }
}

// WithLogger sets the logger (default: slog.Default())
func WithLogger(l *slog.Logger) Option {
	return func(c *executor.Config) { c.Logger = l }
}

// WithSignals sets the signals held pending while the pool starts
func WithSignals(sigs ...os.Signal) Option {
	return func(c *executor.Config) { c.Signals = sigs }
}

// RunOutcomes runs name once per element of args and returns every outcome in argument order
func RunOutcomes(ctx context.Context, name string, args []any, opts ...Option) (*Result, error) {
	var cfg executor.Config
	for _, opt := range opts {
		opt(&cfg)
	}

	d, err := executor.NewDispatcher(cfg)
	if err != nil {
		return nil, err
	}

	encoded, err := protocol.NewArgs(args)
	if err != nil {
		return nil, err
	}

	return d.Run(ctx, executor.Request{Func: name, Args: encoded})
}

// Run runs name once per element of args and decodes the results into R, in argument order
func Run[R any](ctx context.Context, name string, args []any, opts ...Option) ([]R, error) {
	result, err := RunOutcomes(ctx, name, args, opts...)
	if err != nil {
		return nil, err
	}
	return executor.Values[R](result.Outcomes)
}
