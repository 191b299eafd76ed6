package util

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Common error kinds for procpool
var (
	// ErrTaskFailed indicates a task function returned an error inside a worker
	ErrTaskFailed = errors.New("task failed")

	// ErrTimeout indicates the batch exceeded its configured wait
	ErrTimeout = errors.New("operation timed out")

	// ErrCancelled indicates the caller interrupted the batch
	ErrCancelled = errors.New("operation cancelled")

	// ErrPool indicates the worker pool could not be started or torn down
	ErrPool = errors.New("worker pool failure")

	// ErrInvalidConfig indicates a configuration error
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidFunc indicates a value that cannot be registered as a task function
	ErrInvalidFunc = errors.New("invalid task function")

	// ErrUnknownFunc indicates a task function name with no registration
	ErrUnknownFunc = errors.New("unknown task function")
)

// TaskError is the failure of a single task, as reported by the worker that ran it
type TaskError struct {
	// Index is the position of the task in the argument list
	Index int

	// Func is the registered name of the task function
	Func string

	// Message is the text of the error returned by the function
	Message string

	// Origin describes where the error was raised (function, arguments, worker pid)
	Origin string

	// Panic is set when the function panicked instead of returning an error
	Panic bool

	// Stack holds the worker-side stack trace of a panic
	Stack string
}

// Error implements the error interface
func (e *TaskError) Error() string {
	if e.Origin == "" {
		return fmt.Sprintf("task %d: %s", e.Index, e.Message)
	}
	return fmt.Sprintf("task %d: %s (raised by %s)", e.Index, e.Message, e.Origin)
}

// Unwrap returns ErrTaskFailed for errors.Is compatibility
func (e *TaskError) Unwrap() error {
	return ErrTaskFailed
}

// TimeoutError reports a batch that did not complete within its timeout
type TimeoutError struct {
	Timeout   time.Duration
	Completed int
	Total     int
}

// Error implements the error interface
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("batch did not complete within %s (%d/%d tasks done)", e.Timeout, e.Completed, e.Total)
}

// Unwrap returns ErrTimeout
func (e *TimeoutError) Unwrap() error {
	return ErrTimeout
}

// InterruptError reports a batch aborted by the caller.
// Signal is set when an OS signal arrived while the pool was starting;
// Cause is set when the caller's context was cancelled.
type InterruptError struct {
	Signal os.Signal
	Cause  error
}

// Error implements the error interface
func (e *InterruptError) Error() string {
	switch {
	case e.Signal != nil:
		return fmt.Sprintf("interrupted by %s", e.Signal)
	case e.Cause != nil:
		return fmt.Sprintf("interrupted: %v", e.Cause)
	default:
		return "interrupted"
	}
}

// Unwrap returns both ErrCancelled and the cause, if any
func (e *InterruptError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrCancelled}
	}
	return []error{ErrCancelled, e.Cause}
}

// PoolError wraps a failure to build, drive or release the worker pool
type PoolError struct {
	// Op is the pool operation that failed (start, handshake, send, receive, teardown)
	Op  string
	Err error
}

// Error implements the error interface
func (e *PoolError) Error() string {
	return fmt.Sprintf("worker pool %s: %v", e.Op, e.Err)
}

// Unwrap returns both ErrPool and the wrapped error
func (e *PoolError) Unwrap() []error {
	return []error{ErrPool, e.Err}
}

// NewPoolError wraps err as a PoolError for the given operation
func NewPoolError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PoolError{Op: op, Err: err}
}

// MultiError aggregates multiple errors
type MultiError struct {
	Errors []error
}

// Error implements the error interface
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors occurred:", len(m.Errors)))
	for i, err := range m.Errors {
		if i < 10 {
			sb.WriteString(fmt.Sprintf("\n  %d. %v", i+1, err))
		} else if i == 10 {
			sb.WriteString(fmt.Sprintf("\n  ... and %d more errors", len(m.Errors)-10))
			break
		}
	}
	return sb.String()
}

// Unwrap returns the errors for errors.Is/As compatibility
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Add adds an error to the multi-error
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// ErrorOrNil returns nil if no errors were added, otherwise returns the MultiError
func (m *MultiError) ErrorOrNil() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}

// CombineErrors combines multiple errors into a single error
// Returns nil if all errors are nil
func CombineErrors(errs ...error) error {
	m := &MultiError{}
	for _, err := range errs {
		m.Add(err)
	}
	return m.ErrorOrNil()
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsCancelled checks if an error is a cancellation error
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// IsTaskFailure checks if an error is a task failure
func IsTaskFailure(err error) bool {
	return errors.Is(err, ErrTaskFailed)
}

// FriendlyError converts technical errors to user-friendly messages
func FriendlyError(err error) string {
	if err == nil {
		return ""
	}

	var taskErr *TaskError
	switch {
	case errors.As(err, &taskErr):
		return fmt.Sprintf("Task #%d (%s) failed: %s", taskErr.Index, taskErr.Func, taskErr.Message)
	case IsTimeout(err):
		return "Batch timed out. Increase the timeout with --timeout or reduce the work per task."
	case IsCancelled(err):
		return "Batch was cancelled."
	case errors.Is(err, ErrUnknownFunc):
		return "Unknown function. Run 'procpool funcs' to list the registered functions."
	case errors.Is(err, ErrPool):
		return fmt.Sprintf("Worker pool failure: %v", err)
	case errors.Is(err, ErrInvalidConfig):
		return "Invalid configuration. Please check your config file and command-line flags."
	default:
		return err.Error()
	}
}
