package executor

import (
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/ygrebnov/errorc"

	"github.com/aryankumar/procpool/internal/protocol"
	"github.com/aryankumar/procpool/internal/registry"
	"github.com/aryankumar/procpool/internal/util"
)

const (
	// DefaultTimeout bounds the wait for a whole batch
	DefaultTimeout = 600 * time.Second

	// DefaultStartTimeout bounds the wait for every worker to report ready
	DefaultStartTimeout = 10 * time.Second
)

// Config controls one Dispatcher.
// The zero value is usable: every unset field gets its default.
type Config struct {
	// Workers is the number of worker processes; 0 means runtime.NumCPU().
	// A batch never starts more workers than it has tasks.
	Workers int

	// Timeout bounds the wait for all results of a batch
	Timeout time.Duration

	// StartTimeout bounds the worker handshake
	StartTimeout time.Duration

	// Policy decides whether a task failure aborts the batch
	Policy protocol.Policy

	// Output receives each task's buffered console text; defaults to os.Stdout
	Output io.Writer

	// Signals are held pending while the pool starts; defaults to util.DefaultSignals()
	Signals []os.Signal

	// Registry resolves function names on the coordinator side; defaults to registry.Default
	Registry *registry.Registry

	// Logger for structured logging
	Logger *slog.Logger

	// OnStateChange, if set, is called on every state transition
	OnStateChange func(from, to State)

	// OnPoolStart, if set, is called with the worker pids once the pool is ready
	OnPoolStart func(pids []int)
}

func (c Config) withDefaults() Config {
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.StartTimeout == 0 {
		c.StartTimeout = DefaultStartTimeout
	}
	if c.Policy == "" {
		c.Policy = protocol.Propagate
	}
	if c.Output == nil {
		c.Output = os.Stdout
	}
	if c.Signals == nil {
		c.Signals = util.DefaultSignals()
	}
	if c.Registry == nil {
		c.Registry = registry.Default
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Validate checks the configuration after defaults are applied
func (c Config) Validate() error {
	if c.Workers < 0 {
		return errorc.With(util.ErrInvalidConfig, errorc.String("workers", strconv.Itoa(c.Workers)))
	}
	if c.Timeout < 0 {
		return errorc.With(util.ErrInvalidConfig, errorc.String("timeout", c.Timeout.String()))
	}
	if c.StartTimeout < 0 {
		return errorc.With(util.ErrInvalidConfig, errorc.String("start_timeout", c.StartTimeout.String()))
	}
	if c.Policy != "" && !c.Policy.Valid() {
		return errorc.With(util.ErrInvalidConfig, errorc.String("policy", string(c.Policy)))
	}
	return nil
}
