package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/aryankumar/procpool/internal/protocol"
	"github.com/aryankumar/procpool/internal/registry"
)

const (
	// EnvMarker marks a process as a pool worker.
	EnvMarker = "PROCPOOL_WORKER"

	// EnvLogLevel carries the coordinator's log level to its workers.
	EnvLogLevel = "PROCPOOL_WORKER_LOG_LEVEL"

	// ResponseFD is the descriptor a worker writes its frames to.
	ResponseFD = 3
)

// IsWorkerProcess reports whether this process was started as a pool worker.
func IsWorkerProcess() bool {
	return os.Getenv(EnvMarker) == "1"
}

// Main serves requests on stdin and descriptor 3 until stdin is closed, and returns the
// process exit code.
func Main(reg *registry.Registry) int {
	// Interrupts are for the coordinator; it terminates workers itself.
	signal.Ignore(os.Interrupt)

	var level slog.Level
	if err := level.UnmarshalText([]byte(os.Getenv(EnvLogLevel))); err != nil {
		level = slog.LevelWarn
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})).
		With("component", "worker", "pid", os.Getpid())

	out := os.NewFile(ResponseFD, "procpool-responses")
	if out == nil {
		logger.Error("response descriptor not available")
		return 2
	}
	defer out.Close()

	if err := Serve(context.Background(), os.Stdin, out, reg, logger); err != nil {
		logger.Error("worker stopped", "error", err)
		return 1
	}
	return 0
}

// Serve announces readiness on w, then answers every request read from r.
// It returns nil when r reaches end of stream.
func Serve(ctx context.Context, r io.Reader, w io.Writer, reg *registry.Registry, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	if err := protocol.WriteMessage(w, protocol.Message{Type: protocol.MsgTypeReady, PID: os.Getpid()}); err != nil {
		return fmt.Errorf("announce ready: %w", err)
	}
	logger.Debug("worker ready")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var msg protocol.Message
		if err := protocol.ReadMessage(r, &msg); err != nil {
			if errors.Is(err, io.EOF) {
				logger.Debug("request stream closed, worker exiting")
				return nil
			}
			return fmt.Errorf("read request: %w", err)
		}

		if msg.Type != protocol.MsgTypeRequest || msg.Request == nil {
			return fmt.Errorf("unexpected frame type %q", msg.Type)
		}

		req := *msg.Request
		logger.Debug("task received", "task", req.Index, "func", req.Func, "batch_id", req.Batch)

		resp := RunTask(reg, req)

		logger.Debug("task finished",
			"task", req.Index,
			"failed", resp.Error != nil,
			"suppressed", resp.Suppressed,
			"duration", resp.Duration)

		if err := protocol.WriteMessage(w, protocol.Message{Type: protocol.MsgTypeResponse, Response: &resp}); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
}
