package util

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
)

// SetupSignalHandler creates a context that is cancelled on receiving one of the default
// interrupt signals. A second signal will force immediate exit.
func SetupSignalHandler() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	// Create channel to receive OS signals
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, DefaultSignals()...)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig.String())
		cancel()

		// Second signal forces immediate exit
		sig = <-sigCh
		slog.Warn("received second shutdown signal, forcing exit", "signal", sig.String())
		os.Exit(1)
	}()

	return ctx
}

// HeldSignals keeps interrupt signals pending while a critical section runs.
//
// While held, the signals are delivered to a private buffered channel instead of their
// previous disposition, so a Ctrl+C cannot kill the process half way through. Release
// restores the previous behaviour and reports the first signal that arrived meanwhile.
type HeldSignals struct {
	ch       chan os.Signal
	once     sync.Once
	received os.Signal
}

// HoldSignals starts holding the given signals (DefaultSignals when none are given).
// Signals the process currently ignores are left alone.
func HoldSignals(sigs ...os.Signal) *HeldSignals {
	if len(sigs) == 0 {
		sigs = DefaultSignals()
	}

	active := make([]os.Signal, 0, len(sigs))
	for _, sig := range sigs {
		if !signal.Ignored(sig) {
			active = append(active, sig)
		}
	}

	h := &HeldSignals{ch: make(chan os.Signal, len(sigs)+1)}
	if len(active) > 0 {
		signal.Notify(h.ch, active...)
	}
	return h
}

// Release stops holding and returns the first signal received while held, if any.
// Calling Release more than once returns the same answer.
func (h *HeldSignals) Release() (os.Signal, bool) {
	h.once.Do(func() {
		signal.Stop(h.ch)
		select {
		case sig := <-h.ch:
			h.received = sig
		default:
		}
	})
	return h.received, h.received != nil
}
