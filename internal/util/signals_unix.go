//go:build unix

package util

import (
	"os"
	"syscall"
)

// DefaultSignals returns the signals treated as a caller interrupt
func DefaultSignals() []os.Signal {
	return []os.Signal{
		os.Interrupt,    // SIGINT
		syscall.SIGTERM, // graceful termination
	}
}
