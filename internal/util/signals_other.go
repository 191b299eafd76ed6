//go:build !unix

package util

import "os"

// DefaultSignals returns the signals treated as a caller interrupt
func DefaultSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
