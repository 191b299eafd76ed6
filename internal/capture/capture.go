// Package capture buffers everything a process writes to its standard output and standard
// error while a function runs, and hands the whole block over exactly once when it returns.
//
// A capture scope is process-wide: it rebinds the process's stdout and stderr, so scopes in
// one process are serialised. Worker processes run one task at a time, which is the case
// this package is built for.
package capture

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// mu serialises scopes; the redirected streams belong to the whole process.
var mu sync.Mutex

// Do runs body with stdout and stderr redirected into a private temporary file.
//
// On every exit path (normal return, returned error, panic) the original streams are
// restored first and flush is then called exactly once with the complete captured text,
// which may be empty. A panic in body is re-raised after restore and flush. The error
// returned is body's error, or the flush error when body succeeded.
func Do(body func() error, flush func([]byte) error) (err error) {
	mu.Lock()
	defer mu.Unlock()

	tmp, err := os.CreateTemp("", "procpool-capture-*")
	if err != nil {
		return fmt.Errorf("create capture buffer: %w", err)
	}

	restore, err := redirect(tmp)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("redirect output: %w", err)
	}

	defer func() {
		restoreErr := restore()
		data, readErr := drain(tmp)
		flushErr := flush(data)

		if err == nil {
			switch {
			case restoreErr != nil:
				err = fmt.Errorf("restore output: %w", restoreErr)
			case readErr != nil:
				err = fmt.Errorf("read capture buffer: %w", readErr)
			case flushErr != nil:
				err = fmt.Errorf("flush captured output: %w", flushErr)
			}
		}
	}()

	return body()
}

// drain reads the whole buffer and removes the temporary file.
func drain(tmp *os.File) ([]byte, error) {
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return io.ReadAll(tmp)
}
