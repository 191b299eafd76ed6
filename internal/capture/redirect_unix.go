//go:build unix

package capture

import (
	"os"

	"golang.org/x/sys/unix"
)

// redirect points file descriptors 1 and 2 at f. Anything writing to the process's
// standard streams, including child processes and C code, lands in f.
func redirect(f *os.File) (func() error, error) {
	savedOut, err := unix.Dup(unix.Stdout)
	if err != nil {
		return nil, err
	}
	savedErr, err := unix.Dup(unix.Stderr)
	if err != nil {
		unix.Close(savedOut)
		return nil, err
	}

	fd := int(f.Fd())
	if err := unix.Dup2(fd, unix.Stdout); err != nil {
		unix.Close(savedOut)
		unix.Close(savedErr)
		return nil, err
	}
	if err := unix.Dup2(fd, unix.Stderr); err != nil {
		unix.Dup2(savedOut, unix.Stdout)
		unix.Close(savedOut)
		unix.Close(savedErr)
		return nil, err
	}

	return func() error {
		errOut := unix.Dup2(savedOut, unix.Stdout)
		errErr := unix.Dup2(savedErr, unix.Stderr)
		unix.Close(savedOut)
		unix.Close(savedErr)
		if errOut != nil {
			return errOut
		}
		return errErr
	}, nil
}
