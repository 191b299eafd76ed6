//go:build !unix

package capture

import "os"

// redirect swaps the os.Stdout and os.Stderr variables. Output written through other
// handles to the original streams is not captured on these platforms.
func redirect(f *os.File) (func() error, error) {
	stdout, stderr := os.Stdout, os.Stderr
	os.Stdout, os.Stderr = f, f
	return func() error {
		os.Stdout, os.Stderr = stdout, stderr
		return nil
	}, nil
}
