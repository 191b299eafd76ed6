// Package builtin holds the task functions that ship with the procpool command.
//
// They exist to try the executor from the command line: pure computations, functions that
// print, sleep or fail on purpose.
package builtin

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/aryankumar/procpool/internal/registry"
)

// maxNap bounds the random sleep of Nap
const maxNap = time.Second

// Double returns v*2
func Double(v float64) float64 {
	return v * 2
}

// SumSquares returns a²+b²
func SumSquares(a, b float64) float64 {
	return a*a + b*b
}

// Shout prints a line from the worker and returns idx*2
func Shout(idx int) int {
	fmt.Printf("This is a print statement in worker process #%d (pid %d).\n", idx, os.Getpid())
	return idx * 2
}

// Nap sleeps for a random time below a second, then returns v*2
func Nap(v float64) float64 {
	time.Sleep(time.Duration(rand.Int63n(int64(maxNap))))
	return v * 2
}

// Sleep blocks for the given number of seconds and returns it
func Sleep(seconds float64) float64 {
	time.Sleep(time.Duration(seconds * float64(time.Second)))
	return seconds
}

// Fail prints a line and returns an error for every index
func Fail(idx int) (int, error) {
	fmt.Printf("This is worker process #%d returning an error.\n", idx)
	return 0, fmt.Errorf("intentional failure #%d", idx)
}

// FailOn fails only for the given index and doubles every other one
func FailOn(idx, bad int) (int, error) {
	if idx == bad {
		fmt.Fprintf(os.Stderr, "task #%d is the bad one\n", idx)
		return 0, fmt.Errorf("intentional failure #%d", idx)
	}
	return idx * 2, nil
}

// Panic panics with the index
func Panic(idx int) int {
	panic(fmt.Sprintf("intentional panic #%d", idx))
}

// Env returns the value of an environment variable as seen by the worker
func Env(name string) string {
	return os.Getenv(name)
}

// Register adds every builtin to reg
func Register(reg *registry.Registry) error {
	funcs := []struct {
		name string
		fn   any
	}{
		{"double", Double},
		{"sumsq", SumSquares},
		{"shout", Shout},
		{"nap", Nap},
		{"sleep", Sleep},
		{"fail", Fail},
		{"fail-on", FailOn},
		{"panic", Panic},
		{"env", Env},
	}

	for _, f := range funcs {
		if err := reg.Register(f.name, f.fn); err != nil {
			return err
		}
	}
	return nil
}
