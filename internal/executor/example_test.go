package executor_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aryankumar/procpool/internal/executor"
	"github.com/aryankumar/procpool/internal/protocol"
)

// Example runs a function over a list of arguments in worker processes
func Example() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	d, err := executor.NewDispatcher(executor.Config{Workers: 3, Logger: logger})
	if err != nil {
		fmt.Println(err)
		return
	}

	args, _ := protocol.NewArgs([]any{9, 3, 8, 1, 33})
	result, err := d.Run(context.Background(), executor.Request{Func: "double", Args: args})
	if err != nil {
		fmt.Println(err)
		return
	}

	values, _ := executor.Values[int](result.Outcomes)
	fmt.Println(values)
	// Output: [18 6 16 2 66]
}

// Example_tuples spreads each tuple as positional arguments
func Example_tuples() {
	d, _ := executor.NewDispatcher(executor.Config{Workers: 2})

	args, _ := protocol.NewArgs([]any{protocol.Tuple{1, 2}, protocol.Tuple{3, 4}})
	result, err := d.Run(context.Background(), executor.Request{Func: "sumsq", Args: args})
	if err != nil {
		fmt.Println(err)
		return
	}

	values, _ := executor.Values[int](result.Outcomes)
	fmt.Println(values)
	// Output: [5 25]
}

// Example_logAndContinue keeps going after a failure and prints it with the task's output
func Example_logAndContinue() {
	d, _ := executor.NewDispatcher(executor.Config{
		Workers: 1,
		Policy:  protocol.LogAndContinue,
	})

	args, _ := protocol.NewArgs([]any{2, 3})
	result, err := d.Run(context.Background(), executor.Request{Func: "fail", Args: args})
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println(executor.Summarize(result.Outcomes).Failed, "failed,",
		executor.CountSuppressed(result.Outcomes), "suppressed")
	fmt.Println(result.Outcomes[1].Err.Message)
}
