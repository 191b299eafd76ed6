// Package executor runs a registered function over a list of argument units, one task per
// unit, in a pool of worker processes.
//
// Workers are the current executable started again with a marker in its environment; they
// find the function by name in the same registry the coordinator sees. Requests travel on a
// worker's stdin and responses come back on descriptor 3, so a task writing to stdout can
// never corrupt the stream.
//
// # Basic Usage
//
//	d, err := executor.NewDispatcher(executor.Config{Workers: 4})
//	if err != nil {
//	    return err
//	}
//
//	args, _ := protocol.NewArgs([]any{9, 3, 8, 1, 33})
//	result, err := d.Run(ctx, executor.Request{Func: "double", Args: args})
//	if err != nil {
//	    return err
//	}
//
//	values, err := executor.Values[int](result.Outcomes) // [18 6 16 2 66]
//
// # Output
//
// Everything a task writes to stdout or stderr is buffered inside its worker and written to
// Config.Output as a single block when the task completes. Blocks appear in completion order;
// results are always returned in argument order.
//
// # Failures
//
// Under protocol.Propagate the first failing task ends the batch: every worker is killed and
// Run returns the task's *util.TaskError. Under protocol.LogAndContinue the failure is printed
// into the task's output block, the outcome is marked Suppressed and the batch goes on.
//
// # Lifecycle
//
// A batch moves through Idle, PoolStarting and Running into one of Completed, TimedOut,
// Interrupted or Failed, and always ends with Teardown and Done. Interrupt signals are held
// while the pool starts so that a Ctrl+C never leaves a half-built pool behind; one that
// arrives during that window interrupts the batch right after.
//
// Worker processes never outlive Run.
package executor
