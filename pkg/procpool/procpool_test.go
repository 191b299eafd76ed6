package procpool_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryankumar/procpool/pkg/procpool"
)

func TestMain(m *testing.M) {
	procpool.ServeIfWorker()
	os.Exit(m.Run())
}

type point struct {
	X, Y int
}

func init() {
	procpool.MustRegister("double", func(v int) int { return v * 2 })
	procpool.MustRegister("sumsq", func(a, b int) int { return a*a + b*b })
	procpool.MustRegister("norm1", func(p point) int { return p.X + p.Y })
	procpool.MustRegister("join", func(sep string, parts ...string) string { return strings.Join(parts, sep) })
	procpool.MustRegister("hello", func(idx int) {
		fmt.Printf("hello from task %d\n", idx)
	})
	procpool.MustRegister("raise", func(idx int) (int, error) {
		fmt.Printf("task %d about to fail\n", idx)
		return 0, fmt.Errorf("intentional failure #%d", idx)
	})
	procpool.MustRegister("slow", func(ms int) int {
		time.Sleep(time.Duration(ms) * time.Millisecond)
		return ms
	})
}

func TestRun_SingleArgument(t *testing.T) {
	got, err := procpool.Run[int](context.Background(), "double", []any{9, 3, 8, 1, 33}, procpool.WithWorkers(3))
	require.NoError(t, err)
	assert.Equal(t, []int{18, 6, 16, 2, 66}, got)
}

func TestRun_Tuples(t *testing.T) {
	got, err := procpool.Run[int](context.Background(), "sumsq", []any{procpool.Tuple{1, 2}, procpool.Tuple{3, 4}})
	require.NoError(t, err)
	assert.Equal(t, []int{5, 25}, got)
}

func TestRun_StructAndVariadic(t *testing.T) {
	sums, err := procpool.Run[int](context.Background(), "norm1", []any{point{1, 2}, point{X: 10}})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 10}, sums)

	joined, err := procpool.Run[string](context.Background(), "join", []any{
		procpool.Tuple{"-", "a", "b", "c"},
		procpool.Tuple{","},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a-b-c", ""}, joined)
}

func TestRun_OutputBlocks(t *testing.T) {
	var out bytes.Buffer
	_, err := procpool.RunOutcomes(context.Background(), "hello", []any{1, 2, 3},
		procpool.WithWorkers(1), procpool.WithOutput(&out))
	require.NoError(t, err)

	assert.Equal(t, "hello from task 1\nhello from task 2\nhello from task 3\n", out.String())
}

func TestRun_Propagate(t *testing.T) {
	var out bytes.Buffer
	got, err := procpool.Run[int](context.Background(), "raise", []any{3}, procpool.WithOutput(&out))
	require.Error(t, err)
	assert.Nil(t, got)

	var taskErr *procpool.TaskError
	require.ErrorAs(t, err, &taskErr)
	assert.Equal(t, "intentional failure #3", taskErr.Message)
	assert.True(t, errors.Is(err, procpool.ErrTaskFailed))
	assert.Contains(t, out.String(), "task 3 about to fail")
}

func TestRun_LogAndContinue(t *testing.T) {
	var out bytes.Buffer
	got, err := procpool.Run[*int](context.Background(), "raise", []any{3, 4},
		procpool.WithFailurePolicy(procpool.LogAndContinue), procpool.WithOutput(&out))
	require.NoError(t, err)

	assert.Equal(t, []*int{nil, nil}, got)
	assert.Contains(t, out.String(), "intentional failure #3")
	assert.Contains(t, out.String(), "intentional failure #4")
}

func TestRun_Timeout(t *testing.T) {
	_, err := procpool.Run[int](context.Background(), "slow", []any{10_000},
		procpool.WithTimeout(200*time.Millisecond))

	var timeoutErr *procpool.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.ErrorIs(t, err, procpool.ErrTimeout)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	_, err := procpool.Run[int](ctx, "slow", []any{10_000})
	assert.ErrorIs(t, err, procpool.ErrCancelled)
}

func TestRun_Errors(t *testing.T) {
	_, err := procpool.Run[int](context.Background(), "missing", []any{1})
	assert.ErrorIs(t, err, procpool.ErrUnknownFunc)

	_, err = procpool.Run[int](context.Background(), "double", []any{1}, procpool.WithWorkers(-1))
	assert.ErrorIs(t, err, procpool.ErrInvalidConfig)

	_, err = procpool.Run[int](context.Background(), "double", []any{func() {}})
	assert.Error(t, err, "functions cannot be encoded as arguments")

	_, err = procpool.Run[string](context.Background(), "double", []any{1})
	assert.Error(t, err, "int result does not decode into string")
}

func TestRun_Empty(t *testing.T) {
	got, err := procpool.Run[int](context.Background(), "double", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRegister(t *testing.T) {
	assert.ErrorIs(t, procpool.Register("double", func(int) int { return 0 }), procpool.ErrInvalidFunc)
	assert.ErrorIs(t, procpool.Register("not-a-func", 42), procpool.ErrInvalidFunc)
	assert.Contains(t, procpool.Registered(), "sumsq")
	assert.False(t, procpool.IsWorker())
}
