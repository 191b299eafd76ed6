//go:build unix

package executor

import (
	"context"
	"errors"
	"os"
	"sort"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/aryankumar/procpool/internal/protocol"
	"github.com/aryankumar/procpool/internal/util"
)

// processGone reports whether pid no longer names a running process
func processGone(pid int) bool {
	err := unix.Kill(pid, 0)
	return errors.Is(err, unix.ESRCH)
}

func waitGone(t *testing.T, pids []int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for _, pid := range pids {
		for !processGone(pid) {
			if time.Now().After(deadline) {
				t.Fatalf("worker pid %d still running", pid)
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func TestNewPool(t *testing.T) {
	tests := []struct {
		name            string
		workers         int
		expectedWorkers int
	}{
		{
			name:            "positive workers",
			workers:         3,
			expectedWorkers: 3,
		},
		{
			name:            "zero workers defaults to 1",
			workers:         0,
			expectedWorkers: 1,
		},
		{
			name:            "negative workers defaults to 1",
			workers:         -5,
			expectedWorkers: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, err := NewPool(context.Background(), tt.workers, 0, testLogger())
			if err != nil {
				t.Fatalf("NewPool: %v", err)
			}

			if pool.WorkerCount() != tt.expectedWorkers {
				t.Errorf("expected %d workers, got %d", tt.expectedWorkers, pool.WorkerCount())
			}

			pids := pool.PIDs()
			if len(pids) != tt.expectedWorkers {
				t.Fatalf("expected %d pids, got %d", tt.expectedWorkers, len(pids))
			}
			for _, pid := range pids {
				if pid == os.Getpid() || processGone(pid) {
					t.Errorf("pid %d is not a running worker", pid)
				}
			}

			if pool.IsRunning() {
				t.Error("new pool should not be running")
			}

			if err := pool.Close(); err != nil {
				t.Errorf("Close: %v", err)
			}
			if err := pool.Join(); err != nil {
				t.Errorf("Join: %v", err)
			}
			waitGone(t, pids)
		})
	}
}

func TestNewPool_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool, err := NewPool(ctx, 2, 0, testLogger())
	if err == nil {
		pool.Terminate()
		pool.Join()
		t.Fatal("expected error for cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestPool_Map(t *testing.T) {
	pool, err := NewPool(context.Background(), 3, 0, testLogger())
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer func() {
		pool.Close()
		pool.Join()
	}()

	args := mustArgs(t, 9, 3, 8, 1, 33)
	completions := pool.Map(context.Background(), "batch", "double", tasksFrom(args), protocol.Propagate)

	got := make(map[int]string)
	pids := make(map[int]bool)
	for c := range completions {
		if c.Err != nil {
			t.Fatalf("unexpected transport error: %v", c.Err)
		}
		got[c.Outcome.Index] = string(c.Outcome.Value)
		pids[c.Outcome.WorkerPID] = true
	}

	want := map[int]string{0: "18", 1: "6", 2: "16", 3: "2", 4: "66"}
	if len(got) != len(want) {
		t.Fatalf("expected %d outcomes, got %d", len(want), len(got))
	}
	for idx, v := range want {
		if got[idx] != v {
			t.Errorf("outcome %d = %s, want %s", idx, got[idx], v)
		}
	}

	workers := pool.PIDs()
	for pid := range pids {
		found := false
		for _, w := range workers {
			found = found || w == pid
		}
		if !found {
			t.Errorf("outcome reported unknown worker pid %d", pid)
		}
	}

	if !pool.IsRunning() {
		t.Error("pool should be running after Map")
	}
}

func TestPool_MapTwice(t *testing.T) {
	pool, err := NewPool(context.Background(), 1, 0, testLogger())
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer func() {
		pool.Close()
		pool.Join()
	}()

	for range pool.Map(context.Background(), "b1", "double", tasksFrom(mustArgs(t, 1)), protocol.Propagate) {
	}

	second := pool.Map(context.Background(), "b2", "double", tasksFrom(mustArgs(t, 1)), protocol.Propagate)
	c := <-second
	if !errors.Is(c.Err, util.ErrPool) {
		t.Errorf("expected ErrPool for a second Map, got %v", c.Err)
	}
}

func TestPool_TerminateKillsWorkers(t *testing.T) {
	pool, err := NewPool(context.Background(), 2, 0, testLogger())
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	pids := pool.PIDs()

	ctx, cancel := context.WithCancel(context.Background())
	completions := pool.Map(ctx, "batch", "sleep", tasksFrom(mustArgs(t, 30.0, 30.0, 30.0)), protocol.Propagate)

	time.Sleep(100 * time.Millisecond)
	cancel()
	pool.Terminate()
	pool.Terminate() // idempotent

	done := make(chan struct{})
	go func() {
		for range completions {
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("completion channel not closed after Terminate")
	}

	if err := pool.Join(); err != nil {
		t.Errorf("Join after Terminate: %v", err)
	}
	if err := pool.Join(); err != nil {
		t.Errorf("second Join: %v", err)
	}
	waitGone(t, pids)
}

func TestPool_PIDsDistinct(t *testing.T) {
	pool, err := NewPool(context.Background(), 4, 0, testLogger())
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer func() {
		pool.Terminate()
		pool.Join()
	}()

	pids := pool.PIDs()
	sort.Ints(pids)
	for i := 1; i < len(pids); i++ {
		if pids[i] == pids[i-1] {
			t.Errorf("duplicate worker pid %d", pids[i])
		}
	}
}
