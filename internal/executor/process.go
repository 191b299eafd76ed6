package executor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/aryankumar/procpool/internal/protocol"
	"github.com/aryankumar/procpool/internal/util"
	"github.com/aryankumar/procpool/internal/worker"
)

// closeGrace is how long a closed worker may take to exit before it is killed
const closeGrace = 5 * time.Second

// workerProcess is the coordinator's handle on one worker process
type workerProcess struct {
	id  int
	pid int

	cmd   *exec.Cmd
	stdin io.WriteCloser
	resp  *os.File

	logger *slog.Logger

	waitOnce sync.Once
	waitErr  error
	exited   chan struct{}
	killed   bool
	killMu   sync.Mutex
}

// startWorker re-executes the current binary as a worker and waits for its ready frame
func startWorker(ctx context.Context, id int, handshake time.Duration, logger *slog.Logger) (*workerProcess, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, util.NewPoolError("start", fmt.Errorf("locate executable: %w", err))
	}

	respR, respW, err := os.Pipe()
	if err != nil {
		return nil, util.NewPoolError("start", fmt.Errorf("create response pipe: %w", err))
	}

	level := slog.LevelWarn
	if logger.Enabled(ctx, slog.LevelDebug) {
		level = slog.LevelDebug
	}

	cmd := exec.Command(exe)
	cmd.Env = append(os.Environ(),
		worker.EnvMarker+"=1",
		worker.EnvLogLevel+"="+level.String())
	// Output produced outside a task's capture scope is not lost, but never mixes with stdout.
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	cmd.ExtraFiles = []*os.File{respW} // fd 3 in the child
	configureProcess(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		respR.Close()
		respW.Close()
		return nil, util.NewPoolError("start", err)
	}

	if err := cmd.Start(); err != nil {
		respR.Close()
		respW.Close()
		return nil, util.NewPoolError("start", err)
	}
	// The child owns its copy of the write end now.
	respW.Close()

	p := &workerProcess{
		id:     id,
		pid:    cmd.Process.Pid,
		cmd:    cmd,
		stdin:  stdin,
		resp:   respR,
		logger: logger.With("worker_id", id, "pid", cmd.Process.Pid),
		exited: make(chan struct{}),
	}

	if err := p.handshake(ctx, handshake); err != nil {
		p.kill()
		p.wait()
		return nil, err
	}

	p.logger.Debug("worker started")
	return p, nil
}

func (p *workerProcess) handshake(ctx context.Context, timeout time.Duration) error {
	ready := make(chan error, 1)
	go func() {
		var msg protocol.Message
		if err := protocol.ReadMessage(p.resp, &msg); err != nil {
			ready <- err
			return
		}
		if msg.Type != protocol.MsgTypeReady {
			ready <- fmt.Errorf("expected ready frame, got %q", msg.Type)
			return
		}
		ready <- nil
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-ready:
		if err != nil {
			return util.NewPoolError("handshake", fmt.Errorf("worker pid %d: %w (does main call procpool.ServeIfWorker?)", p.pid, err))
		}
		return nil
	case <-timer.C:
		return util.NewPoolError("handshake", fmt.Errorf("worker pid %d not ready after %s", p.pid, timeout))
	case <-ctx.Done():
		return ctx.Err()
	}
}

// call sends one request and blocks until its response arrives or the worker dies
func (p *workerProcess) call(req protocol.Request) (protocol.Response, error) {
	msg := protocol.Message{Type: protocol.MsgTypeRequest, Request: &req}
	if err := protocol.WriteMessage(p.stdin, msg); err != nil {
		return protocol.Response{}, util.NewPoolError("send", fmt.Errorf("worker pid %d: %w", p.pid, err))
	}

	var reply protocol.Message
	if err := protocol.ReadMessage(p.resp, &reply); err != nil {
		return protocol.Response{}, util.NewPoolError("receive", fmt.Errorf("worker pid %d: %w", p.pid, err))
	}

	if reply.Type != protocol.MsgTypeResponse || reply.Response == nil {
		return protocol.Response{}, util.NewPoolError("receive", fmt.Errorf("worker pid %d sent %q frame", p.pid, reply.Type))
	}
	if reply.Response.Seq != req.Seq {
		return protocol.Response{}, util.NewPoolError("receive",
			fmt.Errorf("worker pid %d answered request %d, expected %d", p.pid, reply.Response.Seq, req.Seq))
	}

	return *reply.Response, nil
}

// close asks the worker to exit by closing its request stream
func (p *workerProcess) close() error {
	return p.stdin.Close()
}

// kill forcibly stops the worker and everything it started
func (p *workerProcess) kill() {
	p.killMu.Lock()
	defer p.killMu.Unlock()

	select {
	case <-p.exited:
		return
	default:
	}

	p.killed = true
	if err := killProcess(p.cmd); err != nil {
		p.logger.Debug("kill failed", "error", err)
	}
}

// wait reaps the process; safe to call more than once
func (p *workerProcess) wait() error {
	p.waitOnce.Do(func() {
		err := p.cmd.Wait()
		close(p.exited)
		p.resp.Close()

		p.killMu.Lock()
		killed := p.killed
		p.killMu.Unlock()

		if err != nil && !killed {
			p.waitErr = fmt.Errorf("worker pid %d: %w", p.pid, err)
		}
		p.logger.Debug("worker exited", "killed", killed)
	})
	return p.waitErr
}

// waitOrKill waits for a closed worker to exit and kills it after the grace period
func (p *workerProcess) waitOrKill(grace time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- p.wait() }()

	select {
	case err := <-done:
		return err
	case <-time.After(grace):
		p.logger.Warn("worker did not exit after close, killing it")
		p.kill()
		return <-done
	}
}
