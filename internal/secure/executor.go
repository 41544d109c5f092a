package secure

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RunResult holds the captured output of a blocking invocation.
type RunResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Runner starts external programs. Executor is the os/exec implementation.
type Runner interface {
	// Run executes program to completion with no stdin and captures its output.
	// A returned error means the program could not be started; a nonzero exit
	// is reported through RunResult.ExitCode.
	Run(ctx context.Context, program string, args ...string) (RunResult, error)

	// Start launches program and copies stdout and stderr into out as chunks
	// arrive. It returns as soon as the process is running.
	Start(ctx context.Context, program string, args []string, out io.Writer) (*Process, error)
}

// Executor runs external programs via os/exec.
type Executor struct {
	logger *zap.Logger
}

// NewExecutor creates an executor that logs through logger.
func NewExecutor(logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{logger: logger}
}

// Run executes program and waits for it. No timeout is applied; only ctx
// cancellation stops it early.
func (e *Executor) Run(ctx context.Context, program string, args ...string) (RunResult, error) {
	startTime := time.Now()

	e.logger.Debug("running program",
		zap.String("program", program),
		zap.Strings("args", args),
	)

	cmd := exec.CommandContext(ctx, program, args...)
	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	result := RunResult{
		Stdout:   stdoutBuf.Bytes(),
		Stderr:   stderrBuf.Bytes(),
		Duration: time.Since(startTime),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			e.logger.Warn("failed to start program",
				zap.String("program", program),
				zap.Strings("args", args),
				zap.Error(err),
			)
			return result, err
		}
		result.ExitCode = exitErr.ExitCode()
	}

	e.logger.Debug("program finished",
		zap.String("program", program),
		zap.Strings("args", args),
		zap.Int("exit_code", result.ExitCode),
		zap.Int("stdout_size", len(result.Stdout)),
		zap.Int("stderr_size", len(result.Stderr)),
		zap.Duration("duration", result.Duration),
	)

	return result, nil
}

// Start launches program in the background. Both output pipes are drained
// into out by separate goroutines, and the child is always reaped once they
// finish, whether or not anybody calls Wait on the returned Process.
//
// ctx only governs the start; the running process is not tied to it.
func (e *Executor) Start(ctx context.Context, program string, args []string, out io.Writer) (*Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command(program, args...)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		e.logger.Warn("failed to start program",
			zap.String("program", program),
			zap.Strings("args", args),
			zap.Error(err),
		)
		return nil, err
	}

	proc := &Process{
		cmd:  cmd,
		done: make(chan struct{}),
	}

	e.logger.Info("program started",
		zap.String("program", program),
		zap.Strings("args", args),
		zap.Int("pid", cmd.Process.Pid),
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		copyChunks(out, stdoutPipe)
	}()
	go func() {
		defer wg.Done()
		copyChunks(out, stderrPipe)
	}()

	go func() {
		// Pipes must be drained before Wait closes them.
		wg.Wait()
		proc.finish(cmd.Wait())

		e.logger.Info("program exited",
			zap.String("program", program),
			zap.Strings("args", args),
			zap.Int("exit_code", proc.ExitCode()),
		)
	}()

	return proc, nil
}

// copyChunks forwards each read as its own write so output shows up as soon
// as the child flushes it.
func copyChunks(dst io.Writer, src io.Reader) {
	buf := make([]byte, 4096)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			_, _ = dst.Write(chunk)
		}
		if err != nil {
			return
		}
	}
}

var _ Runner = (*Executor)(nil)

// Process is a handle on a background invocation such as keygen.
// Holding it is optional: the process runs and is reaped without it.
type Process struct {
	cmd  *exec.Cmd
	done chan struct{}

	mu       sync.Mutex
	err      error
	exitCode int
}

func (p *Process) finish(err error) {
	p.mu.Lock()
	p.err = err
	p.exitCode = 0
	if err != nil {
		p.exitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			p.exitCode = exitErr.ExitCode()
		}
	}
	p.mu.Unlock()
	close(p.done)
}

// Pid returns the operating system process id.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Done is closed once the process has exited and its output was forwarded.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the process exits and returns its exit error, if any.
func (p *Process) Wait() error {
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// ExitCode returns the exit code, or -1 while running or when it was killed.
func (p *Process) ExitCode() int {
	select {
	case <-p.done:
	default:
		return -1
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode
}

// Kill terminates the process. Nothing in the command flow calls it.
func (p *Process) Kill() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	return p.cmd.Process.Kill()
}
