package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"
)

// maxCapture bounds how much of each output stream is kept in memory.
const maxCapture = 64 << 10

// Command is one external process invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string
}

// Result is what a finished process reported.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Executor abstracts process execution for testability.
// Invoke returns a nil error for any process that ran to completion,
// whatever its exit code. A *StartError means the process never started.
type Executor interface {
	Invoke(ctx context.Context, cmd Command) (Result, error)
}

// StartError reports a binary that could not be located or executed.
type StartError struct {
	Name string
	Err  error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("start %s: %v", e.Name, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

type commandExecutor struct{}

func (commandExecutor) Invoke(ctx context.Context, c Command) (Result, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...) //nolint:gosec
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	stdout := &tailWriter{max: maxCapture}
	stderr := &tailWriter{max: maxCapture}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = 5 * time.Second

	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1}, &StartError{Name: c.Name, Err: err}
	}
	waitErr := cmd.Wait()

	res := Result{
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("wait %s: %w", c.Name, ctxErr)
	}
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return res, fmt.Errorf("wait %s: %w", c.Name, waitErr)
	}
	return res, nil
}

// tailWriter keeps the last max bytes written to it.
type tailWriter struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (w *tailWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	if over := len(w.buf) - w.max; over > 0 {
		w.buf = append(w.buf[:0], w.buf[over:]...)
	}
	return len(p), nil
}

func (w *tailWriter) Bytes() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]byte(nil), w.buf...)
}
