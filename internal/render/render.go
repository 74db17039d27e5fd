// Package render converts documents to PDF with a headless LibreOffice
// process and locates the file it produced.
package render

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// DefaultStderrTail is how many trailing bytes of stderr a failure carries.
const DefaultStderrTail = 2000

var (
	// ErrToolMissing means the engine binary could not be started at all.
	ErrToolMissing = errors.New("render tool missing")
	// ErrFailed means the engine ran but failed, or was stopped by the timeout.
	ErrFailed = errors.New("render failed")
	// ErrNoOutput means the engine exited zero without leaving a PDF behind.
	ErrNoOutput = errors.New("render produced no output")
)

// Error is the failure returned by Render. Kind is one of ErrToolMissing,
// ErrFailed or ErrNoOutput and matches through errors.Is.
type Error struct {
	Kind     error
	ExitCode int
	// Stderr is the tail of the engine's error stream.
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.Error())
	if e.ExitCode != 0 {
		fmt.Fprintf(&sb, " (exit %d)", e.ExitCode)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	if e.Stderr != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Stderr)
	}
	return sb.String()
}

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

// Config controls engine invocation.
type Config struct {
	Binary  string
	Timeout time.Duration
	// MaxConcurrent bounds simultaneous engine processes; <= 0 means 1.
	MaxConcurrent int
	StderrTail    int
}

// Option configures the Renderer.
type Option func(*Renderer)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(r *Renderer) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithLogger sets the logger used for engine diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.logger = l
		}
	}
}

// Renderer wraps LibreOffice conversions. It is safe for concurrent use as
// long as each call gets its own output directory.
type Renderer struct {
	cfg    Config
	exec   Executor
	sem    *semaphore.Weighted
	logger *zap.Logger
}

// New constructs a Renderer.
func New(cfg Config, opts ...Option) (*Renderer, error) {
	cfg.Binary = strings.TrimSpace(cfg.Binary)
	if cfg.Binary == "" {
		return nil, errors.New("render binary required")
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.StderrTail <= 0 {
		cfg.StderrTail = DefaultStderrTail
	}
	r := &Renderer{
		cfg:    cfg,
		exec:   commandExecutor{},
		sem:    semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Binary is the configured engine executable.
func (r *Renderer) Binary() string {
	return r.cfg.Binary
}

// Args builds the engine command line. The LibreOffice user profile lives
// inside outputDir so concurrent conversions never share one.
func (r *Renderer) Args(archivePath, outputDir string) []string {
	profile := (&url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Join(outputDir, ".profile"))}).String()
	return []string{
		"--headless",
		"--nologo",
		"--nofirststartwizard",
		"--norestore",
		"-env:UserInstallation=" + profile,
		"--convert-to", "pdf",
		"--outdir", outputDir,
		archivePath,
	}
}

// Render converts archivePath into a PDF inside outputDir and returns the
// PDF's path. outputDir must exist and should be private to this call; the
// Renderer neither creates nor cleans it.
func (r *Renderer) Render(ctx context.Context, archivePath, outputDir string) (string, error) {
	if archivePath == "" || outputDir == "" {
		return "", errors.New("archive path and output directory required")
	}
	absIn, err := filepath.Abs(archivePath)
	if err != nil {
		return "", fmt.Errorf("resolve archive path: %w", err)
	}
	absOut, err := filepath.Abs(outputDir)
	if err != nil {
		return "", fmt.Errorf("resolve output directory: %w", err)
	}

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return "", &Error{Kind: ErrFailed, Err: fmt.Errorf("wait for render slot: %w", err)}
	}
	defer r.sem.Release(1)

	runCtx := ctx
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := r.exec.Invoke(runCtx, Command{
		Name: r.cfg.Binary,
		Args: r.Args(absIn, absOut),
		Dir:  absOut,
	})
	if err != nil {
		var startErr *StartError
		if errors.As(err, &startErr) {
			return "", &Error{Kind: ErrToolMissing, Err: err}
		}
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("timed out after %s: %w", r.cfg.Timeout, err)
		}
		return "", &Error{Kind: ErrFailed, ExitCode: res.ExitCode, Stderr: tail(res.Stderr, r.cfg.StderrTail), Err: err}
	}
	if res.ExitCode != 0 {
		return "", &Error{Kind: ErrFailed, ExitCode: res.ExitCode, Stderr: tail(res.Stderr, r.cfg.StderrTail)}
	}

	out, err := locateOutput(absIn, absOut)
	if err != nil {
		return "", err
	}
	r.logger.Debug("render_completed",
		zap.String("output", filepath.Base(out)),
		zap.Duration("duration", time.Since(start)),
	)
	return out, nil
}

// locateOutput prefers <input-stem>.pdf and falls back to the first PDF in
// dir by name. A zero exit with no PDF at all is ErrNoOutput.
func locateOutput(archivePath, dir string) (string, error) {
	base := filepath.Base(archivePath)
	expected := filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+".pdf")
	if info, err := os.Stat(expected); err == nil && info.Mode().IsRegular() {
		return expected, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", &Error{Kind: ErrNoOutput, Err: fmt.Errorf("list output directory: %w", err)}
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			return filepath.Join(dir, entry.Name()), nil
		}
	}
	return "", &Error{Kind: ErrNoOutput}
}

// tail returns at most n trailing bytes of b, trimmed to valid UTF-8.
func tail(b []byte, n int) string {
	if len(b) > n {
		b = b[len(b)-n:]
		for len(b) > 0 && !utf8.RuneStart(b[0]) {
			b = b[1:]
		}
	}
	return strings.TrimSpace(string(b))
}
