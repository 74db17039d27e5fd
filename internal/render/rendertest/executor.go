// Package rendertest provides a scripted render.Executor for tests that must
// not spawn a real conversion engine.
package rendertest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"deckstamp/internal/render"
)

// NoOutput as OutputName makes the fake exit cleanly without writing a PDF.
const NoOutput = "-"

// Executor records invocations and imitates the engine. With zero values it
// writes "<input-stem>.pdf" containing PDF into the --outdir directory and
// exits 0.
type Executor struct {
	ExitCode int
	Stderr   string
	// StartErr, when set, is returned wrapped in *render.StartError.
	StartErr error
	// Block makes Invoke wait for ctx to end, like a hung engine.
	Block bool
	// OutputName overrides the produced file name; NoOutput writes nothing.
	OutputName string
	PDF        []byte
	// OnInvoke runs before any output is written, e.g. to read the input.
	OnInvoke func(cmd render.Command)

	mu    sync.Mutex
	calls []render.Command
}

// Invoke implements render.Executor.
func (e *Executor) Invoke(ctx context.Context, cmd render.Command) (render.Result, error) {
	e.mu.Lock()
	e.calls = append(e.calls, cmd)
	e.mu.Unlock()

	if e.StartErr != nil {
		return render.Result{ExitCode: -1}, &render.StartError{Name: cmd.Name, Err: e.StartErr}
	}
	if e.OnInvoke != nil {
		e.OnInvoke(cmd)
	}
	if e.Block {
		<-ctx.Done()
		return render.Result{ExitCode: -1, Stderr: []byte("killed")}, ctx.Err()
	}
	if e.ExitCode != 0 {
		return render.Result{ExitCode: e.ExitCode, Stderr: []byte(e.Stderr)}, nil
	}

	if e.OutputName != NoOutput {
		name := e.OutputName
		if name == "" {
			in := filepath.Base(Input(cmd.Args))
			name = strings.TrimSuffix(in, filepath.Ext(in)) + ".pdf"
		}
		pdf := e.PDF
		if pdf == nil {
			pdf = []byte("%PDF-1.7\n%fake\n")
		}
		if err := os.WriteFile(filepath.Join(OutDir(cmd.Args), name), pdf, 0o600); err != nil {
			return render.Result{ExitCode: 1, Stderr: []byte(err.Error())}, nil
		}
	}
	return render.Result{Stderr: []byte(e.Stderr)}, nil
}

// Calls returns a copy of every recorded command.
func (e *Executor) Calls() []render.Command {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]render.Command(nil), e.calls...)
}

// OutDir extracts the --outdir value from engine args.
func OutDir(args []string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "--outdir" {
			return args[i+1]
		}
	}
	return ""
}

// Input is the document argument, always last.
func Input(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[len(args)-1]
}
