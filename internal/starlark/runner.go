package starlark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// ErrLoadDisabled is returned for any load statement.
var ErrLoadDisabled = errors.New("load is not available in scripts")

// ErrPanic wraps a Go panic raised by a host builtin during a run.
var ErrPanic = errors.New("host call panicked")

const threadContextKey = "meldbuild.context"

// scriptOptions enable the statement forms scripts rely on at top level.
var scriptOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

// Runner executes script source in a fresh interpreter per call. The only
// names a script can see are the predeclared ones it is given; there is no
// implicit filesystem, network or host access.
type Runner struct {
	// MaxSteps bounds the number of interpreter steps. Zero means unlimited.
	MaxSteps uint64
	// Print receives the output of print(). Nil discards it.
	Print func(msg string)

	logger *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithMaxSteps sets the execution step budget.
func WithMaxSteps(n uint64) RunnerOption {
	return func(r *Runner) { r.MaxSteps = n }
}

// WithPrint routes print() output.
func WithPrint(fn func(msg string)) RunnerOption {
	return func(r *Runner) { r.Print = fn }
}

// WithRunnerLogger sets the runner's logger.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes src as filename with predeclared as its only globals.
// Cancelling ctx stops the script at the next interpreter step.
func (r *Runner) Run(ctx context.Context, filename, src string, predeclared starlark.StringDict) (err error) {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run cancelled: %w", err)
	}

	thread := &starlark.Thread{
		Name: filename,
		Print: func(_ *starlark.Thread, msg string) {
			if r.Print != nil {
				r.Print(msg)
			}
		},
		Load: func(_ *starlark.Thread, module string) (starlark.StringDict, error) {
			return nil, fmt.Errorf("load(%q): %w", module, ErrLoadDisabled)
		},
	}
	thread.SetLocal(threadContextKey, ctx)
	if r.MaxSteps > 0 {
		thread.SetMaxExecutionSteps(r.MaxSteps)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel(context.Cause(ctx).Error())
		case <-done:
		}
	}()

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("script host call panicked", slog.Any("panic", p))
			err = fmt.Errorf("%w: %v", ErrPanic, p)
		}
	}()

	r.logger.Debug("running script", slog.String("file", filename), slog.Int("bytes", len(src)))
	_, err = starlark.ExecFileOptions(scriptOptions, thread, filename, src, predeclared)
	return err
}

// ThreadContext returns the context.Context of the run executing on thread,
// or context.Background when there is none.
func ThreadContext(thread *starlark.Thread) context.Context {
	if thread != nil {
		if ctx, ok := thread.Local(threadContextKey).(context.Context); ok {
			return ctx
		}
	}
	return context.Background()
}
