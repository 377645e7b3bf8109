package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.starlark.net/starlark"

	"github.com/leapstack-labs/meldbuild/internal/parser"
	"github.com/leapstack-labs/meldbuild/internal/runlog"
	starctx "github.com/leapstack-labs/meldbuild/internal/starlark"
	"github.com/leapstack-labs/meldbuild/pkg/core"
)

// SourceSpan maps a range of script lines back to the block they came from.
// Lines are 1-based and inclusive.
type SourceSpan struct {
	Block     string
	StartLine int
	EndLine   int
}

// RunOperation is a compiled document, ready to run once.
type RunOperation struct {
	// RunID identifies the run in logs and run history.
	RunID      string
	Document   core.Document
	RunGroup   string
	Source     string
	Spans      []SourceSpan
	Runnable   []core.NamedCodeBlock
	Consumable []core.NamedCodeBlock
	Data       *core.DataSetCollection
	// Toolbar holds the buttons of the document's toolbar blocks.
	Toolbar []Button

	c *Compiler
}

// IsRunnable reports whether b is script source for runGroup: a script
// language, the activation tag as first parameter, no skip parameter and,
// when runGroup is set, runGroup among the parameters.
func (c *Compiler) IsRunnable(info core.CodeBlockInfo, runGroup string) bool {
	if !slices.Contains(c.opts.ScriptLanguages, info.Language) {
		return false
	}
	if info.FirstParam() != c.opts.ActivationTag || info.HasParam(core.ParamSkip) {
		return false
	}
	return runGroup == "" || info.HasParam(runGroup)
}

// IsConsumable reports whether b is offered to scripts through ctx.blocks:
// everything that is not runnable and not a toolbar.
func (c *Compiler) IsConsumable(info core.CodeBlockInfo, runGroup string) bool {
	return !c.IsRunnable(info, runGroup) && info.Language != c.opts.ToolbarLanguage
}

// CompileDocument parses doc and partitions its code blocks. It never fails:
// a document without runnable blocks compiles to an operation that only
// tells the user so.
func (c *Compiler) CompileDocument(doc core.Document, runGroup string) *RunOperation {
	data, blocks := parser.New(doc.Name).Parse(doc.Text)

	op := &RunOperation{
		RunID:      uuid.NewString(),
		Document:   doc,
		RunGroup:   runGroup,
		Data:       data,
		Runnable:   []core.NamedCodeBlock{},
		Consumable: []core.NamedCodeBlock{},
		c:          c,
	}
	for _, b := range blocks {
		switch {
		case c.IsRunnable(b.Info, runGroup):
			op.Runnable = append(op.Runnable, b)
		case c.IsConsumable(b.Info, runGroup):
			op.Consumable = append(op.Consumable, b)
		default:
			op.Toolbar = append(op.Toolbar, ParseToolbar(b.Content)...)
		}
	}

	var src strings.Builder
	line := 1
	for i, b := range op.Runnable {
		if i > 0 {
			src.WriteByte('\n')
		}
		src.WriteString(b.Content)
		n := strings.Count(b.Content, "\n") + 1
		op.Spans = append(op.Spans, SourceSpan{Block: b.Name, StartLine: line, EndLine: line + n - 1})
		line += n
	}
	op.Source = src.String()
	return op
}

// HasCode reports whether the operation has any runnable source.
func (op *RunOperation) HasCode() bool { return len(op.Runnable) > 0 }

// BlockAt returns the span containing script line.
func (op *RunOperation) BlockAt(line int) (SourceSpan, bool) {
	for _, s := range op.Spans {
		if line >= s.StartLine && line <= s.EndLine {
			return s, true
		}
	}
	return SourceSpan{}, false
}

// Run executes the script. Script failures are shown to the user and
// returned as a *ScriptError; an operation without code only posts a notice.
func (op *RunOperation) Run(ctx context.Context) error {
	c := op.c
	if !op.HasCode() {
		c.prompt.Notice(noRunnableMessage(c.opts.ActivationTag, op.RunGroup), c.opts.NoticeTimeout)
		return nil
	}

	logger := runlog.New(c.console, c.store).With(
		slog.String("run_id", op.RunID),
		slog.String("document", op.Document.Path),
	)
	if c.opts.LogFile != "" {
		if err := logger.SetFile(c.store.ResolveRelative(op.Document.Dir(), c.opts.LogFile), false); err != nil {
			return fmt.Errorf("open run log: %w", err)
		}
	}

	rc := newRunContext(ctx, op, logger)
	runner := starctx.NewRunner(
		starctx.WithMaxSteps(c.opts.MaxSteps),
		starctx.WithPrint(func(msg string) { logger.Info(msg) }),
		starctx.WithRunnerLogger(logger.Logger),
	)

	logger.Debug("run started",
		slog.Int("blocks", len(op.Runnable)),
		slog.Int("datasets", op.Data.Len()),
		slog.String("group", op.RunGroup))

	err := runner.Run(ctx, op.Document.Path, op.Source, starlark.StringDict{"ctx": rc.value()})
	if err != nil {
		return op.relay(logger, err)
	}
	logger.Debug("run finished")
	return nil
}

func noRunnableMessage(tag, runGroup string) string {
	if runGroup != "" {
		return fmt.Sprintf("No script blocks were found marked with %q in run group %q", tag, runGroup)
	}
	return fmt.Sprintf("No script blocks were found marked with %q", tag)
}
