package compiler

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/meldbuild/internal/runlog"
	starctx "github.com/leapstack-labs/meldbuild/internal/starlark"
)

// ErrScript matches every error raised by a running script.
var ErrScript = errors.New("script error")

// ErrAssertion is the cause of a failed ctx.asserts check.
var ErrAssertion = errors.New("assertion failed")

const (
	lineNumberWidth = 4
	// pointerPadding is the width of a listing prefix: the number and ": ".
	pointerPadding = lineNumberWidth + 2
	lookAround     = 2
	// wrapperOffset is the number of lines the runner adds before the
	// script source. The source runs verbatim.
	wrapperOffset = 0
)

// ScriptError is a script failure with its position in the joined source.
// Line and Column are zero when the position is unknown.
type ScriptError struct {
	Err     error
	Message string
	Line    int
	Column  int
	// Block is the name of the code block containing Line.
	Block string
	// Excerpt is the numbered listing around Line with a caret under Column.
	Excerpt string
}

func (e *ScriptError) Error() string {
	if e.Line == 0 {
		return e.Message
	}
	if e.Block != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.Block, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("line %d:%d: %s", e.Line, e.Column, e.Message)
}

func (e *ScriptError) Unwrap() []error { return []error{ErrScript, e.Err} }

// relay reports err to the logger and the user and returns it as a
// *ScriptError.
func (op *RunOperation) relay(logger *runlog.Logger, err error) error {
	se := &ScriptError{Err: err, Message: starctx.Message(err)}
	listing := numberedListing(op.Source)

	if loc, ok := starctx.Locate(err, op.Document.Path); ok {
		se.Line = loc.Line - wrapperOffset
		se.Column = max(loc.Column, 1)
		if span, ok := op.BlockAt(se.Line); ok {
			se.Block = span.Block
		}
		se.Excerpt = excerpt(listing, se.Line, se.Column, se.Message)
	}

	attrs := []any{
		slog.Any("error_listing", append([]string{"=== RUNTIME ERROR ==="}, splitNonEmpty(se.Excerpt)...)),
		slog.Any("full_listing", append([]string{"=== FULL LISTING ==="}, listing...)),
	}
	if se.Block != "" {
		attrs = append(attrs, slog.String("block", se.Block))
	}
	if bt := starctx.Backtrace(err); bt != "" {
		attrs = append(attrs, slog.String("backtrace", bt))
	}
	logger.Error(se.Message, attrs...)

	notice := "RUNTIME ERROR\n"
	if se.Excerpt != "" {
		notice += se.Excerpt + "\nSee the log for more details"
	} else {
		notice += se.Message
	}
	op.c.prompt.Notice(notice, op.c.opts.ErrorTimeout)
	return se
}

// numberedListing prefixes every source line with its right-aligned number.
func numberedListing(src string) []string {
	lines := strings.Split(src, "\n")
	for i, l := range lines {
		lines[i] = fmt.Sprintf("%*d: %s", lineNumberWidth, i+1, l)
	}
	return lines
}

// excerpt returns up to two listing lines either side of line with a caret
// line pointing at column inserted after it.
func excerpt(listing []string, line, column int, message string) string {
	idx := line - 1
	if idx < 0 || idx >= len(listing) {
		return ""
	}
	from := max(0, idx-lookAround)
	to := min(len(listing), idx+1+lookAround)

	out := make([]string, 0, to-from+1)
	out = append(out, listing[from:idx+1]...)
	out = append(out, strings.Repeat(" ", pointerPadding+column-1)+"^--- "+message)
	out = append(out, listing[idx+1:to]...)
	return strings.Join(out, "\n")
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
