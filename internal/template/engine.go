package template

import (
	"fmt"
	"log/slog"

	"go.starlark.net/starlark"

	starctx "github.com/leapstack-labs/meldbuild/internal/starlark"
)

// Engine renders template text against data. It is the template collaborator
// used by scripts through ctx.render.
type Engine struct {
	helpers starlark.StringDict
	logger  *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineLogger sets the logger.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithExtraHelpers registers additional helpers next to the built-in ones.
func WithExtraHelpers(helpers starlark.StringDict) EngineOption {
	return func(e *Engine) {
		for k, v := range helpers {
			e.helpers[k] = v
		}
	}
}

// NewEngine creates an Engine with the built-in helpers.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		helpers: Helpers(),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render renders the text of the named block with data. Data may be a
// Starlark value or any Go value accepted by starlark.GoToStarlark. Errors
// are *Error values positioned in block.
func (e *Engine) Render(block, text string, data any) (string, error) {
	value, err := starctx.GoToStarlark(data)
	if err != nil {
		return "", fmt.Errorf("template data: %w", err)
	}

	ctx := starctx.NewExecutionContext(value)
	if err := ctx.AddHelpers(e.helpers); err != nil {
		return "", err
	}

	out, err := RenderString(text, block, ctx)
	if err != nil {
		e.logger.Debug("template render failed", slog.String("block", block), slog.String("error", err.Error()))
		return "", err
	}
	return out, nil
}
