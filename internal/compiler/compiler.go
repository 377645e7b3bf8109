// Package compiler turns a parsed document into a runnable operation: it
// classifies code blocks, joins the runnable ones into a script, assembles
// the capability context the script runs against and relays script errors
// back to the user.
package compiler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/leapstack-labs/meldbuild/internal/index"
	"github.com/leapstack-labs/meldbuild/internal/markers"
	"github.com/leapstack-labs/meldbuild/internal/prompt"
	"github.com/leapstack-labs/meldbuild/internal/store"
	"github.com/leapstack-labs/meldbuild/internal/template"
	"github.com/leapstack-labs/meldbuild/pkg/core"
)

// Defaults for Options.
const (
	DefaultActivationTag   = "meld-build"
	DefaultToolbarLanguage = "meld-build-toolbar"
	DefaultNoticeTimeout   = 5 * time.Second
	DefaultErrorTimeout    = 20 * time.Second
)

// DefaultScriptLanguages are the fence languages treated as script source.
var DefaultScriptLanguages = []string{"starlark", "star", "python", "py"}

// Options control block classification and run behaviour.
type Options struct {
	ActivationTag   string
	ToolbarLanguage string
	ScriptLanguages []string
	Delimiters      markers.Delimiters
	NoticeTimeout   time.Duration
	ErrorTimeout    time.Duration
	// MaxSteps bounds interpreter steps per run. Zero means unlimited.
	MaxSteps uint64
	// LogFile, when set, is the run log file relative to the document folder.
	LogFile string
}

// DefaultOptions returns the built-in options.
func DefaultOptions() Options {
	return Options{
		ActivationTag:   DefaultActivationTag,
		ToolbarLanguage: DefaultToolbarLanguage,
		ScriptLanguages: DefaultScriptLanguages,
		Delimiters:      markers.DefaultDelimiters(),
		NoticeTimeout:   DefaultNoticeTimeout,
		ErrorTimeout:    DefaultErrorTimeout,
	}
}

func (o Options) orDefaults() Options {
	def := DefaultOptions()
	if o.ActivationTag == "" {
		o.ActivationTag = def.ActivationTag
	}
	if o.ToolbarLanguage == "" {
		o.ToolbarLanguage = def.ToolbarLanguage
	}
	if len(o.ScriptLanguages) == 0 {
		o.ScriptLanguages = def.ScriptLanguages
	}
	// Fence languages are lower-cased by the parser.
	o.ToolbarLanguage = strings.ToLower(o.ToolbarLanguage)
	languages := make([]string, len(o.ScriptLanguages))
	for i, l := range o.ScriptLanguages {
		languages[i] = strings.ToLower(l)
	}
	o.ScriptLanguages = languages
	if o.NoticeTimeout <= 0 {
		o.NoticeTimeout = def.NoticeTimeout
	}
	if o.ErrorTimeout <= 0 {
		o.ErrorTimeout = def.ErrorTimeout
	}
	return o
}

// Renderer renders template text against data for ctx.render.
type Renderer interface {
	Render(block, text string, data any) (string, error)
}

// PageIndex answers ctx.dv queries.
type PageIndex interface {
	Pages(folder string) ([]index.Page, error)
	Page(path string) (index.Page, error)
}

// Opener shows a file to the user for io.open and io.output(open=True).
type Opener interface {
	Open(ctx context.Context, path string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, path string) error

func (f OpenerFunc) Open(ctx context.Context, path string) error { return f(ctx, path) }

// Compiler builds RunOperations from documents in a store.
type Compiler struct {
	store    store.Store
	prompt   prompt.Service
	renderer Renderer
	index    PageIndex
	opener   Opener
	console  slog.Handler
	opts     Options
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithOptions sets classification and run options. Zero fields keep their
// defaults.
func WithOptions(o Options) Option {
	return func(c *Compiler) { c.opts = o.orDefaults() }
}

// WithRenderer sets the template renderer behind ctx.render.
func WithRenderer(r Renderer) Option {
	return func(c *Compiler) { c.renderer = r }
}

// WithIndex enables ctx.dv with the given index.
func WithIndex(ix PageIndex) Option {
	return func(c *Compiler) { c.index = ix }
}

// WithOpener sets the opener used by io.open.
func WithOpener(o Opener) Option {
	return func(c *Compiler) { c.opener = o }
}

// WithConsole sets the console handler of the run logger.
func WithConsole(h slog.Handler) Option {
	return func(c *Compiler) {
		if h != nil {
			c.console = h
		}
	}
}

// New creates a Compiler reading documents from st and talking to the user
// through ui.
func New(st store.Store, ui prompt.Service, opts ...Option) *Compiler {
	c := &Compiler{
		store:    st,
		prompt:   ui,
		console:  slog.DiscardHandler,
		renderer: template.NewEngine(),
		opts:     DefaultOptions(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.prompt == nil {
		c.prompt = prompt.NewHeadless(slog.New(c.console))
	}
	return c
}

// Options returns the effective options.
func (c *Compiler) Options() Options { return c.opts }

// Compile reads the document at path and compiles it. The document is read
// afresh on every call.
func (c *Compiler) Compile(ctx context.Context, path, runGroup string) (*RunOperation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text, err := c.store.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", path, err)
	}
	return c.CompileDocument(core.NewDocument(path, text), runGroup), nil
}
