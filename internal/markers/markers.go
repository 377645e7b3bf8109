// Package markers reads and rewrites named delimited regions of a document.
//
// A marker occurrence has the form
//
//	<startPrefix><name><startSuffix><value><endPrefix><name><endSuffix>
//
// which with the default delimiters is %%name=%%value%%=name%%. Values may
// span lines. Nested markers with the same name are not supported.
package markers

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/meldbuild/pkg/core"
)

// Default delimiters.
const (
	DefaultStartPrefix = "%%"
	DefaultStartSuffix = "=%%"
	DefaultEndPrefix   = "%%="
	DefaultEndSuffix   = "%%"
)

// ErrTargetMissing is returned by Fetch and Apply when the target file does
// not exist.
var ErrTargetMissing = errors.New("target file path was not found")

// TextStore is the subset of the file store the engine needs.
type TextStore interface {
	Read(path string) (string, error)
	Write(path, text string) error
	Exists(path string) (fs.FileInfo, bool)
}

// Delimiters are the four literal strings framing a marker.
type Delimiters struct {
	StartPrefix string `koanf:"start_prefix"`
	StartSuffix string `koanf:"start_suffix"`
	EndPrefix   string `koanf:"end_prefix"`
	EndSuffix   string `koanf:"end_suffix"`
}

// DefaultDelimiters returns the %%name=%% … %%=name%% delimiters.
func DefaultDelimiters() Delimiters {
	return Delimiters{
		StartPrefix: DefaultStartPrefix,
		StartSuffix: DefaultStartSuffix,
		EndPrefix:   DefaultEndPrefix,
		EndSuffix:   DefaultEndSuffix,
	}
}

// orDefaults fills empty delimiters from the defaults.
func (d Delimiters) orDefaults() Delimiters {
	def := DefaultDelimiters()
	if d.StartPrefix == "" {
		d.StartPrefix = def.StartPrefix
	}
	if d.StartSuffix == "" {
		d.StartSuffix = def.StartSuffix
	}
	if d.EndPrefix == "" {
		d.EndPrefix = def.EndPrefix
	}
	if d.EndSuffix == "" {
		d.EndSuffix = def.EndSuffix
	}
	return d
}

type staged struct {
	name  string
	value *string
}

// Engine holds the marker state of one run: delimiters, target file and the
// staged values. It is not safe for concurrent use.
type Engine struct {
	store    TextStore
	logger   *slog.Logger
	document string
	target   string
	delims   Delimiters
	pending  []staged
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used to report applied changes.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithDelimiters overrides the default delimiters. Empty fields keep their
// defaults.
func WithDelimiters(d Delimiters) Option {
	return func(e *Engine) {
		e.delims = d.orDefaults()
	}
}

// New creates an Engine targeting the running document at documentPath.
func New(store TextStore, documentPath string, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		logger:   slog.New(slog.DiscardHandler),
		document: documentPath,
		target:   documentPath,
		delims:   DefaultDelimiters(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DefineMarkStart sets the start delimiter.
func (e *Engine) DefineMarkStart(prefix, suffix string) {
	e.delims.StartPrefix = prefix
	e.delims.StartSuffix = suffix
}

// DefineMarkEnd sets the end delimiter.
func (e *Engine) DefineMarkEnd(prefix, suffix string) {
	e.delims.EndPrefix = prefix
	e.delims.EndSuffix = suffix
}

// TargetFile retargets the engine. An empty path selects the running document.
func (e *Engine) TargetFile(path string) {
	if path == "" {
		path = e.document
	}
	e.target = path
}

// Target returns the current target path.
func (e *Engine) Target() string { return e.target }

// Delimiters returns the current delimiters.
func (e *Engine) Delimiters() Delimiters { return e.delims }

// Clear drops every staged value.
func (e *Engine) Clear() {
	e.pending = nil
}

// Set stages value for name. A nil value clears the marker on Apply.
// Staging the same name again replaces the value but keeps its position in
// the staging order.
func (e *Engine) Set(name string, value *string) {
	for i := range e.pending {
		if e.pending[i].name == name {
			e.pending[i].value = value
			return
		}
	}
	e.pending = append(e.pending, staged{name: name, value: value})
}

// Fetch returns the markers of the target file in document order.
func (e *Engine) Fetch(ctx context.Context) ([]core.MarkerValue, error) {
	text, err := e.readTarget(ctx)
	if err != nil {
		return nil, err
	}
	occs := scan(text, e.delims)
	values := make([]core.MarkerValue, len(occs))
	for i, o := range occs {
		values[i] = core.MarkerValue{Pos: o.pos, Name: o.name, Value: text[o.valueStart:o.valueEnd]}
	}
	return values, nil
}

// Apply rewrites every occurrence of each staged name in the target file and
// returns the changes in staging order, then document order. With
// clearUnknown, markers that have no staged value are blanked for this call.
// Staged names that do not occur in the document are ignored. The file is
// written only when its text changed.
func (e *Engine) Apply(ctx context.Context, clearUnknown bool) ([]core.MarkerChange, error) {
	text, err := e.readTarget(ctx)
	if err != nil {
		return nil, err
	}
	occs := scan(text, e.delims)

	values := make(map[string]string, len(e.pending))
	order := make([]string, 0, len(e.pending))
	for _, s := range e.pending {
		v := ""
		if s.value != nil {
			v = *s.value
		}
		values[s.name] = v
		order = append(order, s.name)
	}
	if clearUnknown {
		for _, o := range occs {
			if _, ok := values[o.name]; !ok {
				values[o.name] = ""
				order = append(order, o.name)
			}
		}
	}

	var changes []core.MarkerChange
	for _, name := range order {
		for _, o := range occs {
			if o.name != name {
				continue
			}
			changes = append(changes, core.MarkerChange{
				Pos:  o.pos,
				Name: name,
				Old:  text[o.valueStart:o.valueEnd],
				New:  values[name],
			})
		}
	}

	var b strings.Builder
	last := 0
	for _, o := range occs {
		v, ok := values[o.name]
		if !ok {
			continue
		}
		b.WriteString(text[last:o.valueStart])
		b.WriteString(v)
		last = o.valueEnd
	}
	b.WriteString(text[last:])

	if updated := b.String(); updated != text {
		if err := e.store.Write(e.target, updated); err != nil {
			return nil, fmt.Errorf("write markers to %s: %w", e.target, err)
		}
	}

	e.logger.DebugContext(ctx, "markers applied",
		slog.String("target", e.target),
		slog.Int("changes", len(changes)))
	return changes, nil
}

func (e *Engine) readTarget(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, ok := e.store.Exists(e.target); !ok {
		return "", fmt.Errorf("%w. '%s'", ErrTargetMissing, e.target)
	}
	text, err := e.store.Read(e.target)
	if err != nil {
		return "", fmt.Errorf("read marker target %s: %w", e.target, err)
	}
	return text, nil
}
