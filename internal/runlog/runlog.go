// Package runlog provides the run logger: one slog.Logger that fans out to
// the console and, once a script selects one, to a Markdown log file.
package runlog

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"

	slogmulti "github.com/samber/slog-multi"
)

// Store is the subset of the file store the run log writes through.
type Store interface {
	Write(path, text string) error
	Append(path, text string) error
	Exists(path string) (fs.FileInfo, bool)
}

// Logger is a slog.Logger whose output also goes to the current log file.
type Logger struct {
	*slog.Logger
	file *FileHandler
}

// New creates a run logger writing to console and to the log file chosen
// later with SetFile.
func New(console slog.Handler, store Store) *Logger {
	file := NewFileHandler(store, slog.LevelInfo)
	return &Logger{
		Logger: slog.New(slogmulti.Fanout(console, file)),
		file:   file,
	}
}

// With returns a Logger with the given attributes that shares the log file.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), file: l.file}
}

// SetFile directs file output to path. An empty path turns file output off.
// An existing file is truncated when clear is set; a missing file is created.
func (l *Logger) SetFile(path string, clear bool) error {
	return l.file.SetFile(path, clear)
}

// File returns the current log file path, or "".
func (l *Logger) File() string {
	return l.file.Path()
}

// fileState is shared by a FileHandler and its derived handlers.
type fileState struct {
	mu    sync.Mutex
	store Store
	path  string
}

// FileHandler writes records as Markdown: single-line messages in
// backticks, multi-line messages fenced and records with attributes as a
// fenced JSON block. Attributes added through WithAttrs are not written.
type FileHandler struct {
	state *fileState
	level slog.Leveler
	group string
}

var _ slog.Handler = (*FileHandler)(nil)

// NewFileHandler creates a handler with no file selected.
func NewFileHandler(store Store, level slog.Leveler) *FileHandler {
	return &FileHandler{state: &fileState{store: store}, level: level}
}

// SetFile selects the log file. See Logger.SetFile.
func (h *FileHandler) SetFile(path string, clear bool) error {
	h.state.mu.Lock()
	defer h.state.mu.Unlock()

	if path == "" {
		h.state.path = ""
		return nil
	}
	if _, exists := h.state.store.Exists(path); !exists || clear {
		if err := h.state.store.Write(path, ""); err != nil {
			return fmt.Errorf("create log file %s: %w", path, err)
		}
	}
	h.state.path = path
	return nil
}

// Path returns the selected log file.
func (h *FileHandler) Path() string {
	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	return h.state.path
}

func (h *FileHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level() && h.Path() != ""
}

func (h *FileHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any)
	r.Attrs(func(a slog.Attr) bool {
		key := a.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		attrs[key] = a.Value.Resolve().Any()
		return true
	})

	entry := FormatEntry(strings.ToLower(r.Level.String()), r.Message, attrs)

	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	if h.state.path == "" {
		return nil
	}
	return h.state.store.Append(h.state.path, entry)
}

func (h *FileHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *FileHandler) WithGroup(name string) slog.Handler {
	clone := *h
	if clone.group != "" {
		name = clone.group + "." + name
	}
	clone.group = name
	return &clone
}

// FormatEntry renders one log entry, including its trailing newline. Entries
// with attributes become a fenced JSON object carrying level and msg keys.
func FormatEntry(level, message string, attrs map[string]any) string {
	prefix := ""
	if level != "" {
		prefix = " [" + level + "] "
	}

	if len(attrs) > 0 {
		payload := make(map[string]any, len(attrs)+2)
		for k, v := range attrs {
			payload[k] = jsonSafe(v)
		}
		if message != "" {
			payload["msg"] = message
		}
		if level != "" {
			payload["level"] = level
		}
		content, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			content, _ = json.Marshal(map[string]string{"level": level, "msg": message, "attrs": fmt.Sprint(attrs)})
		}
		return "```json\n" + string(content) + "\n```\n"
	}

	if strings.Contains(message, "\n") {
		return "```\n" + prefix + message + "\n```\n"
	}
	return "`" + strings.TrimSpace(prefix+message) + "`\n"
}

func jsonSafe(v any) any {
	switch val := v.(type) {
	case error:
		return val.Error()
	case fmt.Stringer:
		return val.String()
	default:
		return v
	}
}
