// Package testutil holds test helpers shared across meldbuild packages.
package testutil

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// NewTestLogger returns a debug-level logger that writes through t.Log, so
// output shows only for failing tests or under -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	logger, _ := NewRecordingLogger(t)
	return logger
}

// NewRecordingLogger is NewTestLogger that also keeps every entry, for tests
// asserting on what a component logged.
func NewRecordingLogger(t testing.TB) (*slog.Logger, *Records) {
	t.Helper()
	r := &Records{}
	return slog.New(&recordHandler{t: t, records: r}), r
}

// Entry is one recorded log line.
type Entry struct {
	Level   slog.Level
	Message string
	Attrs   map[string]string
}

// Records collects entries; safe for concurrent loggers.
type Records struct {
	mu      sync.Mutex
	entries []Entry
}

// Entries returns a copy of the entries so far.
func (r *Records) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Has reports whether an entry with level and message was logged.
func (r *Records) Has(level slog.Level, message string) bool {
	for _, e := range r.Entries() {
		if e.Level == level && e.Message == message {
			return true
		}
	}
	return false
}

type recordHandler struct {
	t       testing.TB
	records *Records
	attrs   []slog.Attr
}

func (h *recordHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordHandler) Handle(_ context.Context, rec slog.Record) error {
	e := Entry{Level: rec.Level, Message: rec.Message, Attrs: map[string]string{}}
	var line strings.Builder
	fmt.Fprintf(&line, "%s %s", rec.Level, rec.Message)
	add := func(a slog.Attr) bool {
		e.Attrs[a.Key] = a.Value.String()
		fmt.Fprintf(&line, " %s=%s", a.Key, a.Value)
		return true
	}
	for _, a := range h.attrs {
		add(a)
	}
	rec.Attrs(add)

	h.records.mu.Lock()
	h.records.entries = append(h.records.entries, e)
	h.records.mu.Unlock()

	h.t.Helper()
	h.t.Log(line.String())
	return nil
}

func (h *recordHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

// WithGroup is a no-op; grouped keys are recorded flat.
func (h *recordHandler) WithGroup(string) slog.Handler { return h }
