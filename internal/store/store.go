// Package store provides file access for documents and scripts, confined to
// a root directory.
package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Store is the file access contract used by the compiler, the marker engine
// and the run logger. Paths are slash separated and relative to the store
// root.
type Store interface {
	Read(name string) (string, error)
	ReadBinary(name string) ([]byte, error)
	// Write creates or replaces name, creating parent directories.
	Write(name, text string) error
	// Append adds text to the end of name, creating it if needed.
	Append(name, text string) error
	Delete(name string) error
	// ResolveRelative joins rel onto the folder base. Parent references in
	// rel are neutralised so the result stays beneath base.
	ResolveRelative(base, rel string) string
	Exists(name string) (fs.FileInfo, bool)
	FS() fs.FS
}

// OSStore is a Store backed by an os.Root. Nothing outside the root
// directory can be reached, including through symlinks.
type OSStore struct {
	root *os.Root
	dir  string
}

var _ Store = (*OSStore)(nil)

// Open opens dir as the store root.
func Open(dir string) (*OSStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve store root: %w", err)
	}
	root, err := os.OpenRoot(abs)
	if err != nil {
		return nil, fmt.Errorf("open store root %s: %w", abs, err)
	}
	return &OSStore{root: root, dir: abs}, nil
}

// Close releases the root directory handle.
func (s *OSStore) Close() error {
	return s.root.Close()
}

// Dir returns the absolute root directory.
func (s *OSStore) Dir() string { return s.dir }

// Rel converts a host path into a store path. It fails when p lies outside
// the root.
func (s *OSStore) Rel(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(s.dir, abs)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is outside %s", p, s.dir)
	}
	return rel, nil
}

func (s *OSStore) Read(name string) (string, error) {
	b, err := s.ReadBinary(name)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *OSStore) ReadBinary(name string) ([]byte, error) {
	f, err := s.root.Open(clean(name))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *OSStore) Write(name, text string) error {
	return s.writeFile(name, text, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
}

func (s *OSStore) Append(name, text string) error {
	return s.writeFile(name, text, os.O_WRONLY|os.O_CREATE|os.O_APPEND)
}

func (s *OSStore) writeFile(name, text string, flag int) error {
	name = clean(name)
	if err := s.mkdirAll(path.Dir(name)); err != nil {
		return err
	}
	f, err := s.root.OpenFile(name, flag, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(f, text); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *OSStore) mkdirAll(dir string) error {
	if dir == "." || dir == "" {
		return nil
	}
	current := ""
	for _, part := range strings.Split(dir, "/") {
		current = path.Join(current, part)
		if err := s.root.Mkdir(current, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
			return err
		}
	}
	return nil
}

func (s *OSStore) Delete(name string) error {
	err := s.root.Remove(clean(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *OSStore) ResolveRelative(base, rel string) string {
	return ResolveRelative(base, rel)
}

func (s *OSStore) Exists(name string) (fs.FileInfo, bool) {
	info, err := s.root.Stat(clean(name))
	if err != nil || info.IsDir() {
		return nil, false
	}
	return info, true
}

func (s *OSStore) FS() fs.FS {
	return s.root.FS()
}

// ResolveRelative joins rel onto the folder base with ".." replaced by "_".
func ResolveRelative(base, rel string) string {
	rel = strings.ReplaceAll(filepath.ToSlash(rel), "..", "_")
	return clean(path.Join(filepath.ToSlash(base), rel))
}

// clean normalises a store path: slash separated, no leading slash.
func clean(name string) string {
	name = path.Clean("/" + filepath.ToSlash(name))
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return "."
	}
	return name
}
