package store

import (
	"io/fs"
	"maps"
	"sync"
	"testing/fstest"
)

// MemStore is an in-memory Store, used for tests and for rendering into a
// scratch area.
type MemStore struct {
	mu    sync.Mutex
	files map[string]string
}

var _ Store = (*MemStore)(nil)

// NewMem creates a MemStore seeded with files. Keys are store paths.
func NewMem(files map[string]string) *MemStore {
	m := &MemStore{files: make(map[string]string, len(files))}
	for name, text := range files {
		m.files[clean(name)] = text
	}
	return m
}

// Files returns a snapshot of the stored files.
func (m *MemStore) Files() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.files)
}

func (m *MemStore) Read(name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	text, ok := m.files[clean(name)]
	if !ok {
		return "", &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
	}
	return text, nil
}

func (m *MemStore) ReadBinary(name string) ([]byte, error) {
	text, err := m.Read(name)
	if err != nil {
		return nil, err
	}
	return []byte(text), nil
}

func (m *MemStore) Write(name, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[clean(name)] = text
	return nil
}

func (m *MemStore) Append(name, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[clean(name)] += text
	return nil
}

func (m *MemStore) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, clean(name))
	return nil
}

func (m *MemStore) ResolveRelative(base, rel string) string {
	return ResolveRelative(base, rel)
}

func (m *MemStore) Exists(name string) (fs.FileInfo, bool) {
	info, err := fs.Stat(m.FS(), clean(name))
	if err != nil || info.IsDir() {
		return nil, false
	}
	return info, true
}

// FS returns a snapshot of the files as an fs.FS.
func (m *MemStore) FS() fs.FS {
	m.mu.Lock()
	defer m.mu.Unlock()
	mapFS := make(fstest.MapFS, len(m.files))
	for name, text := range m.files {
		mapFS[name] = &fstest.MapFile{Data: []byte(text), Mode: 0o644}
	}
	return mapFS
}
