// Package store keeps small JSON documents on disk. Every read goes to the
// file and every write replaces it atomically, so nothing is held in memory
// between operations and a crash never leaves a half-written document.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// ReadJSON decodes the file at path into v. A missing or empty file leaves v
// untouched and returns nil.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// WriteJSON replaces the file at path with the indented JSON encoding of v.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return WriteFile(path, append(data, '\n'))
}

// WriteFile replaces the file at path with data via a temp file and rename,
// creating missing parent directories.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// JSONMap is a string to string map persisted as a JSON object.
type JSONMap struct {
	path   string
	logger *zap.Logger

	mu sync.Mutex
}

func NewJSONMap(path string, logger *zap.Logger) *JSONMap {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JSONMap{path: path, logger: logger}
}

func (m *JSONMap) Path() string {
	return m.path
}

// Get returns the value stored under key.
func (m *JSONMap) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, ok := m.load()[key]
	return value, ok
}

// Put stores value under key, overwriting any previous value.
func (m *JSONMap) Put(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.load()
	entries[key] = value

	return WriteJSON(m.path, entries)
}

// All returns a snapshot of every entry.
func (m *JSONMap) All() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.load()
}

// Keys returns the stored keys in sorted order.
func (m *JSONMap) Keys() []string {
	entries := m.All()

	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys
}

func (m *JSONMap) Len() int {
	return len(m.All())
}

// load treats a corrupt file as empty; the next Put rewrites it.
func (m *JSONMap) load() map[string]string {
	entries := make(map[string]string)
	if err := ReadJSON(m.path, &entries); err != nil {
		m.logger.Warn("cache file is unreadable, starting empty",
			zap.String("path", m.path),
			zap.Error(err),
		)
		return make(map[string]string)
	}
	return entries
}
