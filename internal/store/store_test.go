package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestJSONMapPersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "qa_cache.json")

	first := NewJSONMap(path, nil)
	require.NoError(t, first.Put("How many years of Go?", "5"))
	require.NoError(t, first.Put("Are you willing to relocate?", "Yes"))

	second := NewJSONMap(path, nil)
	value, ok := second.Get("How many years of Go?")
	require.True(t, ok)
	assert.Equal(t, "5", value)

	assert.Equal(t, []string{"Are you willing to relocate?", "How many years of Go?"}, second.Keys())
	assert.Equal(t, 2, second.Len())
}

func TestJSONMapSeesExternalWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt_cache.json")
	m := NewJSONMap(path, nil)

	require.NoError(t, WriteJSON(path, map[string]string{"k": "v"}))

	value, ok := m.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", value)
}

func TestJSONMapCorruptFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qa_cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	core, observed := observer.New(zapcore.WarnLevel)
	m := NewJSONMap(path, zap.New(core))

	_, ok := m.Get("anything")
	assert.False(t, ok)
	assert.Equal(t, 1, observed.Len())

	require.NoError(t, m.Put("q", "a"))
	value, ok := m.Get("q")
	require.True(t, ok)
	assert.Equal(t, "a", value)
}

func TestReadJSONMissingFile(t *testing.T) {
	var v struct{ Count int }
	require.NoError(t, ReadJSON(filepath.Join(t.TempDir(), "missing.json"), &v))
	assert.Zero(t, v.Count)
}

func TestWriteJSONLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "usage.json")

	require.NoError(t, WriteJSON(path, map[string]int{"count": 1}))
	require.NoError(t, WriteJSON(path, map[string]int{"count": 2}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "usage.json", entries[0].Name())
}
