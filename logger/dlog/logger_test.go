package dlog

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"":      slog.LevelInfo,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestPrettyHandler(t *testing.T) {
	t.Run("info goes to both sides", func(t *testing.T) {
		var stdout, file bytes.Buffer
		h := New(&slog.HandlerOptions{Level: slog.LevelDebug}, WithDestinationWriter(DualWriter{Stdout: &stdout, File: &file}))
		slog.New(h).Info("hello", "guild", "42")

		assert.Contains(t, stdout.String(), "INFO:")
		assert.Contains(t, stdout.String(), "hello")
		assert.Contains(t, stdout.String(), `"guild": "42"`)
		assert.Equal(t, stdout.String(), file.String())
	})

	t.Run("debug skips the console", func(t *testing.T) {
		var stdout, file bytes.Buffer
		h := New(&slog.HandlerOptions{Level: slog.LevelDebug}, WithDestinationWriter(DualWriter{Stdout: &stdout, File: &file}))
		slog.New(h).Debug("quiet")

		assert.Empty(t, stdout.String())
		assert.Contains(t, file.String(), "quiet")
	})

	t.Run("level filter", func(t *testing.T) {
		var stdout bytes.Buffer
		h := New(&slog.HandlerOptions{Level: slog.LevelWarn}, WithDestinationWriter(DualWriter{Stdout: &stdout}))
		slog.New(h).Info("dropped")
		assert.Empty(t, stdout.String())
	})
}

func TestArchiver(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "default.txt"), []byte("line one\n"), 0600))

	a := NewArchiver(dir)
	a.now = func() time.Time { return time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC) }

	archived, err := a.archive()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2024-03-01"), archived)

	data, err := os.ReadFile(filepath.Join(archived, "default.txt"))
	require.NoError(t, err)
	assert.Equal(t, "line one\n", string(data))

	data, err = os.ReadFile(filepath.Join(dir, "default.txt"))
	require.NoError(t, err)
	assert.Empty(t, data)

	second, err := a.archive()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2024-03-01-1"), second)
}

func TestSetupWithFiles(t *testing.T) {
	dir := t.TempDir()
	var stdout bytes.Buffer
	prev := slog.Default()
	t.Cleanup(func() {
		Log = prev
		slog.SetDefault(prev)
	})
	l, err := Setup(Config{Level: "info", Dir: dir, Files: true, ArchiveCron: "@midnight", Stdout: &stdout})
	require.NoError(t, err)
	t.Cleanup(l.Close)

	l.Info("written", "k", "v")

	for _, name := range []string{"pretty.log", "default.txt", "default.json"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Contains(t, string(data), "written", name)
	}
	assert.Contains(t, stdout.String(), "written")

	_, err = Setup(Config{Level: "info", Dir: t.TempDir(), Files: true, ArchiveCron: "not a cron"})
	assert.Error(t, err)
}
