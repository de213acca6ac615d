package logger

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func readEntries(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		out = append(out, e)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestNew_WritesFieldsAsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")
	log, err := New(Config{Level: "warn", OutputPaths: []string{path}})
	require.NoError(t, err)

	log.Info("dropped below level")
	log.With(String("session", "abc")).Warn("Enhancement failed",
		Strings("fields", []string{"date", "weather"}),
		Int("pages", 3),
		Bool("ocr", true),
		Duration("took", 1500*time.Millisecond),
		Error(errors.New("timeout")),
		Any("status", 429),
	)
	_ = log.Sync()

	entries := readEntries(t, path)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "warn", e["level"])
	assert.Equal(t, "Enhancement failed", e["msg"])
	assert.Equal(t, "abc", e["session"])
	assert.Equal(t, []any{"date", "weather"}, e["fields"])
	assert.EqualValues(t, 3, e["pages"])
	assert.Equal(t, true, e["ocr"])
	assert.InDelta(t, 1.5, e["took"], 1e-9)
	assert.Equal(t, "timeout", e["error"])
	assert.EqualValues(t, 429, e["status"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
}

func TestOrNop(t *testing.T) {
	l := OrNop(nil)
	require.NotNil(t, l)
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
	assert.NotNil(t, l.With(String("k", "v")))
	assert.NoError(t, l.Sync())

	nop := NewNop()
	assert.Equal(t, nop, OrNop(nop))
}
