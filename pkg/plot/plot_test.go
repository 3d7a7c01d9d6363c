package plot

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func requirePNG(t *testing.T, path string) {
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic), "%s is not a PNG", path)
}

func TestLatency(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latency.png")
	err := New().Latency(path, "1x4KBx1MB", []uint64{120, 95, 3000, 110, 101})
	require.NoError(t, err)
	requirePNG(t, path)
}

func TestThroughput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "throughput.png")
	err := New().Throughput(path, "1x4KBx1MB", []uint64{4096, 8192, 6144})
	require.NoError(t, err)
	requirePNG(t, path)
}

func TestEmptySeries(t *testing.T) {
	dir := t.TempDir()
	r := New()
	require.NoError(t, r.Latency(filepath.Join(dir, "l.png"), "empty", nil))
	require.NoError(t, r.Throughput(filepath.Join(dir, "t.png"), "empty", nil))
	requirePNG(t, filepath.Join(dir, "l.png"))
}

func TestSaveFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "latency.png")
	err := New().Latency(path, "x", []uint64{1})
	assert.Error(t, err)
}
