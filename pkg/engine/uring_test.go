//go:build linux

package engine

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/godzie44/go-uring/uring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireUring(t *testing.T) {
	ring, err := uring.New(1)
	if err != nil {
		t.Skipf("io_uring unavailable: %v", err)
	}
	ring.Close()
}

func openShard(t *testing.T, dir, name string) *os.File {
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_EXCL|os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestUringRun(t *testing.T) {
	requireUring(t)
	dir := t.TempDir()
	a := openShard(t, dir, "diskio-0-0.data")
	b := openShard(t, dir, "diskio-0-1.data")

	var total atomic.Uint64
	job := &Job{Files: []File{WrapFile(a), WrapFile(b)}, BlockSize: 4096, Quota: 5 * 4096, Total: &total}
	st, err := NewUring().Run(job)
	require.NoError(t, err)

	assert.Len(t, st.Latencies, 5)
	assert.Equal(t, uint64(5*4096), total.Load())
	fa, err := a.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(3*4096), fa.Size())
}
