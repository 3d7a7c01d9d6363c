package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runningwild/diskio/pkg/sizespec"
)

func writeFile(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "diskio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "target: /mnt/bench\n"))
	require.NoError(t, err)
	assert.Equal(t, "/mnt/bench", cfg.Target)
	assert.Equal(t, DefaultBlockSize, cfg.BlockSize)
	assert.Equal(t, DefaultDataSize, cfg.DataSize)
	assert.Equal(t, 1, cfg.Threads)
	assert.Equal(t, 1, cfg.Shards)
	assert.Equal(t, "sync", cfg.Engine)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.PlotsEnabled())
	require.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeFile(t, `
target: /mnt/bench
block_size: 1k..1m
data_size: 1m,10m
threads: 4
shards: 2
engine: uring
plots: false
report: out.json
log_level: debug
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 4, cfg.Threads)
	assert.Equal(t, 2, cfg.Shards)
	assert.Equal(t, "uring", cfg.Engine)
	assert.False(t, cfg.PlotsEnabled())
	assert.Equal(t, "out.json", cfg.Report)

	blocks, datas, err := cfg.Sizes()
	require.NoError(t, err)
	assert.Equal(t, sizespec.Range, blocks.Kind)
	assert.Equal(t, []int64{sizespec.MiB, 10 * sizespec.MiB}, datas.Datas())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "threads: [1, 2]\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{Target: "/tmp/x"}
		c.SetDefaults()
		return c
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no target", func(c *Config) { c.Target = "" }},
		{"zero threads", func(c *Config) { c.Threads = 0 }},
		{"negative shards", func(c *Config) { c.Shards = -1 }},
		{"engine", func(c *Config) { c.Engine = "libaio" }},
		{"log level", func(c *Config) { c.LogLevel = "loud" }},
		{"block size", func(c *Config) { c.BlockSize = "..4k" }},
		{"data size", func(c *Config) { c.DataSize = "4x" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestValidateSizeErrorKind(t *testing.T) {
	c := &Config{Target: "/tmp/x", BlockSize: "..20k"}
	c.SetDefaults()
	err := c.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, sizespec.ErrInvalidSize))
	assert.Contains(t, err.Error(), "block_size")
}

func TestMarshalRoundTrip(t *testing.T) {
	c := &Config{Target: "/mnt/bench", BlockSize: "4k", Threads: 2}
	c.SetDefaults()
	data, err := c.Marshal()
	require.NoError(t, err)

	loaded, err := Load(writeFile(t, string(data)))
	require.NoError(t, err)
	assert.Equal(t, c, loaded)
}
