// Package provision creates the data files a sweep point writes into and
// names the artifacts it leaves behind.
package provision

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/sirupsen/logrus"

	"github.com/runningwild/diskio/pkg/engine"
	"github.com/runningwild/diskio/pkg/sizespec"
)

var (
	// ErrProvision marks failures to prepare a data file.
	ErrProvision = errors.New("file provisioning failed")
	// ErrInsufficientSpace is returned by Preflight when the target
	// filesystem cannot hold the requested data.
	ErrInsufficientSpace = errors.New("insufficient free space")
)

// Provisioner hands out fresh, empty, append-only data files under Dir.
type Provisioner struct {
	Dir    string
	Shards int
	Log    logrus.FieldLogger
}

func New(dir string, shards int, log logrus.FieldLogger) *Provisioner {
	if shards < 1 {
		shards = 1
	}
	return &Provisioner{Dir: dir, Shards: shards, Log: log}
}

// DataPath is the file written by one worker shard. Unsharded runs use
// diskio-<worker>.data, sharded runs diskio-<worker>-<shard>.data.
func (p *Provisioner) DataPath(worker, shard int) string {
	if p.Shards <= 1 {
		return filepath.Join(p.Dir, fmt.Sprintf("diskio-%d.data", worker))
	}
	return filepath.Join(p.Dir, fmt.Sprintf("diskio-%d-%d.data", worker, shard))
}

// Create makes sure Dir exists, removes any previous file for the shard and
// creates a new one. It fails if the old file cannot be removed.
func (p *Provisioner) Create(worker, shard int) (engine.File, error) {
	if err := os.MkdirAll(p.Dir, 0755); err != nil {
		return nil, errors.Wrapf(ErrProvision, "mkdir %s: %v", p.Dir, err)
	}
	path := p.DataPath(worker, shard)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrProvision, "remove %s: %v", path, err)
	}
	if p.Log != nil {
		p.Log.Debugf("creating file %s", path)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, errors.Wrapf(ErrProvision, "create %s: %v", path, err)
	}
	return engine.WrapFile(f), nil
}

// PlotPath names the image of one sweep point, for example
// diskio-plot-latency-4x4KBx1GB.png for 4 threads writing 1GB in 4KB blocks.
func (p *Provisioner) PlotPath(kind string, threads int, blockSize, dataSize int64) string {
	name := fmt.Sprintf("diskio-plot-%s-%dx%sx%s.png",
		kind, threads, sizespec.Humanize(uint64(blockSize)), sizespec.Humanize(uint64(dataSize)))
	return filepath.Join(p.Dir, name)
}

// Preflight creates dir and reports the filesystem it lives on. It returns
// ErrInsufficientSpace, along with the usage, when less than need bytes are
// free.
func Preflight(dir string, need uint64) (*disk.UsageStat, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(ErrProvision, "mkdir %s: %v", dir, err)
	}
	usage, err := disk.Usage(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "disk usage of %s", dir)
	}
	if usage.Free < need {
		return usage, errors.Wrapf(ErrInsufficientSpace, "%s has %s free, sweep needs %s",
			dir, sizespec.Humanize(usage.Free), sizespec.Humanize(need))
	}
	return usage, nil
}
