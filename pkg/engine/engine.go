// Package engine runs the write/sync loop of one benchmark writer.
package engine

import (
	"os"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/runningwild/diskio/pkg/stats"
)

// Names lists the engines accepted by New.
var Names = []string{"sync", "uring"}

// New returns the engine registered under name.
func New(name string) (Engine, error) {
	switch name {
	case "", "sync":
		return NewSync(), nil
	case "uring":
		return NewUring(), nil
	}
	return nil, errors.Errorf("unknown engine %q (want one of %v)", name, Names)
}

// SyncEngine issues a blocking write(2) followed by fsync(2) per block.
type SyncEngine struct{}

func NewSync() *SyncEngine {
	return &SyncEngine{}
}

func (e *SyncEngine) Name() string { return "sync" }

// Run writes job.BlockSize bytes at a time, rotating through the job's
// shards, until the quota is used up. The first failure ends the run.
func (e *SyncEngine) Run(job *Job) (*stats.Collector, error) {
	if err := job.validate(); err != nil {
		return nil, err
	}
	block, release, err := allocBlock(job.BlockSize)
	if err != nil {
		return nil, job.fail(0, ErrWrite, err)
	}
	defer release()

	st := stats.New()
	shard := 0
	for job.Quota > 0 {
		f := job.Files[shard]
		start := time.Now()
		n, err := f.Write(block)
		if err := job.checkWrite(shard, n, len(block), err); err != nil {
			return nil, err
		}
		if err := f.Sync(); err != nil {
			return nil, job.fail(shard, ErrSync, err)
		}
		job.Quota -= int64(job.BlockSize)
		st.Record(start, uint64(job.BlockSize))
		shard = (shard + 1) % len(job.Files)
	}
	if err := job.finish(); err != nil {
		return nil, err
	}
	return st, nil
}

// RunGuarded runs job on e from a goroutine pinned to its own OS thread.
// A panic inside the engine is returned as an ErrAbort WorkerError.
func RunGuarded(e Engine, job *Job) (st *stats.Collector, err error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer func() {
		if r := recover(); r != nil {
			st = nil
			err = &WorkerError{Worker: job.Worker, Shard: -1, Kind: ErrAbort, Err: errors.Errorf("panic: %v", r)}
		}
	}()
	return e.Run(job)
}

// allocBlock returns a page-aligned buffer filled with a constant byte.
func allocBlock(size int) ([]byte, func(), error) {
	block, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, func() {}, errors.Wrap(err, "failed to allocate aligned memory")
	}
	for i := range block {
		block[i] = 0xAB
	}
	return block, func() { unix.Munmap(block) }, nil
}

// osFile syncs through fsync(2) directly, retrying on EINTR.
type osFile struct {
	*os.File
}

// WrapFile adapts an open file for use in a Job.
func WrapFile(f *os.File) File {
	return osFile{f}
}

func (f osFile) Sync() error {
	for {
		err := unix.Fsync(int(f.Fd()))
		if err != unix.EINTR {
			return err
		}
	}
}
