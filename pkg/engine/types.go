package engine

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/runningwild/diskio/pkg/stats"
)

// Failure kinds carried by WorkerError.
var (
	ErrPartialWrite = errors.New("partial write")
	ErrWrite        = errors.New("write failed")
	ErrSync         = errors.New("sync failed")
	ErrStat         = errors.New("stat failed")
	ErrAbort        = errors.New("worker aborted")
)

// File is the part of *os.File a writer uses.
type File interface {
	io.Writer
	Sync() error
	Stat() (os.FileInfo, error)
	Fd() uintptr
	Name() string
	Close() error
}

// Job is everything one writer owns for the duration of a sweep point.
// Files holds one entry per shard; writes rotate through them.
type Job struct {
	Worker    int
	Files     []File
	BlockSize int
	// Quota is the number of bytes left to write, shared by all shards.
	Quota int64
	// Total receives the final size of every file once the quota is met.
	Total *atomic.Uint64
}

// Engine runs a Job to completion.
type Engine interface {
	Name() string
	Run(job *Job) (*stats.Collector, error)
}

// WorkerError identifies the writer (and shard, if any) that failed.
type WorkerError struct {
	Worker int
	Shard  int // -1 when the writer has a single file
	Kind   error
	Err    error
}

func (e *WorkerError) Error() string {
	who := fmt.Sprintf("worker %d", e.Worker)
	if e.Shard >= 0 {
		who = fmt.Sprintf("worker %d shard %d", e.Worker, e.Shard)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", who, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", who, e.Kind, e.Err)
}

// Unwrap exposes the failure kind so callers can use errors.Is.
func (e *WorkerError) Unwrap() error { return e.Kind }

// Cause returns the underlying error, if any.
func (e *WorkerError) Cause() error { return e.Err }

func (j *Job) fail(shard int, kind, err error) *WorkerError {
	if len(j.Files) <= 1 {
		shard = -1
	}
	return &WorkerError{Worker: j.Worker, Shard: shard, Kind: kind, Err: err}
}

func (j *Job) validate() error {
	if j.BlockSize <= 0 {
		return errors.Errorf("invalid block size: %d", j.BlockSize)
	}
	if len(j.Files) == 0 {
		return errors.Errorf("worker %d has no files", j.Worker)
	}
	return nil
}

// finish adds the final size of every shard to the shared total.
func (j *Job) finish() error {
	for i, f := range j.Files {
		fi, err := f.Stat()
		if err != nil {
			return j.fail(i, ErrStat, err)
		}
		if j.Total != nil {
			j.Total.Add(uint64(fi.Size()))
		}
	}
	return nil
}

// checkWrite classifies the outcome of writing want bytes.
func (j *Job) checkWrite(shard, n, want int, err error) error {
	if n != want && (n > 0 || err == nil) {
		short := errors.Errorf("wrote %d of %d bytes", n, want)
		if err != nil {
			short = errors.Wrapf(err, "wrote %d of %d bytes", n, want)
		}
		return j.fail(shard, ErrPartialWrite, short)
	}
	if err != nil {
		return j.fail(shard, ErrWrite, err)
	}
	return nil
}
