//go:build linux

package engine

import (
	"os"
	"syscall"
	"time"

	"github.com/godzie44/go-uring/uring"
	"github.com/pkg/errors"

	"github.com/runningwild/diskio/pkg/stats"
)

// UringEngine submits each block write through io_uring and then forces it
// to stable storage with fsync(2). One write is in flight at a time.
type UringEngine struct {
}

func NewUring() *UringEngine {
	return &UringEngine{}
}

func (e *UringEngine) Name() string { return "uring" }

func (e *UringEngine) Run(job *Job) (*stats.Collector, error) {
	if err := job.validate(); err != nil {
		return nil, err
	}

	ring, err := uring.New(uint32(len(job.Files)))
	if err != nil {
		return nil, job.fail(0, ErrWrite, errors.Wrap(err, "failed to setup io_uring"))
	}
	defer ring.Close()

	block, release, err := allocBlock(job.BlockSize)
	if err != nil {
		return nil, job.fail(0, ErrWrite, err)
	}
	defer release()

	offsets := make([]uint64, len(job.Files))
	for i, f := range job.Files {
		fi, err := f.Stat()
		if err != nil {
			return nil, job.fail(i, ErrStat, err)
		}
		offsets[i] = uint64(fi.Size())
	}

	st := stats.New()
	shard := 0
	for job.Quota > 0 {
		f := job.Files[shard]
		start := time.Now()
		n, err := writeOne(ring, f.Fd(), block, offsets[shard], uint64(shard))
		if err := job.checkWrite(shard, n, len(block), err); err != nil {
			return nil, err
		}
		offsets[shard] += uint64(n)
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

// writeOne queues a single write, waits for its completion and returns the
// number of bytes the kernel reported.
func writeOne(ring *uring.Ring, fd uintptr, buf []byte, offset, tag uint64) (int, error) {
	if err := ring.QueueSQE(uring.Write(fd, buf, offset), 0, tag); err != nil {
		return 0, err
	}
	for {
		_, err := ring.Submit()
		if err == nil {
			break
		}
		if !isEINTR(err) {
			return 0, err
		}
	}

	var cqe *uring.CQEvent
	var err error
	for {
		cqe, err = ring.WaitCQEvents(1)
		if err == nil || !isEINTR(err) {
			break
		}
	}
	if err != nil {
		return 0, err
	}
	res := cqe.Res
	ring.SeenCQE(cqe)
	if res < 0 {
		return 0, syscall.Errno(-res)
	}
	return int(res), nil
}

func isEINTR(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.EINTR) {
		return true
	}
	var sysErr *os.SyscallError
	if errors.As(err, &sysErr) {
		return sysErr.Err == syscall.EINTR
	}
	return false
}
