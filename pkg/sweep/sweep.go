// Package sweep drives a benchmark over every (data size, block size) pair.
package sweep

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/runningwild/diskio/pkg/engine"
	"github.com/runningwild/diskio/pkg/sizespec"
	"github.com/runningwild/diskio/pkg/stats"
)

// Provisioner supplies fresh data files and names plot artifacts.
type Provisioner interface {
	Create(worker, shard int) (engine.File, error)
	PlotPath(kind string, threads int, blockSize, dataSize int64) string
}

// Renderer turns a sample series into an image at path.
type Renderer interface {
	Latency(path, label string, samples []uint64) error
	Throughput(path, label string, samples []uint64) error
}

// Point is one combination of the sweep matrix.
type Point struct {
	DataSize  int64 `json:"data_size"`
	BlockSize int64 `json:"block_size"`
}

func (p Point) String() string {
	return fmt.Sprintf("data=%s block=%s",
		sizespec.Humanize(uint64(p.DataSize)), sizespec.Humanize(uint64(p.BlockSize)))
}

// Matrix returns every data size paired with every block size, data sizes
// in the outer loop.
func Matrix(datas, blocks []int64) []Point {
	points := make([]Point, 0, len(datas)*len(blocks))
	for _, d := range datas {
		for _, b := range blocks {
			points = append(points, Point{DataSize: d, BlockSize: b})
		}
	}
	return points
}

// Result is the outcome of one sweep point.
type Result struct {
	Point
	Threads     int           `json:"threads"`
	Shards      int           `json:"shards"`
	Bytes       uint64        `json:"bytes"`
	Elapsed     time.Duration `json:"elapsed_ns"`
	Failed      []string      `json:"failed_workers,omitempty"`
	Latency     stats.Summary `json:"latency"`
	Throughputs int           `json:"throughput_samples"`
	PlotError   string        `json:"plot_error,omitempty"`

	Stats *stats.Collector `json:"-"`
}

// Sweeper runs sweep points one after another.
type Sweeper struct {
	eng     engine.Engine
	prov    Provisioner
	render  Renderer // nil disables plots
	log     logrus.FieldLogger
	out     io.Writer
	threads int
	shards  int

	// total is the byte counter every writer of the current point adds to.
	total atomic.Uint64
}

func New(eng engine.Engine, prov Provisioner, render Renderer, log logrus.FieldLogger, out io.Writer, threads, shards int) *Sweeper {
	if threads < 1 {
		threads = 1
	}
	if shards < 1 {
		shards = 1
	}
	return &Sweeper{
		eng:     eng,
		prov:    prov,
		render:  render,
		log:     log,
		out:     out,
		threads: threads,
		shards:  shards,
	}
}

// Run evaluates the cross product of the expanded data and block sizes.
// A point whose files cannot be provisioned is logged and skipped.
func (s *Sweeper) Run(datas, blocks sizespec.Spec) []Result {
	points := Matrix(datas.Datas(), blocks.Blocks())
	if len(points) == 0 {
		s.log.Warn("nothing to sweep: a size axis is empty")
		return nil
	}

	var results []Result
	for i, p := range points {
		s.log.Infof("[%d/%d] %s threads=%d shards=%d engine=%s",
			i+1, len(points), p, s.threads, s.shards, s.eng.Name())
		res, err := s.RunPoint(p)
		if err != nil {
			s.log.WithFields(s.fields(p)).Errorf("sweep point skipped: %v", err)
			continue
		}
		results = append(results, res)
	}
	return results
}

type outcome struct {
	st  *stats.Collector
	err error
}

// RunPoint writes p.DataSize bytes split evenly across the writers, each
// writer getting DataSize/threads bytes; the remainder is not written.
// Writer failures are logged and left out of the merged statistics.
func (s *Sweeper) RunPoint(p Point) (Result, error) {
	s.total.Store(0)
	res := Result{Point: p, Threads: s.threads, Shards: s.shards}
	start := time.Now()

	jobs, err := s.provision(p)
	if err != nil {
		return res, err
	}

	outcomes := make([]outcome, len(jobs))
	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job *engine.Job) {
			defer wg.Done()
			st, err := engine.RunGuarded(s.eng, job)
			outcomes[i] = outcome{st: st, err: err}
		}(i, job)
	}
	wg.Wait()
	closeJobs(jobs)

	agg := stats.New()
	for i, o := range outcomes {
		if o.err != nil {
			s.log.WithFields(s.fields(p)).WithField("worker", i).Error(o.err)
			res.Failed = append(res.Failed, o.err.Error())
			continue
		}
		agg.Merge(o.st)
	}
	res.Elapsed = time.Since(start)
	res.Bytes = s.total.Load()
	res.Stats = agg
	res.Latency = agg.Summarize()
	res.Throughputs = len(agg.Throughputs)

	if err := s.plot(p, agg); err != nil {
		s.log.WithFields(s.fields(p)).Errorf("plot: %v", err)
		res.PlotError = err.Error()
	}

	fmt.Fprintf(s.out, "wrote %s across %d threads with %d block-size in %v (p50 %dus, p99 %dus, max %dus)\n",
		sizespec.Humanize(res.Bytes), s.threads, p.BlockSize, res.Elapsed.Round(time.Microsecond),
		res.Latency.P50, res.Latency.P99, res.Latency.Max)
	return res, nil
}

func (s *Sweeper) provision(p Point) ([]*engine.Job, error) {
	quota := p.DataSize / int64(s.threads)
	jobs := make([]*engine.Job, 0, s.threads)
	for w := 0; w < s.threads; w++ {
		files := make([]engine.File, 0, s.shards)
		for sh := 0; sh < s.shards; sh++ {
			f, err := s.prov.Create(w, sh)
			if err != nil {
				closeFiles(files)
				closeJobs(jobs)
				return nil, err
			}
			files = append(files, f)
		}
		jobs = append(jobs, &engine.Job{
			Worker:    w,
			Files:     files,
			BlockSize: int(p.BlockSize),
			Quota:     quota,
			Total:     &s.total,
		})
	}
	return jobs, nil
}

// plot renders the latency and throughput images of one point concurrently.
func (s *Sweeper) plot(p Point, agg *stats.Collector) error {
	if s.render == nil {
		return nil
	}
	label := fmt.Sprintf("%d threads, %s blocks, %s data",
		s.threads, sizespec.Humanize(uint64(p.BlockSize)), sizespec.Humanize(uint64(p.DataSize)))
	var g errgroup.Group
	g.Go(func() error {
		path := s.prov.PlotPath("latency", s.threads, p.BlockSize, p.DataSize)
		return s.render.Latency(path, "latency: "+label, agg.Latencies)
	})
	g.Go(func() error {
		path := s.prov.PlotPath("throughput", s.threads, p.BlockSize, p.DataSize)
		return s.render.Throughput(path, "throughput: "+label, agg.Throughputs)
	})
	return g.Wait()
}

func (s *Sweeper) fields(p Point) logrus.Fields {
	return logrus.Fields{"data_size": p.DataSize, "block_size": p.BlockSize}
}

func closeJobs(jobs []*engine.Job) {
	for _, j := range jobs {
		closeFiles(j.Files)
	}
}

func closeFiles(files []engine.File) {
	for _, f := range files {
		f.Close()
	}
}
