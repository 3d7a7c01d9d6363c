// Package stats accumulates per-operation latency samples and a windowed
// throughput series for one writer, and merges them across writers.
package stats

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Window is the length of one throughput sample.
const Window = time.Second

// Collector records completed durable writes. It is not safe for concurrent
// use; each writer owns one and hands it back when it finishes.
type Collector struct {
	// Latencies holds one sample per operation in microseconds, in
	// completion order.
	Latencies []uint64
	// Throughputs holds one smoothed byte count per elapsed window.
	Throughputs []uint64

	boundary time.Time
	pending  uint64

	now func() time.Time
}

// New returns a Collector whose first window starts now.
func New() *Collector {
	return newWithClock(time.Now)
}

func newWithClock(now func() time.Time) *Collector {
	return &Collector{boundary: now(), now: now}
}

// Record accounts for one operation of size bytes that began at start.
//
// Bytes are added to the open window until a call observes that a full
// window has elapsed. That call closes the window, appending the mean of the
// previous sample and the pending total, and starts a new empty window.
func (c *Collector) Record(start time.Time, size uint64) {
	now := c.now()
	if now.Sub(c.boundary) >= Window {
		sample := c.pending
		if n := len(c.Throughputs); n > 0 {
			sample = (c.Throughputs[n-1] + c.pending) / 2
		}
		c.Throughputs = append(c.Throughputs, sample)
		c.boundary = now
		c.pending = 0
	} else {
		c.pending += size
	}
	c.Latencies = append(c.Latencies, uint64(now.Sub(start).Microseconds()))
}

// Merge folds other into c. Latencies are appended after c's own. Throughput
// samples are summed index by index, the shorter series being padded with
// zeros. Writers start at slightly different instants, so index i of two
// series only approximately covers the same wall-clock second.
func (c *Collector) Merge(other *Collector) {
	if other == nil {
		return
	}
	c.Latencies = append(c.Latencies, other.Latencies...)
	if len(other.Throughputs) > len(c.Throughputs) {
		grown := make([]uint64, len(other.Throughputs))
		copy(grown, c.Throughputs)
		c.Throughputs = grown
	}
	for i, v := range other.Throughputs {
		c.Throughputs[i] += v
	}
}

// Summary describes the latency distribution in microseconds.
type Summary struct {
	Count int64   `json:"count"`
	Min   int64   `json:"min_us"`
	Mean  float64 `json:"mean_us"`
	P50   int64   `json:"p50_us"`
	P99   int64   `json:"p99_us"`
	P999  int64   `json:"p999_us"`
	Max   int64   `json:"max_us"`
}

// maxTrackable bounds the histogram at one hour.
const maxTrackable = int64(time.Hour / time.Microsecond)

// Summarize builds a latency Summary from the recorded samples.
func (c *Collector) Summarize() Summary {
	if len(c.Latencies) == 0 {
		return Summary{}
	}
	hist := hdrhistogram.New(1, maxTrackable, 3)
	for _, l := range c.Latencies {
		v := int64(l)
		if v < 1 {
			v = 1
		} else if v > maxTrackable {
			v = maxTrackable
		}
		_ = hist.RecordValue(v)
	}
	return Summary{
		Count: hist.TotalCount(),
		Min:   hist.Min(),
		Mean:  hist.Mean(),
		P50:   hist.ValueAtQuantile(50),
		P99:   hist.ValueAtQuantile(99),
		P999:  hist.ValueAtQuantile(99.9),
		Max:   hist.Max(),
	}
}
