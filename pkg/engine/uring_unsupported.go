//go:build !linux

package engine

import (
	"github.com/pkg/errors"

	"github.com/runningwild/diskio/pkg/stats"
)

type UringEngine struct {
}

func NewUring() *UringEngine {
	return &UringEngine{}
}

func (e *UringEngine) Name() string { return "uring" }

func (e *UringEngine) Run(job *Job) (*stats.Collector, error) {
	return nil, errors.New("uring engine is only supported on Linux")
}
