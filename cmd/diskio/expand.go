package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/runningwild/diskio/pkg/config"
	"github.com/runningwild/diskio/pkg/sizespec"
	"github.com/runningwild/diskio/pkg/sweep"
)

// runExpandCmd handles "diskio expand [flags]": it prints the sweep matrix a
// run would execute without touching the disk.
func runExpandCmd(args []string) {
	fs := pflag.NewFlagSet("expand", pflag.ExitOnError)
	blockSize := fs.String("block-size", config.DefaultBlockSize, "Block size: N[kmgt], A..B over the block menu, or a comma list")
	dataSize := fs.String("data-size", config.DefaultDataSize, "Data size: N[kmgt], A..B over the data menu, or a comma list")
	threads := fs.Int("threads", 1, "Number of concurrent writers")
	fs.Parse(args)

	if err := printExpansion(os.Stdout, *blockSize, *dataSize, *threads); err != nil {
		fatalf("%v", err)
	}
}

func printExpansion(w io.Writer, blockText, dataText string, threads int) error {
	if threads < 1 {
		return errors.Errorf("threads must be positive, got %d", threads)
	}
	cfg := &config.Config{BlockSize: blockText, DataSize: dataText}
	blocks, datas, err := cfg.Sizes()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "block sizes: %s\n", humanizeAll(blocks.Blocks()))
	fmt.Fprintf(w, "data sizes:  %s\n", humanizeAll(datas.Datas()))
	points := sweep.Matrix(datas.Datas(), blocks.Blocks())
	if len(points) == 0 {
		fmt.Fprintln(w, "nothing to sweep")
		return nil
	}
	for i, p := range points {
		quota := p.DataSize / int64(threads)
		fmt.Fprintf(w, "[%d/%d] %s per-thread=%s\n", i+1, len(points), p, sizespec.Humanize(uint64(quota)))
	}
	return nil
}

func humanizeAll(sizes []int64) string {
	if len(sizes) == 0 {
		return "(none)"
	}
	parts := make([]string, len(sizes))
	for i, s := range sizes {
		parts[i] = sizespec.Humanize(uint64(s))
	}
	return strings.Join(parts, " ")
}
