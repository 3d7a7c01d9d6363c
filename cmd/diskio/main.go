// Command diskio measures sustained durable-write throughput and latency of a
// storage path by appending fixed-size blocks and fsyncing after each one.
//
//	diskio [flags] <path>
//	diskio expand --block-size 1k..1m --data-size 1g
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/runningwild/diskio/pkg/config"
	"github.com/runningwild/diskio/pkg/engine"
	"github.com/runningwild/diskio/pkg/plot"
	"github.com/runningwild/diskio/pkg/provision"
	"github.com/runningwild/diskio/pkg/sizespec"
	"github.com/runningwild/diskio/pkg/sweep"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "expand" {
		runExpandCmd(os.Args[2:])
		return
	}
	runBenchCmd(os.Args[1:])
}

// Flags holds pointers to all supported CLI flags
type Flags struct {
	ConfigFile  *string
	WriteConfig *string

	BlockSize *string
	DataSize  *string
	Threads   *int
	Shards    *int
	Engine    *string
	NoPlots   *bool
	LogLevel  *string

	ReportFile *string
}

func SetupFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{}
	f.ConfigFile = fs.String("config", "", "Path to YAML configuration file (disables other flags)")
	f.WriteConfig = fs.String("write-config", "", "Save the effective configuration to this YAML file")

	f.BlockSize = fs.String("block-size", config.DefaultBlockSize, "Block size: N[kmgt], A..B over the block menu, or a comma list")
	f.DataSize = fs.String("data-size", config.DefaultDataSize, "Data size: N[kmgt], A..B over the data menu, or a comma list")
	f.Threads = fs.Int("threads", 1, "Number of concurrent writers")
	f.Shards = fs.Int("shards", 1, "Files per writer, written round-robin")
	f.Engine = fs.String("engine", "sync", "I/O engine: 'sync' or 'uring'")
	f.NoPlots = fs.Bool("no-plots", false, "Skip rendering latency and throughput images")
	f.LogLevel = fs.String("log-level", "info", "Log level: debug, info, warn, error")

	f.ReportFile = fs.String("report", "", "Write per-sweep-point results to JSON file")
	return f
}

// LoadConfig determines the config source (file or flags) and returns a Config object.
func (f *Flags) LoadConfig(args []string) (*config.Config, error) {
	if *f.ConfigFile != "" {
		cfg, err := config.Load(*f.ConfigFile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load config file")
		}
		if cfg.Target == "" && len(args) > 0 {
			cfg.Target = args[0]
		}
		return cfg, nil
	}

	if len(args) != 1 {
		return nil, errors.New("exactly one target path is required")
	}
	plots := !*f.NoPlots
	cfg := &config.Config{
		Target:    args[0],
		BlockSize: *f.BlockSize,
		DataSize:  *f.DataSize,
		Threads:   *f.Threads,
		Shards:    *f.Shards,
		Engine:    *f.Engine,
		Plots:     &plots,
		Report:    *f.ReportFile,
		LogLevel:  *f.LogLevel,
	}
	cfg.SetDefaults()
	return cfg, nil
}

func (f *Flags) MaybeWriteConfig(cfg *config.Config) {
	if *f.WriteConfig == "" {
		return
	}
	data, err := cfg.Marshal()
	if err != nil {
		fmt.Printf("Warning: Failed to marshal config for writing: %v\n", err)
		return
	}
	if err := os.WriteFile(*f.WriteConfig, data, 0644); err != nil {
		fmt.Printf("Warning: Failed to write config file: %v\n", err)
		return
	}
	fmt.Printf("Configuration written to %s\n", *f.WriteConfig)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(level); err == nil {
		log.SetLevel(lvl)
	}
	return log
}

// runBenchCmd handles "diskio [flags] <path>"
func runBenchCmd(args []string) {
	fs := pflag.NewFlagSet("diskio", pflag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: diskio [flags] <path>\n       diskio expand [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}
	f := SetupFlags(fs)
	fs.Parse(args)

	cfg, err := f.LoadConfig(fs.Args())
	if err != nil {
		fs.Usage()
		fatalf("%v", err)
	}
	if err := cfg.Validate(); err != nil {
		fatalf("%v", err)
	}
	f.MaybeWriteConfig(cfg)

	log := newLogger(cfg.LogLevel)
	blocks, datas, _ := cfg.Sizes()

	if need := largest(datas.Datas()); need > 0 {
		usage, err := provision.Preflight(cfg.Target, uint64(need))
		switch {
		case errors.Is(err, provision.ErrProvision):
			fatalf("%v", err)
		case err != nil:
			log.Warnf("preflight: %v", err)
		}
		if usage != nil {
			log.Infof("target %s on %s filesystem, %s free of %s", cfg.Target, usage.Fstype,
				sizespec.Humanize(usage.Free), sizespec.Humanize(usage.Total))
		}
	}

	eng, err := engine.New(cfg.Engine)
	if err != nil {
		fatalf("%v", err)
	}
	var render sweep.Renderer
	if cfg.PlotsEnabled() {
		render = plot.New()
	}
	prov := provision.New(cfg.Target, cfg.Shards, log)
	s := sweep.New(eng, prov, render, log, os.Stdout, cfg.Threads, cfg.Shards)

	results := s.Run(datas, blocks)

	if cfg.Report != "" {
		writeReport(cfg.Report, results)
	}
}

func largest(sizes []int64) int64 {
	var max int64
	for _, s := range sizes {
		if s > max {
			max = s
		}
	}
	return max
}

func writeReport(path string, results []sweep.Result) {
	if results == nil {
		results = []sweep.Result{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		fmt.Printf("Failed to marshal report: %v\n", err)
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		fmt.Printf("Failed to write report: %v\n", err)
		return
	}
	fmt.Printf("Report written to %s\n", path)
}
