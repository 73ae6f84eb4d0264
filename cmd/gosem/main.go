// Command gosem runs the speech enhancement pipeline over WAV files.
//
// Each input file is processed independently with its own filter bank and
// inference state, so files can run in parallel. A file that fails is
// logged and skipped; the remaining files still run.
//
// Usage:
//
//	gosem -config config.yaml -outdir enhanced in1.wav in2.wav ...
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"syscall"

	"github.com/youpy/go-wav"
	"golang.org/x/sync/errgroup"

	"github.com/auralab/gosem"
	"github.com/auralab/gosem/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	outDir := flag.String("outdir", ".", "directory for the enhanced output files")
	baseline := flag.Bool("baseline", false, "bypass enhancement and apply unity gains")
	jobs := flag.Int("jobs", runtime.NumCPU(), "number of files to process concurrently")
	logLevel := flag.String("log-level", "info", "log verbosity: debug, info, warn, error")
	flag.Parse()

	slog.SetDefault(newLogger(*logLevel))

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "gosem: no input files\nusage: gosem [flags] file.wav ...")
		return 2
	}
	if *jobs < 1 {
		*jobs = 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("configuration rejected", "err", err)
		return 1
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		slog.Error("cannot create output directory", "dir", *outDir, "err", err)
		return 1
	}

	strategy := gosem.StrategySEM
	if *baseline {
		strategy = gosem.StrategyBaseline
	}
	slog.Info("gosem starting",
		"config", *configPath,
		"files", flag.NArg(),
		"strategy", strategy,
		"jobs", *jobs,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var failed atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(*jobs)
	for _, path := range flag.Args() {
		path := path
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			out := filepath.Join(*outDir, filepath.Base(path))
			if err := processFile(cfg, strategy, path, out); err != nil {
				slog.Error("file failed", "in", path, "err", err)
				failed.Add(1)
				return nil // keep processing the other files
			}
			slog.Info("file done", "in", path, "out", out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Error("interrupted", "err", err)
		return 1
	}
	if n := failed.Load(); n > 0 {
		slog.Error("some files failed", "failed", n, "total", flag.NArg())
		return 1
	}
	return 0
}

// processFile runs one WAV file through a fresh pipeline. Inference state
// must not leak between files, so the frontend and backend are built here.
func processFile(cfg *config.Config, strategy gosem.Strategy, inPath, outPath string) error {
	frontend, backend, err := cfg.Build()
	if err != nil {
		return err
	}
	ha, err := gosem.NewHearingAid(frontend, backend, strategy)
	if err != nil {
		return err
	}

	samples, format, err := readWAV(inPath)
	if err != nil {
		return err
	}
	if float64(format.SampleRate) != cfg.Frontend.FS {
		return fmt.Errorf("sample rate %d Hz does not match configured %v Hz", format.SampleRate, cfg.Frontend.FS)
	}

	out, err := ha.ProcessSignal(samples)
	if err != nil {
		return err
	}
	return writeWAV(outPath, out, format.SampleRate)
}

// readWAV loads a 16-bit PCM file as mono float64 in [-1, 1). Stereo
// input is downmixed by averaging the channels.
func readWAV(path string) ([]float64, *wav.WavFormat, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := wav.NewReader(f)
	format, err := r.Format()
	if err != nil {
		return nil, nil, fmt.Errorf("read wav header: %w", err)
	}
	if format.BitsPerSample != 16 {
		return nil, nil, fmt.Errorf("unsupported bit depth %d, want 16", format.BitsPerSample)
	}
	if format.NumChannels < 1 || format.NumChannels > 2 {
		return nil, nil, fmt.Errorf("unsupported channel count %d", format.NumChannels)
	}

	var mono []float64
	for {
		chunk, err := r.ReadSamples()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read wav samples: %w", err)
		}
		for _, s := range chunk {
			v := gosem.Int16ToFloat64(int16(r.IntValue(s, 0)))
			if format.NumChannels == 2 {
				v = (v + gosem.Int16ToFloat64(int16(r.IntValue(s, 1)))) / 2
			}
			mono = append(mono, v)
		}
	}
	return mono, format, nil
}

func writeWAV(path string, samples []float64, sampleRate uint32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := wav.NewWriter(f, uint32(len(samples)), 1, sampleRate, 16)
	out := make([]wav.Sample, len(samples))
	for i, v := range samples {
		out[i].Values[0] = int(gosem.Float64ToInt16(v))
	}
	if err := w.WriteSamples(out); err != nil {
		return fmt.Errorf("write wav samples: %w", err)
	}
	return f.Close()
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
