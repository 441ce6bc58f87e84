// Command pose-replay streams a synthetic walking take into a running
// recorder, saves it and verifies the CSV that comes back.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/bodytrack/internal/posegen"
	"github.com/okian/bodytrack/pkg/logger"
	flag "github.com/spf13/pflag"
)

const (
	defaultFrames  = 600
	defaultRate    = 60.0
	defaultTimeout = 10 * time.Second
	runTimeout     = 10 * time.Minute
)

func main() {
	cfg := &posegen.Config{}
	flag.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "Base URL of the recorder")
	flag.IntVarP(&cfg.Frames, "frames", "n", defaultFrames, "Number of frames to stream")
	flag.Float64Var(&cfg.Rate, "rate", defaultRate, "Frames per second of the synthetic take")
	flag.StringVar(&cfg.Name, "name", "", "Recording name (default: replay_TIMESTAMP)")
	flag.BoolVar(&cfg.Realtime, "realtime", false, "Pace frames at --rate instead of sending flat out")
	flag.IntVar(&cfg.DuplicateEvery, "duplicate-every", 0, "Resend every Nth frame to exercise deduplication")
	flag.DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "HTTP request timeout")
	flag.StringVarP(&cfg.OutputFile, "output", "o", "", "Write the generated poses to this JSON file")
	flag.BoolVar(&cfg.Keep, "keep", false, "Keep the recording after verification")
	flag.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Log every acknowledgement")
	format := flag.String("log-format", "text", "Log format: text or json")
	flag.Parse()

	if err := logger.Init(logger.WithFormat(*format)); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	if cfg.Verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	if _, err := posegen.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "replay failed", logger.Error(err))
		cancel()
		stop()
		os.Exit(1)
	}
}
