package main

import (
	"fmt"
	"log"
	"time"

	"github.com/phinze/rawdelta/internal/config"
	"github.com/phinze/rawdelta/internal/motion"
	"github.com/phinze/rawdelta/internal/recorder"
	"github.com/phinze/rawdelta/internal/store"
	"github.com/spf13/cobra"
)

var (
	watchInterval time.Duration
	watchSmooth   float64
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print live motion statistics",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 250*time.Millisecond, "how often to drain and print")
	watchCmd.Flags().Float64Var(&watchSmooth, "smooth", motion.DefaultSmoothTime, "smoothing frame length in milliseconds")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	rec := recorder.New(store.New(), openBackend(ctx, cfg), recorder.WithBuffer(cfg.Capture.Buffer))
	if err := rec.StartCapture(); err != nil {
		return fmt.Errorf("starting capture: %w", err)
	}
	defer func() {
		if err := rec.Stop(); err != nil {
			log.Printf("Capture ended with error: %v", err)
		}
	}()

	track := motion.NewTrack()
	track.SetSmoothTime(watchSmooth)

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			batch := rec.DrainSamples()
			track.Push(batch...)
			s := track.Stats()
			fmt.Printf("+%-5d samples=%-7d pos=(%.0f,%.0f) path=%.0f peak=%.2f/ms\n",
				len(batch), s.Samples, s.X, s.Y, s.Distance, s.PeakV)
		}
	}
}
