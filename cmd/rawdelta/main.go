package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phinze/rawdelta/internal/config"
	"github.com/phinze/rawdelta/internal/rawinput"
	"github.com/phinze/rawdelta/internal/rawinput/emulator"
	"github.com/spf13/cobra"
)

var emulate bool

var rootCmd = &cobra.Command{
	Use:   "rawdelta",
	Short: "Capture raw relative mouse motion as timestamped samples",
	Long: `rawdelta subscribes to the Windows raw input stream and records every
relative mouse motion report, unfiltered and unaccelerated, as a sample
stamped with the time since the session started.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&emulate, "emulate", false, "use the synthetic input backend instead of the OS")
	rootCmd.AddCommand(serveCmd, recordCmd, watchCmd, statusCmd, setupCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			log.Println("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}

// openBackend picks the capture backend from config and the --emulate flag.
// With the emulator a circular motion pattern is generated until ctx ends.
func openBackend(ctx context.Context, cfg *config.Config) rawinput.Backend {
	if !emulate && cfg.Capture.Backend != config.BackendEmulator {
		return rawinput.Native()
	}
	log.Println("Using emulated input")
	emu := emulator.New()
	go emu.Generate(ctx, time.Second/500, 4)
	return emu
}
