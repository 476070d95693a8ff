package main

import (
	"fmt"
	"log"

	"github.com/phinze/rawdelta/internal/config"
	"github.com/phinze/rawdelta/internal/export"
	"github.com/phinze/rawdelta/internal/recorder"
	"github.com/phinze/rawdelta/internal/server"
	"github.com/phinze/rawdelta/internal/store"
	"github.com/spf13/cobra"
)

var (
	serveAddr  string
	serveStart bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local command API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	serveCmd.Flags().BoolVar(&serveStart, "start", false, "start capture immediately instead of waiting for the API")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	ctx, cancel := signalContext()
	defer cancel()

	rec := recorder.New(store.New(), openBackend(ctx, cfg), recorder.WithBuffer(cfg.Capture.Buffer))
	defer func() {
		if err := rec.Stop(); err != nil {
			log.Printf("Capture ended with error: %v", err)
		}
	}()

	var sessions server.Sessions
	if cfg.Export.Database != "" {
		db, err := export.Open(cfg.Export.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		sessions = db
		log.Printf("Exporting sessions to %s", cfg.Export.Database)
	}

	if serveStart {
		if err := rec.StartCapture(); err != nil {
			return fmt.Errorf("starting capture: %w", err)
		}
	}

	h := server.NewHandler(server.Config{Token: cfg.Server.Token, Debug: cfg.Server.Debug}, rec, sessions)
	return server.Serve(ctx, cfg.Server.Addr, h)
}
