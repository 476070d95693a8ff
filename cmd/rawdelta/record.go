package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/phinze/rawdelta/internal/config"
	"github.com/phinze/rawdelta/internal/export"
	"github.com/phinze/rawdelta/internal/recorder"
	"github.com/phinze/rawdelta/internal/store"
	"github.com/spf13/cobra"
)

var (
	recordDuration time.Duration
	recordNote     string
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Capture one session and save it to the session database",
	RunE:  runRecord,
}

func init() {
	recordCmd.Flags().DurationVarP(&recordDuration, "duration", "d", 0, "stop after this long (default: until interrupted)")
	recordCmd.Flags().StringVar(&recordNote, "note", "", "note stored with the session")
}

func runRecord(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	dbPath := cfg.Export.Database
	if dbPath == "" {
		dbPath = config.DefaultDatabasePath()
	}
	db, err := export.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := signalContext()
	defer cancel()
	if recordDuration > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, recordDuration)
		defer stop()
	}

	st := store.New()
	rec := recorder.New(st, openBackend(ctx, cfg), recorder.WithBuffer(cfg.Capture.Buffer))
	if err := rec.StartCapture(); err != nil {
		return fmt.Errorf("starting capture: %w", err)
	}
	log.Println("Recording, press Ctrl+C to finish")

	<-ctx.Done()
	if err := rec.Stop(); err != nil {
		log.Printf("Capture ended with error: %v", err)
	}

	samples := rec.DrainSamples()
	s, err := db.Save(context.Background(), st.StartTime(), samples, recordNote)
	if err != nil {
		return err
	}
	fmt.Printf("Saved session %s (%d samples) to %s\n", s.ID, s.Count, dbPath)
	return nil
}
