package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/phinze/rawdelta/internal/config"
	"github.com/phinze/rawdelta/internal/rawinput"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check config, secrets, and raw input availability",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	fmt.Println("=== rawdelta Status ===")
	fmt.Println()

	allOK := true

	// Config file
	configPath := config.DefaultConfigPath()
	fmt.Printf("Config file: %s\n", configPath)
	if _, err := os.Stat(configPath); err == nil {
		fmt.Println("  Status: found")
	} else {
		fmt.Println("  Status: not found (using defaults)")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("  Load error: %v\n", err)
		fmt.Println()
		fmt.Println("Some checks failed. Run 'rawdelta setup' to configure.")
		return nil
	}
	fmt.Println()

	fmt.Println("Capture:")
	fmt.Printf("  Backend: %s\n", cfg.Capture.Backend)
	fmt.Printf("  Buffer: %d events\n", cfg.Capture.Buffer)
	fmt.Println()

	fmt.Println("Command API:")
	fmt.Printf("  Address: %s\n", cfg.Server.Addr)
	if _, err := config.GetKeychainSecret(config.KeyAPIToken); err == nil {
		fmt.Println("  Token (Keychain): set")
	} else if cfg.Server.Token != "" {
		fmt.Println("  Token (env): set")
	} else {
		fmt.Println("  Token: not set (API is unauthenticated)")
	}
	fmt.Println()

	fmt.Println("Export:")
	if cfg.Export.Database != "" {
		fmt.Printf("  Database: %s\n", cfg.Export.Database)
	} else {
		fmt.Printf("  Database: NOT SET (record uses %s)\n", config.DefaultDatabasePath())
	}
	fmt.Println()

	// Raw input probe: open and immediately tear down a capture window.
	fmt.Println("Raw input:")
	m, err := rawinput.Start(rawinput.Native(), rawinput.WithLogger(log.New(io.Discard, "", 0)))
	if err != nil {
		fmt.Printf("  Mouse: UNAVAILABLE (%v)\n", err)
		allOK = false
	} else {
		fmt.Println("  Mouse: registered")
		if err := m.Stop(); err != nil {
			fmt.Printf("  Teardown: %v\n", err)
			allOK = false
		}
	}
	fmt.Println()

	if allOK {
		fmt.Println("All checks passed.")
	} else {
		fmt.Println("Some checks failed. Use --emulate on hosts without raw input.")
	}

	return nil
}
