package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/phinze/rawdelta/internal/config"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup: write config and store the API token in the keychain",
	RunE:  runSetup,
}

func runSetup(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(os.Stdin)
	fmt.Println("=== rawdelta Setup ===")
	fmt.Println()

	// Load existing config as defaults
	existing, _ := config.Load()
	if existing == nil {
		existing = &config.Config{
			Capture: config.CaptureConfig{Backend: config.BackendNative, Buffer: config.DefaultBuffer},
			Server:  config.ServerConfig{Addr: config.DefaultAddr},
		}
	}

	cfg := &config.Config{}

	fmt.Println("-- Capture --")
	cfg.Capture.Backend = prompt(reader, "Backend (native/emulator)", existing.Capture.Backend)
	buffer := prompt(reader, "Event buffer size", strconv.Itoa(existing.Capture.Buffer))
	n, err := strconv.Atoi(buffer)
	if err != nil {
		return fmt.Errorf("buffer size %q: %w", buffer, err)
	}
	cfg.Capture.Buffer = n
	fmt.Println()

	fmt.Println("-- Command API --")
	cfg.Server.Addr = prompt(reader, "Listen address", existing.Server.Addr)

	token := promptSecret(reader, "API token", existing.Server.Token != "")
	if token != "" {
		if err := config.SetKeychainSecret(config.KeyAPIToken, token); err != nil {
			return fmt.Errorf("storing API token in keychain: %w", err)
		}
		fmt.Println("  -> Stored in keychain")
	} else {
		fmt.Println("  -> Kept existing")
	}
	fmt.Println()

	fmt.Println("-- Export --")
	cfg.Export.Database = prompt(reader, "Session database (empty disables API export)", existing.Export.Database)
	fmt.Println()

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.WriteConfigFile(cfg); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	fmt.Printf("Config written to %s\n", config.DefaultConfigPath())
	fmt.Println("Setup complete!")
	return nil
}

// prompt asks for a value with an optional default.
func prompt(reader *bufio.Reader, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("  %s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("  %s: ", label)
	}
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return defaultVal
	}
	return line
}

// promptSecret asks for a secret value. If one already exists, allows keeping it.
func promptSecret(reader *bufio.Reader, label string, hasExisting bool) string {
	if hasExisting {
		fmt.Printf("  %s [press Enter to keep existing]: ", label)
	} else {
		fmt.Printf("  %s: ", label)
	}
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}
