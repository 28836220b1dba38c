package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// telemetryCandidates are file names looked for in the working directory
// and the data directory to prefill the wizard.
var telemetryCandidates = []string{"time_sliced_data.txt", "telemetry.txt", "data.txt"}

// detectTelemetry returns the directory and name of the first telemetry
// file found near the working directory.
func detectTelemetry() (dir, name string) {
	for _, d := range []string{".", "data"} {
		for _, c := range telemetryCandidates {
			if _, err := os.Stat(filepath.Join(d, c)); err == nil {
				return d, c
			}
		}
	}
	return "", ""
}

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to neurosphere! Let's configure the dashboard.")
	fmt.Println()

	cfg := DefaultConfig()
	if dir, name := detectTelemetry(); name != "" {
		fmt.Printf("Found telemetry file: %s\n\n", filepath.Join(dir, name))
		cfg.DataDir, cfg.TelemetryFile = dir, name
	}

	// 1. Data directory.
	dataDir, err := (&promptui.Prompt{Label: "Data directory", Default: cfg.DataDir}).Run()
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	cfg.DataDir = dataDir

	// 2. Telemetry files.
	telemetry, err := (&promptui.Prompt{Label: "Telemetry file (basic layout)", Default: cfg.TelemetryFile}).Run()
	if err != nil {
		return nil, fmt.Errorf("telemetry file: %w", err)
	}
	cfg.TelemetryFile = telemetry

	phase, err := (&promptui.Prompt{Label: "Phase file (per-slice phases)", Default: cfg.PhaseFile}).Run()
	if err != nil {
		return nil, fmt.Errorf("phase file: %w", err)
	}
	cfg.PhaseFile = phase

	// 3. Config root and patterns.
	root, err := (&promptui.Prompt{Label: "Directory for saved dashboard configurations", Default: cfg.ConfigRoot}).Run()
	if err != nil {
		return nil, fmt.Errorf("config root: %w", err)
	}
	cfg.ConfigRoot = root

	patterns, err := (&promptui.Prompt{
		Label:   "Allowed config patterns (comma-separated globs)",
		Default: strings.Join(cfg.ConfigPatterns, ","),
	}).Run()
	if err != nil {
		return nil, fmt.Errorf("config patterns: %w", err)
	}
	if p := splitAndTrim(patterns); len(p) > 0 {
		cfg.ConfigPatterns = p
	}

	// 4. Port.
	portStr, err := (&promptui.Prompt{
		Label:   "HTTP port",
		Default: strconv.Itoa(cfg.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 65535 {
				return fmt.Errorf("enter a port between 1 and 65535")
			}
			return nil
		},
	}).Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Port, _ = strconv.Atoi(portStr)

	// 5. Scene slice.
	slicePrompt := promptui.Select{
		Label: "Time slice driving the live scene",
		Items: []string{"0", "1", "2", "3", "4"},
	}
	cfg.Scene.Slice, _, err = slicePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("scene slice: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if token := strings.TrimSpace(part); token != "" {
			result = append(result, token)
		}
	}
	return result
}
