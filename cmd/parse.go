package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/neurosphere/internal/progress"
	"github.com/ziadkadry99/neurosphere/internal/telemetry"
	"github.com/ziadkadry99/neurosphere/internal/walker"
)

var (
	parseSchemeFlag string
	parseJSON       bool
	parseSkipped    bool
	parseProgress   bool
	parseInclude    []string
)

var parseCmd = &cobra.Command{
	Use:   "parse [file...]",
	Short: "Parse telemetry files and summarize them",
	Long: `Parses one or more telemetry files and prints, per file, the number of
devices, active devices, records and skipped lines. Directory arguments are
searched for files matching --include; files with identical content are
parsed once. Without arguments the configured telemetry file is parsed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		scheme, err := parseScheme(parseSchemeFlag)
		if err != nil {
			return err
		}

		files := args
		if len(files) == 0 {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if scheme == telemetry.SchemePhased {
				files = []string{cfg.PhasePath()}
			} else {
				files = []string{cfg.TelemetryPath()}
			}
		}

		files, err = expandArgs(files)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no telemetry files found")
		}

		var reporter progress.Reporter
		if parseProgress && len(files) > 1 {
			reporter = progress.NewReporter()
			reporter.Start(len(files))
		}

		snaps := make([]*telemetry.Snapshot, 0, len(files))
		for i, path := range files {
			snap, err := telemetry.ParseFile(path, scheme)
			if err != nil {
				if reporter != nil {
					reporter.Finish()
				}
				return err
			}
			logger.Debug("parsed telemetry",
				zap.String("path", path),
				zap.Int("devices", len(snap.Devices)),
				zap.Int("skipped", len(snap.Report.Skipped)),
			)
			snaps = append(snaps, snap)
			if reporter != nil {
				reporter.Update(i+1, filepath.Base(path))
			}
		}
		if reporter != nil {
			reporter.Finish()
		}

		out := cmd.OutOrStdout()
		if parseJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(snaps)
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "FILE\tDEVICES\tACTIVE\tRECORDS\tSKIPPED")
		for _, s := range snaps {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n",
				s.Source, len(s.Devices), s.ActiveDevices(), s.Report.Records, len(s.Report.Skipped))
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		if parseSkipped {
			for _, s := range snaps {
				for _, sk := range s.Report.Skipped {
					fmt.Fprintf(out, "%s:%d: %s %s\n", s.Source, sk.Line, sk.Reason, sk.Detail)
				}
			}
		}
		return nil
	},
}

// expandArgs replaces directory arguments with the telemetry files below them.
func expandArgs(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		fi, err := os.Stat(arg)
		if err != nil || !fi.IsDir() {
			out = append(out, arg)
			continue
		}
		found, err := walker.Walk(walker.WalkerConfig{RootDir: arg, Include: parseInclude})
		if err != nil {
			return nil, err
		}
		unique := walker.Unique(found)
		if len(unique) < len(found) {
			logger.Debug("skipping duplicate telemetry files", zap.String("dir", arg), zap.Int("duplicates", len(found)-len(unique)))
		}
		for _, f := range unique {
			out = append(out, f.Path)
		}
	}
	return out, nil
}

func init() {
	parseCmd.Flags().StringVar(&parseSchemeFlag, "scheme", string(telemetry.SchemeBasic), "Line layout: basic or phased")
	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "Print the parsed snapshots as JSON")
	parseCmd.Flags().BoolVar(&parseSkipped, "skipped", false, "List skipped lines and the reason")
	parseCmd.Flags().BoolVar(&parseProgress, "progress", true, "Show progress when parsing several files")
	parseCmd.Flags().StringSliceVar(&parseInclude, "include", walker.DefaultInclude, "Glob patterns for files inside directory arguments")
	rootCmd.AddCommand(parseCmd)
}
