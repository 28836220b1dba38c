package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/neurosphere/internal/telemetry"
)

var pairsSlice int

var pairsCmd = &cobra.Command{
	Use:   "pairs [file]",
	Short: "Print synchronization statistics for consecutive device pairs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if pairsSlice < 0 || pairsSlice >= telemetry.SliceCount {
			return fmt.Errorf("--slice must be between 0 and %d", telemetry.SliceCount-1)
		}

		var path string
		if len(args) == 1 {
			path = args[0]
		} else {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path = cfg.TelemetryPath()
		}

		snap, err := telemetry.ParseFile(path, telemetry.SchemeBasic)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PAIR\tAVG A\tAVG B\tAVERAGE\tDIFF\tSYNC")
		for _, p := range telemetry.Pairs(snap.Devices, pairsSlice) {
			if p.Second == nil {
				fmt.Fprintf(tw, "%d/-\t%.3f\t-\t%.3f\t-\t%s\n", p.First.ID, p.FirstAverage, p.Average, p.Sync)
				continue
			}
			fmt.Fprintf(tw, "%d/%d\t%.3f\t%.3f\t%.3f\t%.3f\t%s\n",
				p.First.ID, p.Second.ID, p.FirstAverage, p.SecondAverage, p.Average, p.Difference, p.Sync)
		}
		return tw.Flush()
	},
}

func init() {
	pairsCmd.Flags().IntVar(&pairsSlice, "slice", 0, "Time slice (0-4)")
	rootCmd.AddCommand(pairsCmd)
}
