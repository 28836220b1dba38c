package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/neurosphere/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize neurosphere configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to locate the telemetry files and the configuration root, and writes neurosphere.yml (or the file named by --config).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
