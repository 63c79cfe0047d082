package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "horizons",
	Short: "Fetch small-body ephemeris tables from the JPL Horizons service",
	Long: `Horizons automates the legacy interactive telnet dialogue of the JPL
Horizons system: it submits heliocentric osculating elements, answers the
prompt sequence, and retrieves the generated ephemeris table over
anonymous FTP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// The command already reported the failure.
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable structured debug logging on stderr")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Print only the artifact path")
}
