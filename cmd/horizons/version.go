package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	horizons "github.com/aretw0/horizons"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of horizons",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("horizons version %s\n", strings.TrimSpace(horizons.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
