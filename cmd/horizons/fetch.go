package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/horizons/internal/cli"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch OBJECT ELEMENTS [DEST]",
	Short: "Run one complete ephemeris fetch",
	Long: `Fetch conducts the full dialogue for one small body and writes the
resulting table to DEST (default: OBJECT.txt in the working directory).

OBJECT is the free-text body name. ELEMENTS is the osculating-element
specification string, passed to the service verbatim, e.g.:

  horizons fetch "1993 HA2" \
    "EPOCH=2449526.5 EC=.6570 QR=.5559 TP=2449448.8 OM=89.14 W=326.05 IN=4.24" \
    --center @spitzer --start 2004-Jan-1 --stop 2004-Mar-7 --step 1d`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		p := cli.FetchParams{
			Object:   args[0],
			Elements: args[1],
		}
		if len(args) == 3 {
			p.Dest = args[2]
		}
		p.ConfigPath, _ = flags.GetString("config")
		p.Debug, _ = flags.GetBool("debug")
		p.Quiet, _ = flags.GetBool("quiet")
		p.Center, _ = flags.GetString("center")
		p.Start, _ = flags.GetString("start")
		p.Stop, _ = flags.GetString("stop")
		p.Step, _ = flags.GetString("step")
		p.Quantities, _ = flags.GetString("quantities")
		p.Email, _ = flags.GetString("email")
		p.TimeoutSeconds, _ = flags.GetInt("timeout")

		return cli.RunFetch(cmd.Context(), p, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().String("center", "", "Coordinate center, e.g. @spitzer or 568")
	fetchCmd.Flags().String("start", "", "Start of the time span")
	fetchCmd.Flags().String("stop", "", "End of the time span")
	fetchCmd.Flags().String("step", "", "Output interval, e.g. 1d or 10m")
	fetchCmd.Flags().String("quantities", "", "Comma-separated table quantity codes")
	fetchCmd.Flags().String("email", "", "Contact address for the anonymous transfer login")
	fetchCmd.Flags().Int("timeout", 0, "Per-prompt wait timeout in seconds (default from configuration)")
}
