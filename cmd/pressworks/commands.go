package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is the release of the pressworks command.
const version = "v0.1.0"

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
	logJSON    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "pressworks",
		Short:         "Find the fewest button presses that configure a machine",
		SilenceUsage:  true,
		Long: `pressworks reads machine descriptions such as

  [.##.] (3) (1,3) (2) (2,3) (0,2) (0,1) {3,5,4,7}

and reports the fewest presses that light the indicator diagram and the
fewest presses that drive the counters to the braced targets, summed over all
machines.`,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.BoolVar(&opts.logJSON, "log-json", false, "write logs as JSON")

	rootCmd.AddCommand(newSolveCmd(opts))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the pressworks version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pressworks %s\n", version)
		},
	}
}
