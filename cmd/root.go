package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	flags := &checkFlags{}

	cmd := &cobra.Command{
		Use:   "go-ddcheck",
		Short: "Find the files of an ISO9660 image that sit on bad sectors of a ddrescue rescue",
		Long: `go-ddcheck reads the mapfile GNU ddrescue wrote while rescuing an optical
disc and reports every file and directory of the rescued ISO9660 image whose
data overlaps a range that was not recovered.

Examples:
  # Check disk.iso against disk.map
  go-ddcheck --prefix disk

  # Name the image and mapfile separately; compressed mapfiles are accepted
  go-ddcheck --iso rescued.bin --map rescue.map.gz

Further settings (output format, logging, Joliet preference) are read from
ddcheck-config.yaml or DDCHECK_* environment variables.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.prefix, "prefix", "p", "", "path prefix of <prefix>.iso and <prefix>.map")
	cmd.Flags().StringVarP(&flags.iso, "iso", "i", "", "path of the ISO image")
	cmd.Flags().StringVarP(&flags.mapfile, "map", "m", "", "path of the ddrescue mapfile")

	cmd.MarkFlagsMutuallyExclusive("prefix", "iso")
	cmd.MarkFlagsMutuallyExclusive("prefix", "map")
	cmd.MarkFlagsOneRequired("prefix", "iso")
	cmd.MarkFlagsOneRequired("prefix", "map")

	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
