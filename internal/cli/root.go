package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tripload",
	Short: "Chunked loader for NYC taxi trip records",
	Long: `tripload streams a compressed trip-record CSV file into a database table.

The source is read in fixed-size row chunks. The first chunk defines the
table, which replaces any table of the same name; every chunk is then
appended in source order over a single connection.

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration
  11 - Database connection failed
  12 - Source could not be opened or decompressed
  13 - A value does not match its column type
  14 - Table creation or insert failed
  15 - Source contains no data rows`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo()
		return nil
	}
	return rootCmd.Execute()
}

func init() {
	// -h is the PostgreSQL host shorthand, so help is long-form only.
	rootCmd.PersistentFlags().Bool("help", false, "Help for tripload")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for all commands")
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}
