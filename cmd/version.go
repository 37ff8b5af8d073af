package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the ccwb-auth version",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(cmd)
	},
}

func printVersion(cmd *cobra.Command) {
	fmt.Fprintf(cmd.OutOrStdout(), "ccwb-auth %s on %s/%s\n",
		version.Version, runtime.GOOS, runtime.GOARCH)
}

// ExecuteVersion handles the bare --version flag from main without going
// through full command dispatch.
func ExecuteVersion() error {
	printVersion(RootCmd)
	return nil
}

func init() {
	RootCmd.AddCommand(versionCmd)
}
