package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// monitoringTokenCmd prints the OIDC ID token for telemetry consumers that
// attribute usage to the signed-in identity. Reuses the cached token while it
// has enough validity left and re-authenticates otherwise.
var monitoringTokenCmd = &cobra.Command{
	Use:   "monitoring-token",
	Short: "Print the OIDC ID token for usage monitoring",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newProvider()
		if err != nil {
			return err
		}
		token, err := p.MonitoringToken(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(monitoringTokenCmd)
}
