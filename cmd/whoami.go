package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// whoamiCmd reports the cached identity without triggering authentication.
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the cached identity and credential expiry",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newProvider()
		if err != nil {
			return err
		}
		identity, err := p.Whoami()
		if err != nil {
			return err
		}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(identity)
	},
}

func init() {
	RootCmd.AddCommand(whoamiCmd)
}
