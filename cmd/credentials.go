package cmd

import (
	"github.com/spf13/cobra"
)

// credentialsCmd is the explicit form of the bare root invocation, for
// configs that prefer `credential_process = ccwb-auth credentials`.
var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Emit AWS credentials in credential_process JSON format",
	RunE: func(cmd *cobra.Command, args []string) error {
		return emitCredentials(cmd)
	},
}

func init() {
	RootCmd.AddCommand(credentialsCmd)
}
