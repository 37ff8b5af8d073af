// Package cmd wires the ccwb-auth CLI. The root command is the
// credential_process entry point: everything written to stdout must be the
// credential JSON document, so all diagnostics go to stderr.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/config"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/provider"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/schema"
)

var profileFlag string

// RootCmd represents the base command when called without any subcommands.
// Running it bare emits credential_process JSON, which is what the AWS CLI
// invokes.
var RootCmd = &cobra.Command{
	Use:   "ccwb-auth",
	Short: "OIDC credential provider for Amazon Bedrock access",
	Long: `ccwb-auth authenticates against your identity provider and emits temporary
AWS credentials in the credential_process JSON format. Configure it in
~/.aws/config:

    [profile ClaudeCode]
    credential_process = ccwb-auth`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Usage output would corrupt the credential_process stream, and
		// errors are printed once by main with the proper exit code.
		isHelpRequested := cmd.Name() == "help" || cmd.Flags().Changed("help")
		cmd.SilenceUsage = !isHelpRequested
		cmd.SilenceErrors = !isHelpRequested
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return emitCredentials(cmd)
	},
}

// Execute adds all child commands to the root command and runs it. Called by
// main.main().
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&profileFlag, "profile", "p", "",
		"Configuration profile to use (defaults to the config file's default profile)")
}

// loadProfile resolves the --profile flag against the config file.
func loadProfile() (*schema.Profile, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return config.GetProfile(cfg, profileFlag)
}

// newProvider builds the credential provider for the selected profile.
func newProvider() (*provider.Provider, error) {
	profile, err := loadProfile()
	if err != nil {
		return nil, err
	}
	return provider.New(profile)
}

func emitCredentials(cmd *cobra.Command) error {
	p, err := newProvider()
	if err != nil {
		return err
	}
	creds, err := p.Credentials(cmd.Context())
	if err != nil {
		return err
	}
	return provider.EmitProcess(cmd.OutOrStdout(), creds)
}
