package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage cached credentials",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove cached credentials for the profile",
	Long: `Removes the profile's cached credentials so the next invocation runs a
full authentication. On the system keyring backend the entry is overwritten
with a cleared marker rather than deleted, which preserves the keychain
access grant.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newProvider()
		if err != nil {
			return err
		}
		if err := p.ClearCache(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "Cached credentials cleared")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	RootCmd.AddCommand(cacheCmd)
}
