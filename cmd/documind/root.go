package main

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	cfgFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "documind",
		Short: "PDF tools and document chat with daily usage limits",
		Long: `documind serves PDF merge, split and compress tools and an AI
document chat. Every action counts against a daily quota that resets at
UTC midnight: guests share one pool, signed-in users get a general pool
and a separate AI chat pool.

Quick start:
  documind serve              # Start the HTTP server
  documind validate           # Check configuration
  documind usage --user u_1   # Show today's usage for a user`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "documind.yaml", "config file path")

	cmd.AddCommand(
		newServeCmd(opts),
		newValidateCmd(opts),
		newUsageCmd(opts),
		newVersionCmd(),
	)
	return cmd
}
