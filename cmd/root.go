// Package cmd contains the brainstorm CLI commands.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "brainstorm",
	Short: "AI brainstorming partner for marketing campaigns",
	Long: `Brainstorm is a conversational assistant for developing marketing
campaign ideas. Running it without arguments starts an interactive chat;
"serve" exposes the same conversations over an HTTP API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd.Context())
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
