// Package cmd defines the lewa command-line interface.
package cmd

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "lewa",
	Short: "LEWA tutoring client",
	Long: `LEWA is a conversational tutoring client for GCE exam preparation.

Select a subject and proficiency mode (OL or AL), then ask questions in an
interactive chat. Optional tools enrich questions with web search results
or GCE board announcements before they reach the tutor.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
