package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lewa0/lewa/internal/catalog"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List available augmentation tools",
	Run: func(cmd *cobra.Command, args []string) {
		for _, t := range catalog.Tools() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-12s %-18s %s\n", t.ID, t.Name, t.Description)
		}
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}
