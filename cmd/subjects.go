package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lewa0/lewa/internal/catalog"
)

var subjectsCmd = &cobra.Command{
	Use:   "subjects",
	Short: "List available subjects",
	Run: func(cmd *cobra.Command, args []string) {
		for _, s := range catalog.Subjects() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %-22s %s\n", s.Icon, s.ID, s.Name)
		}
	},
}

func init() {
	rootCmd.AddCommand(subjectsCmd)
}
