package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lewa0/lewa/internal/app"
	"github.com/lewa0/lewa/internal/catalog"
)

var statusAll bool

var statusCmd = &cobra.Command{
	Use:   "status [subject-id]",
	Short: "Check backend health",
	Long: `Check backend health.

With no arguments the service health endpoint is probed. With a subject id
(or --all) the per-subject tutoring endpoints are probed too.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusAll, "all", false, "probe every subject endpoint")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
	defer cancel()

	a, err := app.New(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(ctx) }()

	out := cmd.OutOrStdout()

	if err := a.Tutor.Health(ctx); err != nil {
		fmt.Fprintf(out, "backend %-22s DOWN (%v)\n", a.Config.Backend.URL, err)
		return err
	}
	fmt.Fprintf(out, "backend %-22s OK\n", a.Config.Backend.URL)

	var subjects []catalog.Subject
	switch {
	case len(args) == 1:
		subj, ok := catalog.SubjectByID(args[0])
		if !ok {
			return fmt.Errorf("unknown subject %q", args[0])
		}
		subjects = []catalog.Subject{subj}
	case statusAll:
		subjects = catalog.Subjects()
	}

	var failed int
	for _, s := range subjects {
		if err := a.Tutor.SubjectHealth(ctx, s.ID); err != nil {
			fmt.Fprintf(out, "subject %-22s DOWN (%v)\n", s.ID, err)
			failed++
			continue
		}
		fmt.Fprintf(out, "subject %-22s OK\n", s.ID)
	}
	if failed > 0 {
		return fmt.Errorf("%d subject endpoint(s) down", failed)
	}
	return nil
}
