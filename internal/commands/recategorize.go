package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dvloznov/coindesk/internal/ingest"
)

func newRecategorizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "recategorize",
		Short: "Re-run the category matcher over stored uncategorized debits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecategorize(cmd.Context())
		},
	}
}

func runRecategorize(ctx context.Context) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	matcher, cleanup, err := a.newMatcher(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	sum, err := ingest.New(a.st, matcher, a.log).Recategorize(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Examined %d uncategorized debits, updated %d\n", sum.Examined, sum.Updated)
	return nil
}
