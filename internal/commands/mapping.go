package commands

import (
	"context"
	"fmt"
	"regexp"

	"github.com/spf13/cobra"
)

// innRe accepts the two legal INN lengths: 10 digits for organizations,
// 12 for sole proprietors.
var innRe = regexp.MustCompile(`^\d{10}(\d{2})?$`)

func newMapCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "map <inn> <category>",
		Short: "Pin a counterparty INN to a category used when matching fails",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMap(cmd.Context(), args[0], args[1])
		},
	}
}

func runMap(ctx context.Context, inn, categoryName string) error {
	if !innRe.MatchString(inn) {
		return fmt.Errorf("invalid INN %q: want 10 or 12 digits", inn)
	}
	if categoryName == "" {
		return fmt.Errorf("category name is empty")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cat, err := a.st.GetOrCreateCategory(ctx, categoryName, false)
	if err != nil {
		return err
	}
	if err := a.st.UpsertMapping(ctx, inn, cat.ID); err != nil {
		return err
	}

	fmt.Printf("Pinned INN %s to category %q\n", inn, cat.Name)
	return nil
}
