package ingest

import (
	"context"
	"fmt"
)

// RecategorizeSummary is the tally of one recategorization sweep.
type RecategorizeSummary struct {
	Examined int
	Updated  int
}

// Recategorize re-runs the categorize step over stored debit transactions
// that have no category yet, picking up keyword table and mapping changes
// made after ingestion. Lines that still match nothing stay untouched;
// lines the matcher fails on are logged and skipped.
func (i *Ingestor) Recategorize(ctx context.Context) (RecategorizeSummary, error) {
	txs, err := i.repo.ListUncategorizedDebits(ctx)
	if err != nil {
		return RecategorizeSummary{}, fmt.Errorf("Recategorize: listing uncategorized debits: %w", err)
	}

	step := &CategorizeStep{Repo: i.repo, Matcher: i.matcher, Log: i.log}
	sum := RecategorizeSummary{Examined: len(txs)}

	for idx := range txs {
		tx := &txs[idx]

		if err := step.Execute(ctx, &State{Record: tx}); err != nil {
			if ctx.Err() != nil {
				return sum, fmt.Errorf("Recategorize: %w", ctx.Err())
			}
			i.log.Error().Err(err).
				Int64("transaction_id", tx.ID).
				Msg("recategorization skipped")
			continue
		}
		if tx.CategoryID == nil {
			continue
		}

		if err := i.repo.UpdateTransactionCategory(ctx, tx.ID, *tx.CategoryID, tx.CategorySource); err != nil {
			return sum, fmt.Errorf("Recategorize: updating transaction %d: %w", tx.ID, err)
		}
		sum.Updated++
	}

	i.log.Info().
		Int("examined", sum.Examined).
		Int("updated", sum.Updated).
		Msg("recategorization finished")
	return sum, nil
}
