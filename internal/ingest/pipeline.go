package ingest

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/coindesk/internal/bank"
	"github.com/dvloznov/coindesk/internal/domain"
)

// Step is one stage of a statement line's trip through the pipeline.
type Step interface {
	Execute(ctx context.Context, state *State) error
}

// State carries one statement line through the steps.
type State struct {
	// Account is the monitored account the statement belongs to; BatchID
	// stamps every record of the fetch run. Payload is the raw line.
	Account string
	BatchID string
	Payload bank.Transaction

	// CounterpartyName is pulled out by the parse step. It lands in the
	// counterparties table, not on the transaction row.
	CounterpartyName string

	// Record is built by the parse step and enriched by the ones after it.
	Record *domain.Transaction

	// Duplicate is set by the dedup step and stops the chain.
	Duplicate bool
}

// Summary is the tally of one batch ingestion.
type Summary struct {
	Total      int
	Saved      int
	Duplicates int
	Skipped    int
}

// Ingestor drives statement lines through parse, dedup, counterparty,
// categorize and persist. A line that fails any step is logged and skipped;
// the rest of the batch goes on.
type Ingestor struct {
	repo    RecordStore
	matcher Matcher
	steps   []Step
	log     zerolog.Logger
}

// New wires the pipeline steps around a store and a matcher.
func New(repo RecordStore, matcher Matcher, log zerolog.Logger) *Ingestor {
	log = log.With().Str("component", "ingest").Logger()
	return &Ingestor{
		repo:    repo,
		matcher: matcher,
		steps: []Step{
			&ParseStep{},
			&DedupStep{Repo: repo},
			&CounterpartyStep{Repo: repo},
			&CategorizeStep{Repo: repo, Matcher: matcher, Log: log},
			&PersistStep{Repo: repo},
		},
		log: log,
	}
}

// IngestBatch runs every statement line of one account through the pipeline
// and reports the tally. Duplicates of already-stored transactions are
// counted but not re-saved, so replaying a window is safe. Only context
// cancellation aborts the whole batch.
func (i *Ingestor) IngestBatch(ctx context.Context, account string, payloads []bank.Transaction, batchID string) (Summary, error) {
	sum := Summary{Total: len(payloads)}

	for _, payload := range payloads {
		state := &State{Account: account, BatchID: batchID, Payload: payload}

		if err := i.run(ctx, state); err != nil {
			if ctx.Err() != nil {
				return sum, fmt.Errorf("IngestBatch: %w", ctx.Err())
			}
			i.log.Error().Err(err).
				Str("batch_id", batchID).
				Str("date", payload.DocumentProcessDate).
				Msg("statement line skipped")
			sum.Skipped++
			continue
		}

		if state.Duplicate {
			i.log.Info().
				Str("batch_id", batchID).
				Str("date", payload.DocumentProcessDate).
				Msg("duplicate transaction skipped")
			sum.Duplicates++
			continue
		}
		sum.Saved++
	}

	i.log.Info().
		Str("batch_id", batchID).
		Str("account", account).
		Int("total", sum.Total).
		Int("saved", sum.Saved).
		Int("duplicates", sum.Duplicates).
		Int("skipped", sum.Skipped).
		Msg("batch ingested")
	return sum, nil
}

func (i *Ingestor) run(ctx context.Context, state *State) error {
	for _, step := range i.steps {
		if err := step.Execute(ctx, state); err != nil {
			return err
		}
		if state.Duplicate {
			return nil
		}
	}
	return nil
}
