package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/coindesk/internal/domain"
	"github.com/dvloznov/coindesk/internal/store"
)

// wireDateFormat is how the bank serializes documentProcessDate.
const wireDateFormat = "2006-01-02"

// ParseStep normalizes one wire payload into a transaction record.
type ParseStep struct{}

func (s *ParseStep) Execute(ctx context.Context, state *State) error {
	p := state.Payload

	occurredAt, err := time.Parse(wireDateFormat, p.DocumentProcessDate)
	if err != nil {
		return fmt.Errorf("parse: documentProcessDate %q: %w", p.DocumentProcessDate, err)
	}

	direction, err := domain.ParseDirection(p.CreditDebitIndicator)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	party, agent, account := p.CounterpartySide()

	state.CounterpartyName = strings.TrimSpace(party.Name)
	state.Record = &domain.Transaction{
		OccurredAt:              occurredAt,
		Account:                 state.Account,
		CounterpartyINN:         strings.TrimSpace(party.INN),
		CounterpartyBIC:         strings.TrimSpace(agent.Identification),
		CounterpartyCorrAccount: strings.TrimSpace(agent.AccountIdentification),
		CounterpartyBankName:    strings.TrimSpace(agent.Name),
		CounterpartyAccount:     strings.TrimSpace(account.Identification),
		Amount:                  p.Amount.Amount,
		Direction:               direction,
		Purpose:                 strings.TrimSpace(p.Description),
		CategorySource:          domain.SourceNone,
		BatchID:                 state.BatchID,
	}
	return nil
}

// DedupStep checks the natural key against the stored transactions and
// flags replays. The key works without an INN or BIC; empty strings are
// part of it.
type DedupStep struct {
	Repo RecordStore
}

func (s *DedupStep) Execute(ctx context.Context, state *State) error {
	rec := state.Record

	exists, err := s.Repo.TransactionExists(ctx, rec.OccurredAt, rec.CounterpartyINN, rec.CounterpartyBIC, rec.Purpose)
	if err != nil {
		return fmt.Errorf("dedup: %w", err)
	}
	state.Duplicate = exists
	return nil
}

// CounterpartyStep links the record to a counterparty row when the payload
// carries an INN. Without one the record stays unlinked; its inline
// counterparty fields still hold whatever the bank sent.
type CounterpartyStep struct {
	Repo RecordStore
}

func (s *CounterpartyStep) Execute(ctx context.Context, state *State) error {
	rec := state.Record
	if rec.CounterpartyINN == "" {
		return nil
	}

	cp, err := s.Repo.GetOrCreateCounterparty(ctx, domain.Counterparty{
		Name: state.CounterpartyName,
		INN:  rec.CounterpartyINN,
		BIC:  rec.CounterpartyBIC,
	})
	if err != nil {
		return fmt.Errorf("counterparty: %w", err)
	}
	rec.CounterpartyID = &cp.ID
	return nil
}

// CategorizeStep assigns the record's category. Credits always land in the
// fixed revenue category. Debits go through the matcher first and fall back
// to the counterparty's INN mapping; when neither fires the record keeps no
// category. Matcher failures propagate, so a dead embedding provider skips
// the line instead of filing it wrong.
type CategorizeStep struct {
	Repo    RecordStore
	Matcher Matcher
	Log     zerolog.Logger
}

func (s *CategorizeStep) Execute(ctx context.Context, state *State) error {
	rec := state.Record

	if rec.Direction == domain.DirectionCredit {
		cat, err := s.Repo.GetOrCreateCategory(ctx, domain.RevenueCategoryName, true)
		if err != nil {
			return fmt.Errorf("categorize: revenue category: %w", err)
		}
		rec.CategoryID = &cat.ID
		rec.CategorySource = domain.SourceDefault
		return nil
	}

	m, err := s.Matcher.Match(ctx, rec.Purpose)
	if err != nil {
		return fmt.Errorf("categorize: matching purpose: %w", err)
	}
	if m != nil {
		cat, err := s.Repo.GetOrCreateCategory(ctx, m.Category, false)
		if err != nil {
			return fmt.Errorf("categorize: category %q: %w", m.Category, err)
		}
		rec.CategoryID = &cat.ID
		rec.CategorySource = domain.SourceNLP
		return nil
	}

	if rec.CounterpartyINN != "" {
		mapping, err := s.Repo.MappingByINN(ctx, rec.CounterpartyINN)
		switch {
		case errors.Is(err, store.ErrNotFound):
			// No pin for this counterparty; the record stays uncategorized.
		case err != nil:
			return fmt.Errorf("categorize: mapping for %s: %w", rec.CounterpartyINN, err)
		default:
			rec.CategoryID = &mapping.CategoryID
			rec.CategorySource = domain.SourceMapping
			s.Log.Info().
				Str("inn", rec.CounterpartyINN).
				Int64("category_id", mapping.CategoryID).
				Msg("category pinned via counterparty mapping")
			return nil
		}
	}

	rec.CategorySource = domain.SourceNone
	return nil
}

// PersistStep writes the finished record.
type PersistStep struct {
	Repo RecordStore
}

func (s *PersistStep) Execute(ctx context.Context, state *State) error {
	id, err := s.Repo.InsertTransaction(ctx, state.Record)
	if err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	state.Record.ID = id
	return nil
}
