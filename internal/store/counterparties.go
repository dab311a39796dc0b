package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dvloznov/coindesk/internal/domain"
)

// GetOrCreateCounterparty returns the counterparty with the given INN,
// inserting it first if unseen. An existing row wins over the incoming data,
// so the first stored name sticks.
func (s *Store) GetOrCreateCounterparty(ctx context.Context, cp domain.Counterparty) (domain.Counterparty, error) {
	name := cp.Name
	if name == "" {
		name = domain.UnknownCounterpartyName
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO counterparties (name, inn, bic) VALUES (?, ?, ?)
		ON CONFLICT (inn) DO NOTHING`,
		name, cp.INN, cp.BIC,
	)
	if err != nil {
		return domain.Counterparty{}, fmt.Errorf("GetOrCreateCounterparty: inserting %s: %w", cp.INN, err)
	}

	stored, err := s.CounterpartyByINN(ctx, cp.INN)
	if err != nil {
		return domain.Counterparty{}, fmt.Errorf("GetOrCreateCounterparty: reading back %s: %w", cp.INN, err)
	}
	return stored, nil
}

// CounterpartyByINN looks a counterparty up by its tax number.
func (s *Store) CounterpartyByINN(ctx context.Context, inn string) (domain.Counterparty, error) {
	return s.counterpartyWhere(ctx, `inn = ?`, inn)
}

// CounterpartyByID looks a counterparty up by row id.
func (s *Store) CounterpartyByID(ctx context.Context, id int64) (domain.Counterparty, error) {
	return s.counterpartyWhere(ctx, `id = ?`, id)
}

func (s *Store) counterpartyWhere(ctx context.Context, where string, arg any) (domain.Counterparty, error) {
	var cp domain.Counterparty
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, inn, bic FROM counterparties WHERE `+where, arg,
	).Scan(&cp.ID, &cp.Name, &cp.INN, &cp.BIC)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Counterparty{}, ErrNotFound
	}
	if err != nil {
		return domain.Counterparty{}, fmt.Errorf("counterpartyWhere: querying: %w", err)
	}
	return cp, nil
}
