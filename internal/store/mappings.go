package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dvloznov/coindesk/internal/domain"
)

// MappingByINN returns the category mapping pinned to a counterparty's INN,
// or ErrNotFound when the counterparty has none.
func (s *Store) MappingByINN(ctx context.Context, inn string) (domain.CategoryMapping, error) {
	var m domain.CategoryMapping
	err := s.db.QueryRowContext(ctx,
		`SELECT id, inn, category_id FROM category_mappings WHERE inn = ?`, inn,
	).Scan(&m.ID, &m.INN, &m.CategoryID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CategoryMapping{}, ErrNotFound
	}
	if err != nil {
		return domain.CategoryMapping{}, fmt.Errorf("MappingByINN: querying %s: %w", inn, err)
	}
	return m, nil
}

// UpsertMapping pins a counterparty INN to a category, replacing any
// previous pin.
func (s *Store) UpsertMapping(ctx context.Context, inn string, categoryID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO category_mappings (inn, category_id) VALUES (?, ?)
		ON CONFLICT (inn) DO UPDATE SET category_id = excluded.category_id`,
		inn, categoryID,
	)
	if err != nil {
		return fmt.Errorf("UpsertMapping: upserting %s: %w", inn, err)
	}
	return nil
}
