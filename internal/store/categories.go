package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dvloznov/coindesk/internal/domain"
)

// GetOrCreateCategory returns the category with the given name, creating it
// if missing. The revenue flag only applies on creation; it never flips an
// existing category.
func (s *Store) GetOrCreateCategory(ctx context.Context, name string, isRevenue bool) (domain.Category, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (name, is_revenue) VALUES (?, ?)
		ON CONFLICT (name) DO NOTHING`,
		name, isRevenue,
	)
	if err != nil {
		return domain.Category{}, fmt.Errorf("GetOrCreateCategory: inserting %q: %w", name, err)
	}
	return s.CategoryByName(ctx, name)
}

// CategoryByName looks a category up by its unique name.
func (s *Store) CategoryByName(ctx context.Context, name string) (domain.Category, error) {
	var c domain.Category
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, is_revenue FROM categories WHERE name = ?`, name,
	).Scan(&c.ID, &c.Name, &c.IsRevenue)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Category{}, ErrNotFound
	}
	if err != nil {
		return domain.Category{}, fmt.Errorf("CategoryByName: querying %q: %w", name, err)
	}
	return c, nil
}

// CategoryByID looks a category up by row id.
func (s *Store) CategoryByID(ctx context.Context, id int64) (domain.Category, error) {
	var c domain.Category
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, is_revenue FROM categories WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.IsRevenue)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Category{}, ErrNotFound
	}
	if err != nil {
		return domain.Category{}, fmt.Errorf("CategoryByID: querying %d: %w", id, err)
	}
	return c, nil
}
