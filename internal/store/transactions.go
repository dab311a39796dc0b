package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/coindesk/internal/domain"
)

const transactionColumns = `id, occurred_at, account, counterparty_id, counterparty_inn,
	counterparty_bic, counterparty_corr_account, counterparty_bank_name, counterparty_account,
	amount, direction, purpose, category_id, category_source, batch_id, notified, exported,
	month, year, created_at`

// InsertTransaction persists one transaction, stamping the derived month and
// year from its date. Returns the new row id.
func (s *Store) InsertTransaction(ctx context.Context, tx *domain.Transaction) (int64, error) {
	month, year := tx.Period()

	var counterpartyID, categoryID any
	if tx.CounterpartyID != nil {
		counterpartyID = *tx.CounterpartyID
	}
	if tx.CategoryID != nil {
		categoryID = *tx.CategoryID
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions
			(occurred_at, account, counterparty_id, counterparty_inn, counterparty_bic,
			 counterparty_corr_account, counterparty_bank_name, counterparty_account,
			 amount, direction, purpose, category_id, category_source, batch_id, month, year)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.OccurredAt.Format(dateFormat),
		tx.Account,
		counterpartyID,
		tx.CounterpartyINN,
		tx.CounterpartyBIC,
		tx.CounterpartyCorrAccount,
		tx.CounterpartyBankName,
		tx.CounterpartyAccount,
		tx.Amount.String(),
		string(tx.Direction),
		tx.Purpose,
		categoryID,
		string(tx.CategorySource),
		tx.BatchID,
		month,
		year,
	)
	if err != nil {
		return 0, fmt.Errorf("InsertTransaction: inserting row: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("InsertTransaction: reading insert id: %w", err)
	}
	return id, nil
}

// TransactionExists reports whether a transaction with the same natural key
// (date, counterparty INN, counterparty bank BIC, purpose) is already
// stored. INN and BIC may be empty; the key still holds.
func (s *Store) TransactionExists(ctx context.Context, occurredAt time.Time, inn, bic, purpose string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM transactions
			WHERE occurred_at = ?
			  AND counterparty_inn = ?
			  AND counterparty_bic = ?
			  AND purpose = ?
		)`,
		occurredAt.Format(dateFormat), inn, bic, purpose,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("TransactionExists: querying natural key: %w", err)
	}
	return exists, nil
}

// TransactionsByBatch returns every transaction stamped with the batch id,
// in insertion order.
func (s *Store) TransactionsByBatch(ctx context.Context, batchID string) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE batch_id = ? ORDER BY id`,
		batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("TransactionsByBatch: querying batch %s: %w", batchID, err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// ListUncategorizedDebits returns debit transactions that have no category
// assigned yet, oldest first.
func (s *Store) ListUncategorizedDebits(ctx context.Context) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE category_id IS NULL AND direction = ? ORDER BY id`,
		string(domain.DirectionDebit),
	)
	if err != nil {
		return nil, fmt.Errorf("ListUncategorizedDebits: querying: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// ListUnexported returns transactions not yet marked as exported, oldest first.
func (s *Store) ListUnexported(ctx context.Context) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE exported = 0 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("ListUnexported: querying: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// UpdateTransactionCategory assigns a category and its source to a stored
// transaction.
func (s *Store) UpdateTransactionCategory(ctx context.Context, id, categoryID int64, source domain.CategorySource) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET category_id = ?, category_source = ? WHERE id = ?`,
		categoryID, string(source), id,
	)
	if err != nil {
		return fmt.Errorf("UpdateTransactionCategory: updating row %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateTransactionCategory: reading rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// LatestUnnotifiedBatch returns the most recent batch id that still has
// unnotified transactions, or ErrNotFound when everything is notified.
func (s *Store) LatestUnnotifiedBatch(ctx context.Context) (string, error) {
	var batchID string
	err := s.db.QueryRowContext(ctx, `
		SELECT batch_id FROM transactions
		WHERE notified = 0
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
	).Scan(&batchID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("LatestUnnotifiedBatch: querying: %w", err)
	}
	return batchID, nil
}

// MarkBatchNotified flags every transaction of the batch as notified and
// returns how many rows changed.
func (s *Store) MarkBatchNotified(ctx context.Context, batchID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET notified = 1 WHERE batch_id = ? AND notified = 0`,
		batchID,
	)
	if err != nil {
		return 0, fmt.Errorf("MarkBatchNotified: updating batch %s: %w", batchID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("MarkBatchNotified: reading rows affected: %w", err)
	}
	return n, nil
}

// MarkExported flags the given transactions as exported and returns how many
// rows changed.
func (s *Store) MarkExported(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?, ", len(ids)-1) + "?"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET exported = 1 WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("MarkExported: updating rows: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("MarkExported: reading rows affected: %w", err)
	}
	return n, nil
}

func collectTransactions(rows *sql.Rows) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("collectTransactions: iterating rows: %w", err)
	}
	return out, nil
}

func scanTransaction(rows *sql.Rows) (domain.Transaction, error) {
	var (
		tx             domain.Transaction
		occurredAt     string
		counterpartyID sql.NullInt64
		amount         string
		direction      string
		categoryID     sql.NullInt64
		source         string
		createdAt      string
	)
	err := rows.Scan(
		&tx.ID, &occurredAt, &tx.Account, &counterpartyID, &tx.CounterpartyINN,
		&tx.CounterpartyBIC, &tx.CounterpartyCorrAccount, &tx.CounterpartyBankName,
		&tx.CounterpartyAccount, &amount, &direction, &tx.Purpose, &categoryID,
		&source, &tx.BatchID, &tx.Notified, &tx.Exported, &tx.Month, &tx.Year, &createdAt,
	)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("scanTransaction: scanning row: %w", err)
	}

	tx.OccurredAt, err = time.Parse(dateFormat, occurredAt)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("scanTransaction: parsing date %q: %w", occurredAt, err)
	}
	tx.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("scanTransaction: parsing amount %q: %w", amount, err)
	}
	tx.Direction = domain.Direction(direction)
	tx.CategorySource = domain.CategorySource(source)
	if counterpartyID.Valid {
		tx.CounterpartyID = &counterpartyID.Int64
	}
	if categoryID.Valid {
		tx.CategoryID = &categoryID.Int64
	}
	tx.CreatedAt = parseTimestamp(createdAt)
	return tx, nil
}
