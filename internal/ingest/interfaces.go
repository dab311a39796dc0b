package ingest

import (
	"context"
	"time"

	"github.com/dvloznov/coindesk/internal/domain"
	"github.com/dvloznov/coindesk/internal/match"
)

// RecordStore is the slice of the statement store the pipeline needs.
// *store.Store satisfies it; tests can swap in fakes.
type RecordStore interface {
	TransactionExists(ctx context.Context, occurredAt time.Time, inn, bic, purpose string) (bool, error)
	InsertTransaction(ctx context.Context, tx *domain.Transaction) (int64, error)
	GetOrCreateCounterparty(ctx context.Context, cp domain.Counterparty) (domain.Counterparty, error)
	GetOrCreateCategory(ctx context.Context, name string, isRevenue bool) (domain.Category, error)
	MappingByINN(ctx context.Context, inn string) (domain.CategoryMapping, error)
	ListUncategorizedDebits(ctx context.Context) ([]domain.Transaction, error)
	UpdateTransactionCategory(ctx context.Context, id, categoryID int64, source domain.CategorySource) error
}

// Matcher scores purpose text against the category keyword table.
// *match.Engine satisfies it.
type Matcher interface {
	Match(ctx context.Context, text string) (*match.Match, error)
}
