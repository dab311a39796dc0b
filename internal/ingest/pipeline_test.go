package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/coindesk/internal/bank"
	"github.com/dvloznov/coindesk/internal/domain"
	"github.com/dvloznov/coindesk/internal/match"
	"github.com/dvloznov/coindesk/internal/store"
)

const testAccount = "40702810900000005555"

// fakeMatcher returns canned verdicts keyed by the exact text it is asked
// about, or a fixed error.
type fakeMatcher struct {
	byText map[string]*match.Match
	err    error
}

func (m *fakeMatcher) Match(ctx context.Context, text string) (*match.Match, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.byText[text], nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))

	s := store.New(db)
	t.Cleanup(func() { s.Close() })
	return s
}

func debitLine(date, purpose, inn, name string, amount float64) bank.Transaction {
	return bank.Transaction{
		DocumentProcessDate:  date,
		Description:          purpose,
		Amount:               bank.Amount{Amount: decimal.NewFromFloat(amount)},
		CreditDebitIndicator: "Debit",
		CreditorParty:        &bank.Party{INN: inn, Name: name},
		CreditorAgent: &bank.Agent{
			Identification:        "044525225",
			AccountIdentification: "30101810400000000225",
			Name:                  "ПАО СБЕРБАНК",
		},
		CreditorAccount: &bank.Account{Identification: "40702810938000000001"},
	}
}

func creditLine(date, purpose, inn, name string, amount float64) bank.Transaction {
	return bank.Transaction{
		DocumentProcessDate:  date,
		Description:          purpose,
		Amount:               bank.Amount{Amount: decimal.NewFromFloat(amount)},
		CreditDebitIndicator: "Credit",
		DebtorParty:          &bank.Party{INN: inn, Name: name},
		DebtorAgent: &bank.Agent{
			Identification: "044525974",
			Name:           "АО ТИНЬКОФФ БАНК",
		},
		DebtorAccount: &bank.Account{Identification: "40702810800000012345"},
	}
}

func batchRecords(t *testing.T, s *store.Store, batchID string) []domain.Transaction {
	t.Helper()

	txs, err := s.TransactionsByBatch(context.Background(), batchID)
	require.NoError(t, err)
	return txs
}

func TestIngestBatch_CreditGetsRevenueCategory(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	ing := New(st, &fakeMatcher{}, zerolog.Nop())

	line := creditLine("2025-06-11", "Оплата по счету 12 от 10.06.2025", "7701234567", "ООО Ромашка", 150000.50)
	sum, err := ing.IngestBatch(ctx, testAccount, []bank.Transaction{line}, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 1, Saved: 1}, sum)

	txs := batchRecords(t, st, "batch-1")
	require.Len(t, txs, 1)
	tx := txs[0]

	assert.Equal(t, testAccount, tx.Account)
	assert.Equal(t, domain.DirectionCredit, tx.Direction)
	assert.True(t, tx.Amount.Equal(decimal.NewFromFloat(150000.50)))
	assert.Equal(t, 6, tx.Month)
	assert.Equal(t, 2025, tx.Year)
	assert.Equal(t, domain.SourceDefault, tx.CategorySource)

	require.NotNil(t, tx.CategoryID)
	cat, err := st.CategoryByID(ctx, *tx.CategoryID)
	require.NoError(t, err)
	assert.Equal(t, domain.RevenueCategoryName, cat.Name)
	assert.True(t, cat.IsRevenue)

	require.NotNil(t, tx.CounterpartyID)
	cp, err := st.CounterpartyByID(ctx, *tx.CounterpartyID)
	require.NoError(t, err)
	assert.Equal(t, "ООО Ромашка", cp.Name)
	assert.Equal(t, "7701234567", cp.INN)
}

func TestIngestBatch_DebitMatchedByEngine(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	matcher := &fakeMatcher{byText: map[string]*match.Match{
		"Оплата за аренду офиса за июнь": {Category: "Аренда", Keyword: "аренда", Score: 0.85},
	}}
	ing := New(st, matcher, zerolog.Nop())

	// The purpose reaches the matcher trimmed.
	line := debitLine("2025-06-12", "  Оплата за аренду офиса за июнь ", "7707049388", "АО Бизнес-Центр", 85000)
	sum, err := ing.IngestBatch(ctx, testAccount, []bank.Transaction{line}, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 1, Saved: 1}, sum)

	txs := batchRecords(t, st, "batch-1")
	require.Len(t, txs, 1)
	tx := txs[0]

	assert.Equal(t, "Оплата за аренду офиса за июнь", tx.Purpose)
	assert.Equal(t, domain.SourceNLP, tx.CategorySource)
	require.NotNil(t, tx.CategoryID)

	cat, err := st.CategoryByID(ctx, *tx.CategoryID)
	require.NoError(t, err)
	assert.Equal(t, "Аренда", cat.Name)
	assert.False(t, cat.IsRevenue)
}

func TestIngestBatch_DebitFallsBackToMapping(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	ing := New(st, &fakeMatcher{}, zerolog.Nop())

	pinned, err := st.GetOrCreateCategory(ctx, "Связь", false)
	require.NoError(t, err)
	require.NoError(t, st.UpsertMapping(ctx, "7707049388", pinned.ID))

	line := debitLine("2025-06-12", "Абонентская плата за телефонию", "7707049388", "ПАО Ростелеком", 4200)
	sum, err := ing.IngestBatch(ctx, testAccount, []bank.Transaction{line}, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 1, Saved: 1}, sum)

	txs := batchRecords(t, st, "batch-1")
	require.Len(t, txs, 1)
	assert.Equal(t, domain.SourceMapping, txs[0].CategorySource)
	require.NotNil(t, txs[0].CategoryID)
	assert.Equal(t, pinned.ID, *txs[0].CategoryID)
}

func TestIngestBatch_DebitUnmatchedStaysUncategorized(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	ing := New(st, &fakeMatcher{}, zerolog.Nop())

	line := debitLine("2025-06-12", "Перевод собственных средств", "7712345678", "ИП Иванов", 30000)
	sum, err := ing.IngestBatch(ctx, testAccount, []bank.Transaction{line}, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 1, Saved: 1}, sum)

	txs := batchRecords(t, st, "batch-1")
	require.Len(t, txs, 1)
	assert.Nil(t, txs[0].CategoryID)
	assert.Equal(t, domain.SourceNone, txs[0].CategorySource)
}

func TestIngestBatch_ReplayIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	ing := New(st, &fakeMatcher{}, zerolog.Nop())

	lines := []bank.Transaction{
		debitLine("2025-06-12", "Оплата по договору 77", "7707049388", "ООО Поставщик", 12000),
		creditLine("2025-06-12", "Оплата по счету 13", "7701234567", "ООО Ромашка", 99000),
	}

	first, err := ing.IngestBatch(ctx, testAccount, lines, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 2, Saved: 2}, first)

	second, err := ing.IngestBatch(ctx, testAccount, lines, "batch-2")
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 2, Duplicates: 2}, second)

	assert.Empty(t, batchRecords(t, st, "batch-2"))
	assert.Len(t, batchRecords(t, st, "batch-1"), 2)
}

func TestIngestBatch_NoINNNoCounterpartyLink(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	ing := New(st, &fakeMatcher{}, zerolog.Nop())

	// Bank commission lines carry no counterparty blocks at all.
	line := bank.Transaction{
		DocumentProcessDate:  "2025-06-13",
		Description:          "Комиссия за ведение счета",
		Amount:               bank.Amount{Amount: decimal.NewFromInt(990)},
		CreditDebitIndicator: "Debit",
	}

	sum, err := ing.IngestBatch(ctx, testAccount, []bank.Transaction{line}, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 1, Saved: 1}, sum)

	txs := batchRecords(t, st, "batch-1")
	require.Len(t, txs, 1)
	assert.Nil(t, txs[0].CounterpartyID)
	assert.Empty(t, txs[0].CounterpartyINN)

	// The natural key still dedups INN-less lines.
	replay, err := ing.IngestBatch(ctx, testAccount, []bank.Transaction{line}, "batch-2")
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 1, Duplicates: 1}, replay)
}

func TestIngestBatch_MalformedLinesSkipped(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	ing := New(st, &fakeMatcher{}, zerolog.Nop())

	badDate := debitLine("12.06.2025", "Оплата по договору 1", "7707049388", "ООО Поставщик", 100)
	badDirection := debitLine("2025-06-12", "Оплата по договору 2", "7707049388", "ООО Поставщик", 200)
	badDirection.CreditDebitIndicator = "Refund"
	good := debitLine("2025-06-12", "Оплата по договору 3", "7707049388", "ООО Поставщик", 300)

	sum, err := ing.IngestBatch(ctx, testAccount, []bank.Transaction{badDate, badDirection, good}, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 3, Saved: 1, Skipped: 2}, sum)

	txs := batchRecords(t, st, "batch-1")
	require.Len(t, txs, 1)
	assert.Equal(t, "Оплата по договору 3", txs[0].Purpose)
}

func TestIngestBatch_MatcherFailureSkipsDebitOnly(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	matcher := &fakeMatcher{err: errors.New("embed: provider unavailable")}
	ing := New(st, matcher, zerolog.Nop())

	lines := []bank.Transaction{
		debitLine("2025-06-12", "Оплата за аренду офиса", "7707049388", "АО Бизнес-Центр", 85000),
		creditLine("2025-06-12", "Оплата по счету 14", "7701234567", "ООО Ромашка", 50000),
	}

	sum, err := ing.IngestBatch(ctx, testAccount, lines, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 2, Saved: 1, Skipped: 1}, sum)

	// Credits never touch the matcher, so the revenue line survives.
	txs := batchRecords(t, st, "batch-1")
	require.Len(t, txs, 1)
	assert.Equal(t, domain.DirectionCredit, txs[0].Direction)
}

func TestIngestBatch_ContextCancellationAborts(t *testing.T) {
	st := newTestStore(t)
	ing := New(st, &fakeMatcher{}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	line := debitLine("2025-06-12", "Оплата по договору 1", "7707049388", "ООО Поставщик", 100)
	_, err := ing.IngestBatch(ctx, testAccount, []bank.Transaction{line}, "batch-1")
	require.ErrorIs(t, err, context.Canceled)
}

func TestRecategorize_PicksUpNewKeywords(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	matcher := &fakeMatcher{byText: map[string]*match.Match{}}
	ing := New(st, matcher, zerolog.Nop())

	line := debitLine("2025-06-12", "Оплата за аренду офиса", "7707049388", "АО Бизнес-Центр", 85000)
	_, err := ing.IngestBatch(ctx, testAccount, []bank.Transaction{line}, "batch-1")
	require.NoError(t, err)

	// The keyword table grows; the same purpose now matches.
	matcher.byText["Оплата за аренду офиса"] = &match.Match{Category: "Аренда", Keyword: "аренда", Score: 0.75}

	sum, err := ing.Recategorize(ctx)
	require.NoError(t, err)
	assert.Equal(t, RecategorizeSummary{Examined: 1, Updated: 1}, sum)

	txs := batchRecords(t, st, "batch-1")
	require.Len(t, txs, 1)
	assert.Equal(t, domain.SourceNLP, txs[0].CategorySource)
	require.NotNil(t, txs[0].CategoryID)

	cat, err := st.CategoryByID(ctx, *txs[0].CategoryID)
	require.NoError(t, err)
	assert.Equal(t, "Аренда", cat.Name)

	// Nothing is left to examine afterwards.
	again, err := ing.Recategorize(ctx)
	require.NoError(t, err)
	assert.Equal(t, RecategorizeSummary{}, again)
}

func TestRecategorize_MappingAddedAfterIngest(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	ing := New(st, &fakeMatcher{}, zerolog.Nop())

	line := debitLine("2025-06-12", "Абонентская плата", "7707049388", "ПАО Ростелеком", 4200)
	_, err := ing.IngestBatch(ctx, testAccount, []bank.Transaction{line}, "batch-1")
	require.NoError(t, err)

	pinned, err := st.GetOrCreateCategory(ctx, "Связь", false)
	require.NoError(t, err)
	require.NoError(t, st.UpsertMapping(ctx, "7707049388", pinned.ID))

	sum, err := ing.Recategorize(ctx)
	require.NoError(t, err)
	assert.Equal(t, RecategorizeSummary{Examined: 1, Updated: 1}, sum)

	txs := batchRecords(t, st, "batch-1")
	require.Len(t, txs, 1)
	assert.Equal(t, domain.SourceMapping, txs[0].CategorySource)
	require.NotNil(t, txs[0].CategoryID)
	assert.Equal(t, pinned.ID, *txs[0].CategoryID)
}
