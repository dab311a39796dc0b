package commands

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/coindesk/internal/domain"
)

func TestWriteTransactionsCSV(t *testing.T) {
	occurred := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)
	txs := []domain.Transaction{
		{
			ID:                      1,
			BatchID:                 "batch-1",
			OccurredAt:              occurred,
			Account:                 "40702810900000005555",
			CounterpartyID:          i64(7),
			CounterpartyINN:         "7707083893",
			CounterpartyBIC:         "044525225",
			CounterpartyCorrAccount: "30101810400000000225",
			CounterpartyBankName:    "ПАО СБЕРБАНК",
			CounterpartyAccount:     "40702810400000001234",
			Amount:                  decimal.RequireFromString("85000.40"),
			Direction:               domain.DirectionDebit,
			Purpose:                 "Оплата за аренду офиса, в т.ч. НДС",
			CategoryID:              i64(3),
			CategorySource:          domain.SourceNLP,
		},
		{
			ID:             2,
			BatchID:        "batch-1",
			OccurredAt:     occurred,
			Account:        "40702810900000005555",
			Amount:         decimal.RequireFromString("150000.50"),
			Direction:      domain.DirectionCredit,
			Purpose:        "Оплата по счету 77 от 10.06.2025",
			CategorySource: domain.SourceNone,
			Notified:       true,
		},
	}
	counterparties := map[int64]string{7: "АО Бизнес-Центр"}
	categories := map[int64]string{3: "Аренда"}

	var buf bytes.Buffer
	require.NoError(t, writeTransactionsCSV(&buf, txs, counterparties, categories))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{
		"batch_id", "date", "account", "counterparty", "counterparty_inn",
		"counterparty_bic", "counterparty_corr_account", "counterparty_bank_name",
		"counterparty_account", "debit", "credit", "purpose", "category",
		"category_source", "notified",
	}, rows[0])

	assert.Equal(t, []string{
		"batch-1", "2025-06-11", "40702810900000005555", "АО Бизнес-Центр",
		"7707083893", "044525225", "30101810400000000225", "ПАО СБЕРБАНК",
		"40702810400000001234", "85000.4", "", "Оплата за аренду офиса, в т.ч. НДС",
		"Аренда", "nlp", "false",
	}, rows[1])

	assert.Equal(t, []string{
		"batch-1", "2025-06-11", "40702810900000005555", "",
		"", "", "", "",
		"", "", "150000.5", "Оплата по счету 77 от 10.06.2025",
		"", "none", "true",
	}, rows[2])
}

func TestTransactionRow_AmountLandsInOneColumn(t *testing.T) {
	tx := domain.Transaction{
		Amount:    decimal.RequireFromString("999.99"),
		Direction: domain.DirectionDebit,
	}

	row := transactionRow(tx, nil, nil)

	assert.Equal(t, "999.99", row[9], "debit column")
	assert.Empty(t, row[10], "credit column")

	tx.Direction = domain.DirectionCredit
	row = transactionRow(tx, nil, nil)

	assert.Empty(t, row[9], "debit column")
	assert.Equal(t, "999.99", row[10], "credit column")
}
