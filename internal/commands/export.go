package commands

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dvloznov/coindesk/internal/domain"
	"github.com/dvloznov/coindesk/internal/store"
)

// transactionCSVHeader mirrors the statement sheet column layout.
const transactionCSVHeader = "batch_id,date,account,counterparty,counterparty_inn," +
	"counterparty_bic,counterparty_corr_account,counterparty_bank_name,counterparty_account," +
	"debit,credit,purpose,category,category_source,notified"

func newExportCommand() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export unexported transactions to CSV and mark them exported",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), outPath)
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "transactions.csv", "output CSV file")

	return cmd
}

func runExport(ctx context.Context, outPath string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	txs, err := a.st.ListUnexported(ctx)
	if err != nil {
		return err
	}
	if len(txs) == 0 {
		fmt.Println("No unexported transactions.")
		return nil
	}

	counterparties, err := counterpartyNames(ctx, a.st, txs)
	if err != nil {
		return err
	}
	categories, err := categoryNames(ctx, a.st, txs)
	if err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outPath, err)
	}
	if err := writeTransactionsCSV(f, txs, counterparties, categories); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", outPath, err)
	}

	// Rows are flagged only after the file is safely on disk.
	ids := make([]int64, len(txs))
	for i, tx := range txs {
		ids[i] = tx.ID
	}
	n, err := a.st.MarkExported(ctx, ids)
	if err != nil {
		return err
	}

	fmt.Printf("Exported %d transactions to %s\n", n, outPath)
	return nil
}

// categoryNames resolves the category name of each transaction, one store
// lookup per distinct id.
func categoryNames(ctx context.Context, st *store.Store, txs []domain.Transaction) (map[int64]string, error) {
	names := make(map[int64]string)
	for _, tx := range txs {
		if tx.CategoryID == nil {
			continue
		}
		id := *tx.CategoryID
		if _, seen := names[id]; seen {
			continue
		}
		cat, err := st.CategoryByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("resolving category %d: %w", id, err)
		}
		names[id] = cat.Name
	}
	return names, nil
}

// writeTransactionsCSV writes the header and one row per transaction.
func writeTransactionsCSV(w io.Writer, txs []domain.Transaction, counterparties, categories map[int64]string) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(strings.Split(transactionCSVHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, tx := range txs {
		if err := cw.Write(transactionRow(tx, counterparties, categories)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// transactionRow lays one transaction out in the sheet's column order. The
// amount lands in the debit or the credit column, never both.
func transactionRow(tx domain.Transaction, counterparties, categories map[int64]string) []string {
	var debit, credit string
	switch tx.Direction {
	case domain.DirectionDebit:
		debit = tx.Amount.String()
	case domain.DirectionCredit:
		credit = tx.Amount.String()
	}

	var counterparty string
	if tx.CounterpartyID != nil {
		counterparty = counterparties[*tx.CounterpartyID]
	}
	var category string
	if tx.CategoryID != nil {
		category = categories[*tx.CategoryID]
	}

	return []string{
		tx.BatchID,
		tx.OccurredAt.Format(flagDateFormat),
		tx.Account,
		counterparty,
		tx.CounterpartyINN,
		tx.CounterpartyBIC,
		tx.CounterpartyCorrAccount,
		tx.CounterpartyBankName,
		tx.CounterpartyAccount,
		debit,
		credit,
		tx.Purpose,
		category,
		string(tx.CategorySource),
		strconv.FormatBool(tx.Notified),
	}
}
