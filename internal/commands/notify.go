package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/dvloznov/coindesk/internal/domain"
	"github.com/dvloznov/coindesk/internal/store"
)

func newNotifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "notify",
		Short: "Summarize the latest unnotified batch and mark it notified",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNotify(cmd.Context())
		},
	}
}

func runNotify(ctx context.Context) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	batchID, err := a.st.LatestUnnotifiedBatch(ctx)
	if errors.Is(err, store.ErrNotFound) {
		fmt.Println("No new transactions.")
		return nil
	}
	if err != nil {
		return err
	}

	txs, err := a.st.TransactionsByBatch(ctx, batchID)
	if err != nil {
		return err
	}

	names, err := counterpartyNames(ctx, a.st, txs)
	if err != nil {
		return err
	}

	fmt.Print(buildBatchReport(batchID, txs, names).render())

	n, err := a.st.MarkBatchNotified(ctx, batchID)
	if err != nil {
		return err
	}
	a.log.Info().Str("batch_id", batchID).Int64("rows", n).Msg("batch marked notified")
	return nil
}

// counterpartyNames resolves the linked counterparty name of each
// transaction, one store lookup per distinct id.
func counterpartyNames(ctx context.Context, st *store.Store, txs []domain.Transaction) (map[int64]string, error) {
	names := make(map[int64]string)
	for _, tx := range txs {
		if tx.CounterpartyID == nil {
			continue
		}
		id := *tx.CounterpartyID
		if _, seen := names[id]; seen {
			continue
		}
		cp, err := st.CounterpartyByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("resolving counterparty %d: %w", id, err)
		}
		names[id] = cp.Name
	}
	return names, nil
}

// partyTotal is one counterparty's share of a batch.
type partyTotal struct {
	Name  string
	Total decimal.Decimal
}

// batchReport is the notification summary of one fetch batch.
type batchReport struct {
	BatchID       string
	Count         int
	CreditTotal   decimal.Decimal
	DebitTotal    decimal.Decimal
	Credits       []partyTotal
	Debits        []partyTotal
	NLPCount      int
	Uncategorized []partyTotal
}

// buildBatchReport aggregates a batch the way the notification message shows
// it: totals per direction, per-counterparty breakdowns, how many debits the
// matcher categorized and which debits nothing categorized.
func buildBatchReport(batchID string, txs []domain.Transaction, names map[int64]string) batchReport {
	r := batchReport{
		BatchID:     batchID,
		Count:       len(txs),
		CreditTotal: decimal.Zero,
		DebitTotal:  decimal.Zero,
	}

	credits := make(map[string]decimal.Decimal)
	debits := make(map[string]decimal.Decimal)
	uncategorized := make(map[string]decimal.Decimal)

	for _, tx := range txs {
		name := domain.UnknownCounterpartyName
		if tx.CounterpartyID != nil {
			if n, ok := names[*tx.CounterpartyID]; ok {
				name = n
			}
		}

		switch tx.Direction {
		case domain.DirectionCredit:
			r.CreditTotal = r.CreditTotal.Add(tx.Amount)
			credits[name] = credits[name].Add(tx.Amount)
		case domain.DirectionDebit:
			r.DebitTotal = r.DebitTotal.Add(tx.Amount)
			debits[name] = debits[name].Add(tx.Amount)
			if tx.CategoryID == nil {
				uncategorized[name] = uncategorized[name].Add(tx.Amount)
			}
		}

		if tx.CategorySource == domain.SourceNLP {
			r.NLPCount++
		}
	}

	r.Credits = sortedTotals(credits)
	r.Debits = sortedTotals(debits)
	r.Uncategorized = sortedTotals(uncategorized)
	return r
}

// sortedTotals orders a per-party aggregation by amount, largest first, with
// the name as tie-break so output is stable.
func sortedTotals(totals map[string]decimal.Decimal) []partyTotal {
	out := make([]partyTotal, 0, len(totals))
	for name, total := range totals {
		out = append(out, partyTotal{Name: name, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Total.Equal(out[j].Total) {
			return out[i].Total.GreaterThan(out[j].Total)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (r batchReport) render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Batch %s: %d transactions\n", r.BatchID, r.Count)

	fmt.Fprintf(&b, "\nCredits: %s\n", r.CreditTotal.StringFixed(2))
	for _, p := range r.Credits {
		fmt.Fprintf(&b, "  %s  %s\n", p.Name, p.Total.StringFixed(2))
	}

	fmt.Fprintf(&b, "Debits: %s\n", r.DebitTotal.StringFixed(2))
	for _, p := range r.Debits {
		fmt.Fprintf(&b, "  %s  %s\n", p.Name, p.Total.StringFixed(2))
	}

	fmt.Fprintf(&b, "Categorized by matcher: %d\n", r.NLPCount)

	if len(r.Uncategorized) > 0 {
		b.WriteString("Uncategorized debits:\n")
		for _, p := range r.Uncategorized {
			fmt.Fprintf(&b, "  %s  %s\n", p.Name, p.Total.StringFixed(2))
		}
	}
	return b.String()
}
