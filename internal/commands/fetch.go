package commands

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dvloznov/coindesk/internal/bank"
	"github.com/dvloznov/coindesk/internal/ingest"
	"github.com/dvloznov/coindesk/internal/jobs"
	"github.com/dvloznov/coindesk/internal/jobs/inmemory"
	"github.com/dvloznov/coindesk/internal/logger"
)

const flagDateFormat = "2006-01-02"

func newFetchCommand() *cobra.Command {
	var startStr string
	var endStr string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch bank statements and ingest new transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd.Context(), startStr, endStr)
		},
	}

	cmd.Flags().StringVar(&startStr, "start", "", "statement window start, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&endStr, "end", "", "statement window end, YYYY-MM-DD (default start plus one day)")

	return cmd
}

func runFetch(ctx context.Context, startStr, endStr string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	switch {
	case a.cfg.BankAPIToken == "":
		return fmt.Errorf("BANK_API_TOKEN is not set")
	case len(a.cfg.BankAccounts) == 0:
		return fmt.Errorf("BANK_ACCOUNTS is not set")
	case a.cfg.BankBIC == "":
		return fmt.Errorf("BANK_BIC is not set")
	}

	start, end, err := fetchWindow(startStr, endStr, time.Now())
	if err != nil {
		return err
	}

	matcher, cleanup, err := a.newMatcher(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	client := bank.NewClient(a.cfg.BankAPIBaseURL, a.cfg.BankAPIToken, a.cfg.BankClientID)
	acquirer := bank.NewAcquirer(client, a.cfg.MaxPollAttempts, a.log)
	ingestor := ingest.New(a.st, matcher, a.log)

	batchID := uuid.New().String()
	a.log.Info().
		Str("batch_id", batchID).
		Str("start", start.Format(flagDateFormat)).
		Str("end", end.Format(flagDateFormat)).
		Int("accounts", len(a.cfg.BankAccounts)).
		Msg("fetch run started")

	results := fetchAccounts(logger.WithContext(ctx, a.log), acquirer, ingestor, fetchRun{
		Accounts: a.cfg.BankAccounts,
		BIC:      a.cfg.BankBIC,
		Start:    start,
		End:      end,
		BatchID:  batchID,
		Workers:  a.cfg.FetchWorkers,
	})

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Printf("%s: failed: %v\n", r.Account, r.Err)
			continue
		}
		fmt.Printf("%s: %d new, %d duplicates, %d skipped\n",
			r.Account, r.Summary.Saved, r.Summary.Duplicates, r.Summary.Skipped)
	}
	fmt.Printf("Batch %s done\n", batchID)

	if failed > 0 {
		return fmt.Errorf("%d of %d accounts failed", failed, len(results))
	}
	return nil
}

// fetchWindow resolves the statement window from the flags. Absent flags
// fall back the way the nightly run works: today through tomorrow.
func fetchWindow(startStr, endStr string, now time.Time) (start, end time.Time, err error) {
	start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if startStr != "" {
		start, err = time.Parse(flagDateFormat, startStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --start %q: %w", startStr, err)
		}
	}

	end = start.AddDate(0, 0, 1)
	if endStr != "" {
		end, err = time.Parse(flagDateFormat, endStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --end %q: %w", endStr, err)
		}
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("--end %s is before --start %s",
			end.Format(flagDateFormat), start.Format(flagDateFormat))
	}
	return start, end, nil
}

// statementAcquirer is the slice of the bank layer the fetch run needs.
type statementAcquirer interface {
	Acquire(ctx context.Context, accountID string, start, end time.Time) ([]bank.Transaction, error)
}

// batchIngestor is the slice of the ingestion pipeline the fetch run needs.
type batchIngestor interface {
	IngestBatch(ctx context.Context, account string, payloads []bank.Transaction, batchID string) (ingest.Summary, error)
}

// fetchRun bundles the parameters of one fetch fan-out.
type fetchRun struct {
	Accounts []string
	BIC      string
	Start    time.Time
	End      time.Time
	BatchID  string
	Workers  int
}

// accountResult is the outcome of one account's acquisition and ingestion.
type accountResult struct {
	Account string
	Summary ingest.Summary
	Err     error
}

// fetchAccounts fans one statement job per account out over the in-memory
// queue and waits for all of them. Accounts fail independently; one broken
// statement never blocks the others.
func fetchAccounts(ctx context.Context, acquirer statementAcquirer, ingestor batchIngestor, run fetchRun) []accountResult {
	log := logger.FromContext(ctx)

	jobStore := inmemory.NewStore()
	queue := inmemory.NewQueue(len(run.Accounts), run.Workers, jobStore)
	defer queue.Close()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []accountResult
	)

	handler := func(ctx context.Context, job jobs.Job) error {
		defer wg.Done()

		fj, ok := job.(*jobs.FetchStatementJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		res := accountResult{Account: fj.AccountID}
		payloads, err := acquirer.Acquire(ctx, bank.AccountID(fj.AccountID, run.BIC), fj.StartDate, fj.EndDate)
		if err == nil {
			res.Summary, err = ingestor.IngestBatch(ctx, fj.AccountID, payloads, fj.BatchID)
		}
		res.Err = err

		mu.Lock()
		results = append(results, res)
		mu.Unlock()
		return err
	}

	if err := queue.Start(ctx, handler); err != nil {
		for _, account := range run.Accounts {
			results = append(results, accountResult{Account: account, Err: err})
		}
		return results
	}

	for _, account := range run.Accounts {
		wg.Add(1)
		err := queue.PublishFetchStatement(ctx, &jobs.FetchStatementJob{
			AccountID: account,
			StartDate: run.Start,
			EndDate:   run.End,
			BatchID:   run.BatchID,
		})
		if err != nil {
			wg.Done()
			mu.Lock()
			results = append(results, accountResult{Account: account, Err: err})
			mu.Unlock()
			log.Error().Err(err).Str("account", account).Msg("publishing fetch job failed")
		}
	}

	wg.Wait()

	// The queue's job store is the record of what each job ended up as.
	if failed, err := jobStore.ListJobs(ctx, jobs.JobFilter{BatchID: run.BatchID, Status: jobs.JobStatusFailed}); err == nil && len(failed) > 0 {
		log.Warn().
			Str("batch_id", run.BatchID).
			Int("failed_jobs", len(failed)).
			Msg("fetch run finished with failed jobs")
	}

	// Workers finish in arbitrary order; report accounts in a stable one.
	sort.Slice(results, func(i, j int) bool { return results[i].Account < results[j].Account })
	return results
}
