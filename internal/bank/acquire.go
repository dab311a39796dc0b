package bank

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// DefaultMaxAttempts bounds how many times a statement is polled before the
// acquisition is declared timed out.
const DefaultMaxAttempts = 60

// Reason classifies why an acquisition failed.
type Reason string

const (
	ReasonCreateFailed      Reason = "create_failed"
	ReasonStatusError       Reason = "status_error"
	ReasonTimeout           Reason = "timeout"
	ReasonMalformedResponse Reason = "malformed_response"
)

// AcquireError is the terminal failure of one account's acquisition.
type AcquireError struct {
	Reason    Reason
	AccountID string
	Err       error
}

func (e *AcquireError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("bank: acquire %s: %s", e.AccountID, e.Reason)
	}
	return fmt.Sprintf("bank: acquire %s: %s: %v", e.AccountID, e.Reason, e.Err)
}

func (e *AcquireError) Unwrap() error {
	return e.Err
}

// StatementAPI is the slice of the bank client the acquirer needs.
type StatementAPI interface {
	CreateStatement(ctx context.Context, accountID string, start, end time.Time) (string, error)
	GetStatement(ctx context.Context, accountID, statementID string) (Statement, error)
}

// Acquirer orders a statement and polls it to a terminal state. Acquisitions
// for different accounts are independent; one Acquirer may serve them all
// concurrently.
type Acquirer struct {
	api         StatementAPI
	maxAttempts int
	interval    time.Duration
	log         zerolog.Logger
}

// NewAcquirer builds an acquirer polling once per second, at most
// maxAttempts times. Non-positive maxAttempts falls back to the default.
func NewAcquirer(api StatementAPI, maxAttempts int, log zerolog.Logger) *Acquirer {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Acquirer{
		api:         api,
		maxAttempts: maxAttempts,
		interval:    time.Second,
		log:         log.With().Str("component", "acquirer").Logger(),
	}
}

// Acquire runs the statement lifecycle for one account: order, then poll
// until Ready, Error or the attempt budget runs out. Ready returns the
// statement's transactions; everything else returns an *AcquireError.
func (a *Acquirer) Acquire(ctx context.Context, accountID string, start, end time.Time) ([]Transaction, error) {
	statementID, err := a.api.CreateStatement(ctx, accountID, start, end)
	if err != nil {
		return nil, &AcquireError{Reason: ReasonCreateFailed, AccountID: accountID, Err: err}
	}

	a.log.Debug().
		Str("account_id", accountID).
		Str("statement_id", statementID).
		Msg("statement ordered")

	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("Acquire: waiting for statement %s: %w", statementID, ctx.Err())
			case <-time.After(a.interval):
			}
		}

		st, err := a.api.GetStatement(ctx, accountID, statementID)
		if err != nil {
			if errors.Is(err, ErrMalformedResponse) {
				return nil, &AcquireError{Reason: ReasonMalformedResponse, AccountID: accountID, Err: err}
			}
			return nil, &AcquireError{Reason: ReasonStatusError, AccountID: accountID, Err: err}
		}

		a.log.Debug().
			Str("account_id", accountID).
			Str("status", st.Status).
			Int("attempt", attempt+1).
			Msg("statement polled")

		switch st.Status {
		case StatusReady:
			return st.Transactions, nil
		case StatusError:
			return nil, &AcquireError{
				Reason:    ReasonStatusError,
				AccountID: accountID,
				Err:       fmt.Errorf("statement %s entered Error status", statementID),
			}
		}
	}

	return nil, &AcquireError{
		Reason:    ReasonTimeout,
		AccountID: accountID,
		Err:       fmt.Errorf("statement %s not ready after %d polls", statementID, a.maxAttempts),
	}
}
