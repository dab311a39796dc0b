package bank

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockAPI walks through a scripted sequence of poll outcomes and counts
// every request it serves.
type mockAPI struct {
	createErr error
	statuses  []Statement
	getErrs   []error

	creates int
	gets    int
}

func (m *mockAPI) CreateStatement(ctx context.Context, accountID string, start, end time.Time) (string, error) {
	m.creates++
	if m.createErr != nil {
		return "", m.createErr
	}
	return "stmt-1", nil
}

func (m *mockAPI) GetStatement(ctx context.Context, accountID, statementID string) (Statement, error) {
	i := m.gets
	m.gets++
	if i < len(m.getErrs) && m.getErrs[i] != nil {
		return Statement{}, m.getErrs[i]
	}
	if i < len(m.statuses) {
		return m.statuses[i], nil
	}
	return Statement{Status: "Processing"}, nil
}

func newTestAcquirer(api StatementAPI, maxAttempts int) *Acquirer {
	a := NewAcquirer(api, maxAttempts, zerolog.Nop())
	a.interval = time.Millisecond
	return a
}

func reasonOf(t *testing.T, err error) Reason {
	t.Helper()
	var acqErr *AcquireError
	require.ErrorAs(t, err, &acqErr)
	return acqErr.Reason
}

func TestAcquire_ReadyFirstPoll(t *testing.T) {
	api := &mockAPI{statuses: []Statement{
		{Status: StatusReady, Transactions: []Transaction{{Description: "x"}}},
	}}
	a := newTestAcquirer(api, 5)

	txs, err := a.Acquire(context.Background(), "acc/bic", time.Now(), time.Now())
	require.NoError(t, err)
	assert.Len(t, txs, 1)
	assert.Equal(t, 1, api.creates)
	assert.Equal(t, 1, api.gets)
}

func TestAcquire_ReadyAfterProcessing(t *testing.T) {
	// Ready appears on the third poll; exactly three status requests go out.
	api := &mockAPI{statuses: []Statement{
		{Status: "Created"},
		{Status: "Processing"},
		{Status: StatusReady},
	}}
	a := newTestAcquirer(api, 10)

	_, err := a.Acquire(context.Background(), "acc/bic", time.Now(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 3, api.gets)
}

func TestAcquire_ErrorStatusShortCircuits(t *testing.T) {
	api := &mockAPI{statuses: []Statement{
		{Status: "Processing"},
		{Status: StatusError},
		{Status: StatusReady}, // must never be reached
	}}
	a := newTestAcquirer(api, 10)

	_, err := a.Acquire(context.Background(), "acc/bic", time.Now(), time.Now())
	assert.Equal(t, ReasonStatusError, reasonOf(t, err))
	assert.Equal(t, 2, api.gets)
}

func TestAcquire_Timeout(t *testing.T) {
	api := &mockAPI{} // never leaves Processing
	a := newTestAcquirer(api, 4)

	_, err := a.Acquire(context.Background(), "acc/bic", time.Now(), time.Now())
	assert.Equal(t, ReasonTimeout, reasonOf(t, err))
	assert.Equal(t, 4, api.gets)
}

func TestAcquire_CreateFailed(t *testing.T) {
	api := &mockAPI{createErr: errors.New("boom")}
	a := newTestAcquirer(api, 4)

	_, err := a.Acquire(context.Background(), "acc/bic", time.Now(), time.Now())
	assert.Equal(t, ReasonCreateFailed, reasonOf(t, err))
	assert.Zero(t, api.gets)
}

func TestAcquire_MalformedResponse(t *testing.T) {
	api := &mockAPI{getErrs: []error{fmt.Errorf("empty list: %w", ErrMalformedResponse)}}
	a := newTestAcquirer(api, 4)

	_, err := a.Acquire(context.Background(), "acc/bic", time.Now(), time.Now())
	assert.Equal(t, ReasonMalformedResponse, reasonOf(t, err))
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestAcquire_PollTransportError(t *testing.T) {
	api := &mockAPI{getErrs: []error{errors.New("connection reset")}}
	a := newTestAcquirer(api, 4)

	_, err := a.Acquire(context.Background(), "acc/bic", time.Now(), time.Now())
	assert.Equal(t, ReasonStatusError, reasonOf(t, err))
	assert.Equal(t, 1, api.gets)
}

func TestAcquire_ContextCancelledBetweenPolls(t *testing.T) {
	api := &mockAPI{}
	a := newTestAcquirer(api, 10)
	a.interval = time.Minute // the select must take the ctx branch

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Acquire(ctx, "acc/bic", time.Now(), time.Now())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, api.gets)
}

func TestAcquireError_Message(t *testing.T) {
	err := &AcquireError{Reason: ReasonTimeout, AccountID: "acc/bic"}
	assert.Contains(t, err.Error(), "acc/bic")
	assert.Contains(t, err.Error(), "timeout")
}
