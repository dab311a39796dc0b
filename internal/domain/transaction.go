package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Direction tells which side of the statement a transaction sits on.
// It is parsed once from the wire payload; everything downstream switches
// on this type instead of re-reading indicator strings.
type Direction string

const (
	DirectionCredit Direction = "Credit"
	DirectionDebit  Direction = "Debit"
)

// ParseDirection maps the creditDebitIndicator wire value to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case string(DirectionCredit):
		return DirectionCredit, nil
	case string(DirectionDebit):
		return DirectionDebit, nil
	default:
		return "", fmt.Errorf("ParseDirection: unknown indicator %q", s)
	}
}

// CategorySource records which mechanism assigned a transaction's category.
type CategorySource string

const (
	SourceMapping CategorySource = "mapping" // counterparty INN mapping table
	SourceDefault CategorySource = "default" // fixed revenue category for credits
	SourceNLP     CategorySource = "nlp"     // matching engine
	SourceNone    CategorySource = "none"    // nothing matched
)

// Transaction is one persisted statement transaction.
//
// The counterparty details live on the row itself because the natural key
// (OccurredAt, CounterpartyINN, CounterpartyBIC, Purpose) must work for
// payloads that carry no INN at all; CounterpartyID is only set when an INN
// let us link a Counterparty row. Month and Year are derived from OccurredAt
// at insert time so period reports never parse dates.
type Transaction struct {
	ID         int64
	OccurredAt time.Time // documentProcessDate, date precision
	Account    string    // the monitored account the statement belongs to

	CounterpartyID          *int64 // nil when the payload had no INN
	CounterpartyINN         string
	CounterpartyBIC         string
	CounterpartyCorrAccount string
	CounterpartyBankName    string
	CounterpartyAccount     string

	Amount    decimal.Decimal
	Direction Direction
	Purpose   string // payment description as it came from the bank

	CategoryID     *int64 // nil when CategorySource is "none"
	CategorySource CategorySource
	BatchID        string // uuid shared by every record of one fetch run
	Notified       bool
	Exported       bool
	Month          int
	Year           int
	CreatedAt      time.Time
}

// Period returns the month and year the transaction belongs to.
func (t Transaction) Period() (month, year int) {
	return int(t.OccurredAt.Month()), t.OccurredAt.Year()
}
