package domain

// UnknownCounterpartyName is stored when the bank omits the party name.
const UnknownCounterpartyName = "Unknown contractor"

// Counterparty is the other side of a transaction, identified by INN.
// The first statement that mentions an INN fixes the stored name; later
// spellings of the same party do not overwrite it.
type Counterparty struct {
	ID   int64
	Name string
	INN  string
	BIC  string
}

// RevenueCategoryName is the category every incoming transfer lands in.
const RevenueCategoryName = "Выручка"

// Category is an expense or revenue bucket transactions are filed under.
type Category struct {
	ID        int64
	Name      string
	IsRevenue bool
}

// CategoryMapping pins a counterparty's transactions to one category. It is
// the fallback for debits the matcher could not score above the threshold.
type CategoryMapping struct {
	ID         int64
	INN        string
	CategoryID int64
}
