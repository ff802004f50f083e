package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Stored documents carry amounts and balances as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// TransactionType says which way a transaction moves the balance.
type TransactionType string

const (
	TypeClass   TransactionType = "class"   // debit: a class was given
	TypePayment TransactionType = "payment" // credit: money was received
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == TypeClass || t == TypePayment
}

// DateLayout is the calendar date format used by Transaction.Date.
const DateLayout = "2006-01-02"

// Transaction is a single entry of a ledger
type Transaction struct {
	ID        int64           `json:"id"`
	Type      TransactionType `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Date      string          `json:"date"`
	Student   string          `json:"student,omitempty"`
	Note      string          `json:"note,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Delta is the contribution of the transaction to its ledger balance.
func (t Transaction) Delta() decimal.Decimal {
	if t.Type == TypeClass {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Draft is the add-transaction form as submitted by a client.
// Amount stays text until the ledger parses it.
type Draft struct {
	Type    TransactionType `json:"type"`
	Amount  string          `json:"amount"`
	Date    string          `json:"date"`
	Student string          `json:"student,omitempty"`
	Note    string          `json:"note,omitempty"`
}

// NewDraft returns the form defaults: a class for the default student, dated today.
func NewDraft(today time.Time, student string) Draft {
	return Draft{
		Type:    TypeClass,
		Date:    today.Format(DateLayout),
		Student: student,
	}
}
