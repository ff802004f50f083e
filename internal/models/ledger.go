package models

import "github.com/shopspring/decimal"

// Ledger is the balance of one student together with the transactions that produced it.
// Transactions are kept newest first.
type Ledger struct {
	Balance      decimal.Decimal `json:"balance"`
	Transactions []Transaction   `json:"transactions"`
}

// Recomputed derives the balance from the transaction list alone.
func (l Ledger) Recomputed() decimal.Decimal {
	balance := decimal.Zero
	for _, tx := range l.Transactions {
		balance = balance.Add(tx.Delta())
	}
	return balance
}

// Consistent reports whether the stored balance matches the transaction list.
func (l Ledger) Consistent() bool {
	return l.Balance.Equal(l.Recomputed())
}

// Find returns the transaction with the given id.
func (l Ledger) Find(id int64) (Transaction, bool) {
	for _, tx := range l.Transactions {
		if tx.ID == id {
			return tx, true
		}
	}
	return Transaction{}, false
}

// MaxID returns the largest transaction id in the ledger, or 0 when it is empty.
func (l Ledger) MaxID() int64 {
	var max int64
	for _, tx := range l.Transactions {
		if tx.ID > max {
			max = tx.ID
		}
	}
	return max
}

// Student owns an independent ledger inside a Roster.
type Student struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Ledger
}

// Roster is the multi-student document. Students are kept in insertion order.
type Roster struct {
	Students []Student `json:"students"`
}

// Index returns the position of the student with the given id, or -1.
func (r Roster) Index(id string) int {
	for i, s := range r.Students {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// Student returns the student with the given id.
func (r Roster) Student(id string) (Student, bool) {
	if i := r.Index(id); i >= 0 {
		return r.Students[i], true
	}
	return Student{}, false
}

// MaxID returns the largest transaction id across all students.
func (r Roster) MaxID() int64 {
	var max int64
	for _, s := range r.Students {
		if id := s.MaxID(); id > max {
			max = id
		}
	}
	return max
}
