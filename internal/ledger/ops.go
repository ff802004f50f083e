package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/credit-tracker/internal/models"
)

// The functions in this file never modify their arguments. Each returns a new
// value and leaves the input untouched when it fails.

// AddTransaction builds a transaction from the draft and prepends it to the ledger,
// moving the balance by the transaction's delta.
func AddTransaction(l models.Ledger, d models.Draft, id int64, now time.Time) (models.Ledger, models.Transaction, error) {
	tx, err := newTransaction(d, id, now)
	if err != nil {
		return l, models.Transaction{}, err
	}
	if _, exists := l.Find(id); exists {
		return l, models.Transaction{}, fmt.Errorf("%w: %d", ErrDuplicateTransaction, id)
	}

	transactions := make([]models.Transaction, 0, len(l.Transactions)+1)
	transactions = append(transactions, tx)
	transactions = append(transactions, l.Transactions...)

	return models.Ledger{
		Balance:      l.Balance.Add(tx.Delta()),
		Transactions: transactions,
	}, tx, nil
}

// DeleteTransaction removes the transaction with the given id and reverses its
// contribution to the balance.
func DeleteTransaction(l models.Ledger, id int64) (models.Ledger, models.Transaction, error) {
	removed, ok := l.Find(id)
	if !ok {
		return l, models.Transaction{}, fmt.Errorf("%w: %d", ErrTransactionNotFound, id)
	}

	transactions := make([]models.Transaction, 0, len(l.Transactions)-1)
	for _, tx := range l.Transactions {
		if tx.ID != id {
			transactions = append(transactions, tx)
		}
	}

	return models.Ledger{
		Balance:      l.Balance.Sub(removed.Delta()),
		Transactions: transactions,
	}, removed, nil
}

// Rebalance returns the ledger with its balance recomputed from the transactions.
func Rebalance(l models.Ledger) models.Ledger {
	return models.Ledger{
		Balance:      l.Recomputed(),
		Transactions: l.Transactions,
	}
}

const (
	maxAmountText  = 32 // characters, before parsing
	maxAmountScale = 4  // decimal places
)

// maxAmount bounds a single transaction so balances stay small enough to keep
// in one document.
var maxAmount = decimal.New(1, 9)

// parseAmount rejects text that parses as a decimal but would blow up the
// balance, such as "1e5000000". The exponent is checked before any
// comparison, since comparing rescales both values.
func parseAmount(raw string) (decimal.Decimal, error) {
	if len(raw) > maxAmountText {
		return decimal.Decimal{}, fmt.Errorf("%w: longer than %d characters", ErrInvalidAmount, maxAmountText)
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if exp := amount.Exponent(); exp < -maxAmountScale || exp > 9 {
		return decimal.Decimal{}, fmt.Errorf("%w: %q out of range", ErrInvalidAmount, raw)
	}
	if amount.Abs().GreaterThan(maxAmount) {
		return decimal.Decimal{}, fmt.Errorf("%w: %q exceeds %s", ErrInvalidAmount, raw, maxAmount)
	}
	return amount, nil
}

func newTransaction(d models.Draft, id int64, now time.Time) (models.Transaction, error) {
	raw := strings.TrimSpace(d.Amount)
	if raw == "" {
		return models.Transaction{}, ErrEmptyAmount
	}
	amount, err := parseAmount(raw)
	if err != nil {
		return models.Transaction{}, err
	}
	if !d.Type.Valid() {
		return models.Transaction{}, fmt.Errorf("%w: %q", ErrUnknownType, d.Type)
	}

	date := strings.TrimSpace(d.Date)
	if date == "" {
		date = now.Format(models.DateLayout)
	} else if _, err := time.Parse(models.DateLayout, date); err != nil {
		return models.Transaction{}, fmt.Errorf("%w: %q", ErrInvalidDate, d.Date)
	}

	return models.Transaction{
		ID:        id,
		Type:      d.Type,
		Amount:    amount,
		Date:      date,
		Student:   strings.TrimSpace(d.Student),
		Note:      strings.TrimSpace(d.Note),
		Timestamp: now.UTC(),
	}, nil
}

// AddStudent appends a new student with an empty ledger.
func AddStudent(r models.Roster, id, name string) (models.Roster, models.Student, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return r, models.Student{}, ErrEmptyName
	}
	student := models.Student{
		ID:     id,
		Name:   name,
		Ledger: models.Ledger{Balance: decimal.Zero, Transactions: []models.Transaction{}},
	}

	students := make([]models.Student, 0, len(r.Students)+1)
	students = append(students, r.Students...)
	students = append(students, student)
	return models.Roster{Students: students}, student, nil
}

// DeleteStudent removes a student and their ledger. When the removed student is
// the selected one the returned selection is empty, otherwise it is unchanged.
func DeleteStudent(r models.Roster, id, selected string) (models.Roster, string, error) {
	i := r.Index(id)
	if i < 0 {
		return r, selected, fmt.Errorf("%w: %s", ErrStudentNotFound, id)
	}

	students := make([]models.Student, 0, len(r.Students)-1)
	students = append(students, r.Students[:i]...)
	students = append(students, r.Students[i+1:]...)

	if selected == id {
		selected = ""
	}
	return models.Roster{Students: students}, selected, nil
}

// AddStudentTransaction applies AddTransaction to one student's ledger. The
// transaction is tagged with the student's id.
func AddStudentTransaction(r models.Roster, studentID string, d models.Draft, id int64, now time.Time) (models.Roster, models.Transaction, error) {
	i := r.Index(studentID)
	if i < 0 {
		return r, models.Transaction{}, fmt.Errorf("%w: %s", ErrStudentNotFound, studentID)
	}
	d.Student = studentID

	updated, tx, err := AddTransaction(r.Students[i].Ledger, d, id, now)
	if err != nil {
		return r, models.Transaction{}, err
	}
	return replaceLedger(r, i, updated), tx, nil
}

// DeleteStudentTransaction applies DeleteTransaction to one student's ledger.
func DeleteStudentTransaction(r models.Roster, studentID string, id int64) (models.Roster, models.Transaction, error) {
	i := r.Index(studentID)
	if i < 0 {
		return r, models.Transaction{}, fmt.Errorf("%w: %s", ErrStudentNotFound, studentID)
	}

	updated, removed, err := DeleteTransaction(r.Students[i].Ledger, id)
	if err != nil {
		return r, models.Transaction{}, err
	}
	return replaceLedger(r, i, updated), removed, nil
}

func replaceLedger(r models.Roster, i int, l models.Ledger) models.Roster {
	students := make([]models.Student, len(r.Students))
	copy(students, r.Students)
	students[i].Ledger = l
	return models.Roster{Students: students}
}
