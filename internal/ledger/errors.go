package ledger

import "errors"

var (
	ErrEmptyAmount          = errors.New("amount is required")
	ErrInvalidAmount        = errors.New("amount is not a number")
	ErrUnknownType          = errors.New("transaction type must be class or payment")
	ErrInvalidDate          = errors.New("date must be YYYY-MM-DD")
	ErrDuplicateTransaction = errors.New("transaction id already exists")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrStudentNotFound      = errors.New("student not found")
	ErrEmptyName            = errors.New("student name is required")
	ErrNotConfirmed         = errors.New("deletion was not confirmed")

	errUnchanged = errors.New("unchanged")
)

// IsValidation reports whether err rejects the caller's input. Validation
// failures never change state.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyAmount) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrUnknownType) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrEmptyName)
}

// IsNotFound reports whether err names a transaction or student that does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTransactionNotFound) || errors.Is(err, ErrStudentNotFound)
}
