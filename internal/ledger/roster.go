package ledger

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sheikh-saqib/credit-tracker/internal/idgen"
	interfaces "github.com/sheikh-saqib/credit-tracker/internal/interfaces"
	"github.com/sheikh-saqib/credit-tracker/internal/metrics"
	"github.com/sheikh-saqib/credit-tracker/internal/models"
)

// Roster is the multi-student service: every student has an independent ledger,
// all of them stored together in one document.
type Roster struct {
	doc    *mirror[models.Roster]
	opts   Options
	logger *zap.Logger

	newStudentID func() string
}

func NewRoster(store interfaces.DocumentStore, opts Options, logger *zap.Logger) *Roster {
	opts = opts.withDefaults()
	logger = logger.Named("roster").With(zap.String("key", opts.Key))
	doc := newMirror("roster", opts.Key, store, models.Roster{Students: []models.Student{}}, logger)
	doc.normalize = normalizeRoster
	return &Roster{
		doc:          doc,
		opts:         opts,
		logger:       logger,
		newStudentID: idgen.StudentID,
	}
}

func normalizeRoster(r models.Roster) models.Roster {
	if r.Students == nil {
		r.Students = []models.Student{}
	}
	for i := range r.Students {
		r.Students[i].Ledger = normalizeLedger(r.Students[i].Ledger)
	}
	return r
}

func (r *Roster) Key() string {
	return r.opts.Key
}

func (r *Roster) Load(ctx context.Context) error {
	roster, found, err := r.doc.load(ctx)
	if err != nil {
		return fmt.Errorf("load roster %q: %w", r.opts.Key, err)
	}
	r.opts.IDs.Observe(roster.MaxID())
	r.logger.Info("roster loaded", zap.Bool("found", found), zap.Int("students", len(roster.Students)))
	return nil
}

func (r *Roster) Snapshot() models.Roster {
	return r.doc.snapshot()
}

// Student returns one student and their ledger.
func (r *Roster) Student(id string) (models.Student, error) {
	s, ok := r.Snapshot().Student(id)
	if !ok {
		return models.Student{}, fmt.Errorf("%w: %s", ErrStudentNotFound, id)
	}
	return s, nil
}

// Draft returns the form defaults for the student's next transaction.
func (r *Roster) Draft(studentID string) models.Draft {
	return models.NewDraft(r.opts.Now(), studentID)
}

func (r *Roster) AddStudent(name string) (models.Student, error) {
	var student models.Student
	_, err := r.doc.update(func(cur models.Roster) (models.Roster, error) {
		next, added, err := AddStudent(cur, r.newStudentID(), name)
		student = added
		return next, err
	})
	if err != nil {
		return models.Student{}, err
	}
	r.logger.Info("student added", zap.String("student", student.ID), zap.String("name", student.Name))
	return student, nil
}

// DeleteStudent removes a student and their whole ledger. selected is the
// caller's current selection; the returned selection is cleared when it pointed
// at the removed student.
func (r *Roster) DeleteStudent(id, selected string, confirm Confirm) (string, error) {
	existing, err := r.Student(id)
	if err != nil {
		r.logger.Warn("delete of unknown student", zap.String("student", id))
		return selected, err
	}
	if r.opts.RequireConfirmation && (confirm == nil || !confirm(fmt.Sprintf("student %s and %d transactions", existing.Name, len(existing.Transactions)))) {
		return selected, ErrNotConfirmed
	}

	newSelected := selected
	_, err = r.doc.update(func(cur models.Roster) (models.Roster, error) {
		next, sel, err := DeleteStudent(cur, id, selected)
		newSelected = sel
		return next, err
	})
	if err != nil {
		r.logger.Warn("delete of unknown student", zap.String("student", id))
		return selected, err
	}
	r.logger.Info("student deleted", zap.String("student", id))
	return newSelected, nil
}

func (r *Roster) AddTransaction(studentID string, d models.Draft) (models.Transaction, models.Student, error) {
	if d.Type == "" {
		d.Type = models.TypeClass
	}

	var tx models.Transaction
	roster, err := r.doc.update(func(cur models.Roster) (models.Roster, error) {
		next, added, err := AddStudentTransaction(cur, studentID, d, r.opts.IDs.Next(), r.opts.Now())
		tx = added
		return next, err
	})
	if err != nil {
		return models.Transaction{}, models.Student{}, err
	}

	student, _ := roster.Student(studentID)
	metrics.TransactionsAdded.WithLabelValues("roster", string(tx.Type)).Inc()
	r.logger.Info("transaction added",
		zap.String("student", studentID),
		zap.Int64("id", tx.ID),
		zap.String("type", string(tx.Type)),
		zap.String("amount", tx.Amount.String()),
		zap.String("balance", student.Balance.String()))
	return tx, student, nil
}

func (r *Roster) DeleteTransaction(studentID string, id int64, confirm Confirm) (models.Transaction, error) {
	student, err := r.Student(studentID)
	if err != nil {
		r.logger.Warn("delete for unknown student", zap.String("student", studentID), zap.Int64("id", id))
		return models.Transaction{}, err
	}
	existing, ok := student.Find(id)
	if !ok {
		r.logger.Warn("delete of unknown transaction", zap.String("student", studentID), zap.Int64("id", id))
		return models.Transaction{}, fmt.Errorf("%w: %d", ErrTransactionNotFound, id)
	}
	if r.opts.RequireConfirmation && (confirm == nil || !confirm(describe(existing))) {
		return models.Transaction{}, ErrNotConfirmed
	}

	var removed models.Transaction
	_, err = r.doc.update(func(cur models.Roster) (models.Roster, error) {
		next, tx, err := DeleteStudentTransaction(cur, studentID, id)
		removed = tx
		return next, err
	})
	if err != nil {
		r.logger.Warn("delete of unknown transaction", zap.String("student", studentID), zap.Int64("id", id))
		return models.Transaction{}, err
	}

	metrics.TransactionsDeleted.WithLabelValues("roster").Inc()
	r.logger.Info("transaction deleted", zap.String("student", studentID), zap.Int64("id", id))
	return removed, nil
}

// Rebalance recomputes every student balance that drifted from its transactions.
// It returns the ids of the repaired students.
func (r *Roster) Rebalance() []string {
	var repaired []string
	r.doc.update(func(cur models.Roster) (models.Roster, error) {
		students := make([]models.Student, len(cur.Students))
		copy(students, cur.Students)
		for i, s := range students {
			if !s.Consistent() {
				students[i].Ledger = Rebalance(s.Ledger)
				repaired = append(repaired, s.ID)
			}
		}
		if len(repaired) == 0 {
			return cur, errUnchanged
		}
		return models.Roster{Students: students}, nil
	})
	if len(repaired) > 0 {
		r.logger.Warn("balances repaired", zap.Strings("students", repaired))
	}
	return repaired
}

func (r *Roster) Apply(document []byte) error {
	roster, err := r.doc.replace(document)
	if err != nil {
		return fmt.Errorf("apply roster %q: %w", r.opts.Key, err)
	}
	r.opts.IDs.Observe(roster.MaxID())
	return nil
}

func (r *Roster) Watch() (<-chan models.Roster, func()) {
	return r.doc.watch()
}

func (r *Roster) Flush() {
	r.doc.flush()
}

func (r *Roster) Close() {
	r.doc.close()
}
