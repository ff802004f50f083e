package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/credit-tracker/internal/idgen"
	interfaces "github.com/sheikh-saqib/credit-tracker/internal/interfaces"
	"github.com/sheikh-saqib/credit-tracker/internal/metrics"
	"github.com/sheikh-saqib/credit-tracker/internal/models"
)

// Confirm is asked before a deletion when the service requires confirmation.
// what describes the record about to be deleted.
type Confirm func(what string) bool

// Options configures a Tracker or a Roster.
type Options struct {
	Key                 string // document key in the store
	DefaultStudent      string // student label used when a draft names none
	RequireConfirmation bool   // deletions need an approving Confirm

	IDs *idgen.Monotonic // shared so ids stay unique across documents
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.IDs == nil {
		o.IDs = idgen.NewMonotonic()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Tracker is the single-ledger service. It holds the ledger in memory, applies
// mutations one at a time and mirrors the document to the store after each one.
type Tracker struct {
	doc    *mirror[models.Ledger]
	opts   Options
	logger *zap.Logger
}

// NewTracker creates a Tracker with an empty ledger. Call Load to read the stored one.
func NewTracker(store interfaces.DocumentStore, opts Options, logger *zap.Logger) *Tracker {
	opts = opts.withDefaults()
	logger = logger.Named("tracker").With(zap.String("key", opts.Key))
	empty := models.Ledger{Balance: decimal.Zero, Transactions: []models.Transaction{}}
	doc := newMirror("ledger", opts.Key, store, empty, logger)
	doc.normalize = normalizeLedger
	return &Tracker{
		doc:    doc,
		opts:   opts,
		logger: logger,
	}
}

func normalizeLedger(l models.Ledger) models.Ledger {
	if l.Transactions == nil {
		l.Transactions = []models.Transaction{}
	}
	return l
}

// Key returns the store key of the ledger document.
func (t *Tracker) Key() string {
	return t.opts.Key
}

// Load reads the stored ledger. A missing document leaves the ledger empty. On a
// read error the ledger also stays empty and the error is returned.
func (t *Tracker) Load(ctx context.Context) error {
	l, found, err := t.doc.load(ctx)
	if err != nil {
		return fmt.Errorf("load ledger %q: %w", t.opts.Key, err)
	}
	t.opts.IDs.Observe(l.MaxID())
	t.logger.Info("ledger loaded",
		zap.Bool("found", found),
		zap.Int("transactions", len(l.Transactions)),
		zap.String("balance", l.Balance.String()))
	return nil
}

// Snapshot returns the current ledger. The returned value must not be modified.
func (t *Tracker) Snapshot() models.Ledger {
	return t.doc.snapshot()
}

// Draft returns the form defaults for a new transaction.
func (t *Tracker) Draft() models.Draft {
	return models.NewDraft(t.opts.Now(), t.opts.DefaultStudent)
}

// AddTransaction records the draft as a new transaction. Invalid drafts return a
// validation error and leave the ledger as it was.
func (t *Tracker) AddTransaction(d models.Draft) (models.Transaction, models.Ledger, error) {
	if d.Type == "" {
		d.Type = models.TypeClass
	}
	if d.Student == "" {
		d.Student = t.opts.DefaultStudent
	}

	var tx models.Transaction
	l, err := t.doc.update(func(cur models.Ledger) (models.Ledger, error) {
		next, added, err := AddTransaction(cur, d, t.opts.IDs.Next(), t.opts.Now())
		tx = added
		return next, err
	})
	if err != nil {
		t.logger.Debug("transaction rejected", zap.Error(err))
		return models.Transaction{}, l, err
	}

	metrics.TransactionsAdded.WithLabelValues("ledger", string(tx.Type)).Inc()
	t.logger.Info("transaction added",
		zap.Int64("id", tx.ID),
		zap.String("type", string(tx.Type)),
		zap.String("amount", tx.Amount.String()),
		zap.String("balance", l.Balance.String()))
	return tx, l, nil
}

// DeleteTransaction removes a transaction and reverses its effect on the balance.
// A missing id is reported with ErrTransactionNotFound and changes nothing.
func (t *Tracker) DeleteTransaction(id int64, confirm Confirm) (models.Transaction, error) {
	existing, ok := t.Snapshot().Find(id)
	if !ok {
		t.logger.Warn("delete of unknown transaction", zap.Int64("id", id))
		return models.Transaction{}, fmt.Errorf("%w: %d", ErrTransactionNotFound, id)
	}
	if t.opts.RequireConfirmation && (confirm == nil || !confirm(describe(existing))) {
		return models.Transaction{}, ErrNotConfirmed
	}

	var removed models.Transaction
	l, err := t.doc.update(func(cur models.Ledger) (models.Ledger, error) {
		next, tx, err := DeleteTransaction(cur, id)
		removed = tx
		return next, err
	})
	if err != nil {
		// removed by someone else between the lookup and the update
		t.logger.Warn("delete of unknown transaction", zap.Int64("id", id))
		return models.Transaction{}, err
	}

	metrics.TransactionsDeleted.WithLabelValues("ledger").Inc()
	t.logger.Info("transaction deleted",
		zap.Int64("id", removed.ID),
		zap.String("balance", l.Balance.String()))
	return removed, nil
}

// Rebalance rewrites the balance from the transaction list. It reports whether
// the balance changed; an unchanged ledger is not written.
func (t *Tracker) Rebalance() (models.Ledger, bool) {
	changed := false
	l, _ := t.doc.update(func(cur models.Ledger) (models.Ledger, error) {
		if cur.Consistent() {
			return cur, errUnchanged
		}
		changed = true
		return Rebalance(cur), nil
	})
	if changed {
		t.logger.Warn("balance repaired", zap.String("balance", l.Balance.String()))
	}
	return l, changed
}

// Apply replaces the ledger with a document written by another instance.
func (t *Tracker) Apply(document []byte) error {
	l, err := t.doc.replace(document)
	if err != nil {
		return fmt.Errorf("apply ledger %q: %w", t.opts.Key, err)
	}
	t.opts.IDs.Observe(l.MaxID())
	return nil
}

// Watch streams ledger states, starting with the current one.
func (t *Tracker) Watch() (<-chan models.Ledger, func()) {
	return t.doc.watch()
}

// Flush waits until every change so far has been handed to the store.
func (t *Tracker) Flush() {
	t.doc.flush()
}

// Close flushes pending writes and stops the writer.
func (t *Tracker) Close() {
	t.doc.close()
}

func describe(tx models.Transaction) string {
	return fmt.Sprintf("%s of %s on %s (id %d)", tx.Type, tx.Amount.StringFixed(2), tx.Date, tx.ID)
}
