package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/sheikh-saqib/credit-tracker/internal/idgen"
	interfaces "github.com/sheikh-saqib/credit-tracker/internal/interfaces"
	"github.com/sheikh-saqib/credit-tracker/internal/models"
	"github.com/sheikh-saqib/credit-tracker/internal/storage/memory"
)

// recordingStore counts writes and can be told to fail them.
type recordingStore struct {
	mu      sync.Mutex
	inner   *memory.MemoryDocumentStore
	sets    int
	failSet bool
	failGet bool
}

func newRecordingStore() *recordingStore {
	return &recordingStore{inner: memory.NewMemoryDocumentStore()}
}

func (s *recordingStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	fail := s.failGet
	s.mu.Unlock()
	if fail {
		return nil, errors.New("store unavailable")
	}
	return s.inner.Get(ctx, key)
}

func (s *recordingStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.sets++
	fail := s.failSet
	s.mu.Unlock()
	if fail {
		return errors.New("store unavailable")
	}
	return s.inner.Set(ctx, key, value)
}

func (s *recordingStore) writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets
}

func (s *recordingStore) stored(t *testing.T, key string) models.Ledger {
	t.Helper()
	data, err := s.inner.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("read %q: %v", key, err)
	}
	var l models.Ledger
	if err := json.Unmarshal(data, &l); err != nil {
		t.Fatalf("decode %q: %v", key, err)
	}
	return l
}

var _ interfaces.DocumentStore = (*recordingStore)(nil)

func frozenClock() time.Time { return testNow }

func newTestTracker(t *testing.T, store interfaces.DocumentStore, opts Options) *Tracker {
	t.Helper()
	if opts.Key == "" {
		opts.Key = "creditTracker"
	}
	if opts.IDs == nil {
		opts.IDs = idgen.NewMonotonicWithClock(func() time.Time { return time.UnixMilli(0) })
	}
	if opts.Now == nil {
		opts.Now = frozenClock
	}
	tr := NewTracker(store, opts, zaptest.NewLogger(t))
	t.Cleanup(tr.Close)
	return tr
}

func TestTrackerPersistsEveryChange(t *testing.T) {
	store := newRecordingStore()
	tr := newTestTracker(t, store, Options{})

	if _, _, err := tr.AddTransaction(draft(models.TypeClass, "50")); err != nil {
		t.Fatalf("add class: %v", err)
	}
	payment, _, err := tr.AddTransaction(draft(models.TypePayment, "100"))
	if err != nil {
		t.Fatalf("add payment: %v", err)
	}
	tr.Flush()

	stored := store.stored(t, "creditTracker")
	if !stored.Balance.Equal(dec(t, "50")) || len(stored.Transactions) != 2 {
		t.Fatalf("stored ledger = %+v", stored)
	}
	if stored.Transactions[0].ID != payment.ID {
		t.Fatalf("stored order: newest should be first, got %+v", stored.Transactions)
	}
}

func TestTrackerStoredDocumentUsesNumbers(t *testing.T) {
	store := newRecordingStore()
	tr := newTestTracker(t, store, Options{})

	if _, _, err := tr.AddTransaction(draft(models.TypePayment, "12.5")); err != nil {
		t.Fatal(err)
	}
	tr.Flush()

	raw, err := store.inner.Get(context.Background(), "creditTracker")
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatal(err)
	}
	if _, ok := doc["balance"].(float64); !ok {
		t.Fatalf("balance stored as %T, want a JSON number", doc["balance"])
	}
}

func TestTrackerCoalescesWritesToLatestState(t *testing.T) {
	store := newRecordingStore()
	tr := newTestTracker(t, store, Options{})

	for i := 0; i < 50; i++ {
		if _, _, err := tr.AddTransaction(draft(models.TypePayment, "1")); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	tr.Flush()

	stored := store.stored(t, "creditTracker")
	if len(stored.Transactions) != 50 || !stored.Balance.Equal(dec(t, "50")) {
		t.Fatalf("stored %d transactions with balance %s, want 50 and 50", len(stored.Transactions), stored.Balance)
	}
	if n := store.writes(); n > 50 {
		t.Fatalf("%d writes for 50 changes", n)
	}
}

func TestTrackerKeepsStateWhenStoreFails(t *testing.T) {
	store := newRecordingStore()
	store.failSet = true
	tr := newTestTracker(t, store, Options{})

	_, l, err := tr.AddTransaction(draft(models.TypeClass, "20"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	tr.Flush()

	if !l.Balance.Equal(dec(t, "-20")) || !tr.Snapshot().Balance.Equal(dec(t, "-20")) {
		t.Fatalf("in-memory state lost after failed write: %+v", tr.Snapshot())
	}
	if store.writes() == 0 {
		t.Fatalf("no write was attempted")
	}
}

func TestTrackerRejectedDraftChangesNothing(t *testing.T) {
	store := newRecordingStore()
	tr := newTestTracker(t, store, Options{})

	if _, _, err := tr.AddTransaction(draft(models.TypeClass, "")); !errors.Is(err, ErrEmptyAmount) {
		t.Fatalf("err = %v, want ErrEmptyAmount", err)
	}
	if _, _, err := tr.AddTransaction(draft(models.TypeClass, "ten")); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("err = %v, want ErrInvalidAmount", err)
	}
	tr.Flush()

	if len(tr.Snapshot().Transactions) != 0 || store.writes() != 0 {
		t.Fatalf("rejected drafts changed state: %+v, %d writes", tr.Snapshot(), store.writes())
	}
}

func TestTrackerDraftDefaults(t *testing.T) {
	tr := newTestTracker(t, newRecordingStore(), Options{DefaultStudent: "Dima"})

	d := tr.Draft()
	if d.Type != models.TypeClass || d.Date != "2024-03-15" || d.Student != "Dima" || d.Amount != "" {
		t.Fatalf("draft = %+v", d)
	}

	tx, _, err := tr.AddTransaction(models.Draft{Amount: "15"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if tx.Type != models.TypeClass || tx.Student != "Dima" || tx.Date != "2024-03-15" {
		t.Fatalf("defaults not applied: %+v", tx)
	}
}

func TestTrackerDeleteConfirmation(t *testing.T) {
	tr := newTestTracker(t, newRecordingStore(), Options{RequireConfirmation: true})
	tx, _, err := tr.AddTransaction(draft(models.TypeClass, "30"))
	if err != nil {
		t.Fatal(err)
	}

	var asked string
	refuse := func(what string) bool { asked = what; return false }
	if _, err := tr.DeleteTransaction(tx.ID, refuse); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("refused delete err = %v", err)
	}
	if !strings.Contains(asked, "class") || !strings.Contains(asked, "30.00") {
		t.Fatalf("confirmation prompt %q does not describe the transaction", asked)
	}
	if _, err := tr.DeleteTransaction(tx.ID, nil); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("unconfirmed delete err = %v", err)
	}
	if len(tr.Snapshot().Transactions) != 1 {
		t.Fatalf("transaction removed without confirmation")
	}

	removed, err := tr.DeleteTransaction(tx.ID, func(string) bool { return true })
	if err != nil {
		t.Fatalf("confirmed delete: %v", err)
	}
	if removed.ID != tx.ID || !tr.Snapshot().Balance.IsZero() {
		t.Fatalf("after delete: removed %+v, ledger %+v", removed, tr.Snapshot())
	}
}

func TestTrackerDeleteWithoutConfirmationPolicy(t *testing.T) {
	tr := newTestTracker(t, newRecordingStore(), Options{})
	tx, _, _ := tr.AddTransaction(draft(models.TypePayment, "30"))

	if _, err := tr.DeleteTransaction(tx.ID, nil); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := tr.DeleteTransaction(tx.ID, nil); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("second delete err = %v, want ErrTransactionNotFound", err)
	}
}

func TestTrackerLoad(t *testing.T) {
	store := newRecordingStore()
	doc := `{"balance":-50,"transactions":[{"id":5,"type":"class","amount":50,"date":"2024-01-01","timestamp":"2024-01-01T09:00:00Z"}]}`
	if err := store.inner.Set(context.Background(), "creditTracker", []byte(doc)); err != nil {
		t.Fatal(err)
	}
	tr := newTestTracker(t, store, Options{})

	if err := tr.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	l := tr.Snapshot()
	if !l.Balance.Equal(dec(t, "-50")) || len(l.Transactions) != 1 {
		t.Fatalf("loaded ledger = %+v", l)
	}

	tx, _, err := tr.AddTransaction(draft(models.TypePayment, "10"))
	if err != nil {
		t.Fatal(err)
	}
	if tx.ID <= 5 {
		t.Fatalf("new id %d collides with loaded ids", tx.ID)
	}
}

func TestTrackerLoadMissingAndBrokenDocuments(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		tr := newTestTracker(t, newRecordingStore(), Options{})
		if err := tr.Load(context.Background()); err != nil {
			t.Fatalf("load: %v", err)
		}
		l := tr.Snapshot()
		if !l.Balance.IsZero() || l.Transactions == nil || len(l.Transactions) != 0 {
			t.Fatalf("ledger = %+v, want empty", l)
		}
	})

	t.Run("null transactions", func(t *testing.T) {
		store := newRecordingStore()
		_ = store.inner.Set(context.Background(), "creditTracker", []byte(`{"balance":0,"transactions":null}`))
		tr := newTestTracker(t, store, Options{})
		if err := tr.Load(context.Background()); err != nil {
			t.Fatalf("load: %v", err)
		}
		if tr.Snapshot().Transactions == nil {
			t.Fatalf("transactions left nil")
		}
	})

	t.Run("read error", func(t *testing.T) {
		store := newRecordingStore()
		store.failGet = true
		tr := newTestTracker(t, store, Options{})
		if err := tr.Load(context.Background()); err == nil {
			t.Fatalf("load succeeded on a failing store")
		}
		if len(tr.Snapshot().Transactions) != 0 {
			t.Fatalf("ledger not empty after failed load")
		}
		if _, _, err := tr.AddTransaction(draft(models.TypeClass, "5")); err != nil {
			t.Fatalf("tracker unusable after failed load: %v", err)
		}
	})
}

func TestTrackerApplyRemoteDocument(t *testing.T) {
	store := newRecordingStore()
	tr := newTestTracker(t, store, Options{})
	if _, _, err := tr.AddTransaction(draft(models.TypeClass, "10")); err != nil {
		t.Fatal(err)
	}
	tr.Flush()
	before := store.writes()

	remote := `{"balance":75,"transactions":[{"id":900,"type":"payment","amount":75,"date":"2024-03-01","timestamp":"2024-03-01T09:00:00Z"}]}`
	if err := tr.Apply([]byte(remote)); err != nil {
		t.Fatalf("apply: %v", err)
	}
	tr.Flush()

	l := tr.Snapshot()
	if !l.Balance.Equal(dec(t, "75")) || len(l.Transactions) != 1 || l.Transactions[0].ID != 900 {
		t.Fatalf("remote document not applied: %+v", l)
	}
	if store.writes() != before {
		t.Fatalf("remote document was written back")
	}

	tx, _, _ := tr.AddTransaction(draft(models.TypeClass, "1"))
	if tx.ID <= 900 {
		t.Fatalf("id %d not above remote ids", tx.ID)
	}

	if err := tr.Apply([]byte("{not json")); err == nil {
		t.Fatalf("broken remote document accepted")
	}
}

func TestTrackerWatch(t *testing.T) {
	tr := newTestTracker(t, newRecordingStore(), Options{})

	updates, stop := tr.Watch()
	defer stop()

	first := receive(t, updates)
	if len(first.Transactions) != 0 {
		t.Fatalf("first state = %+v, want empty", first)
	}

	if _, _, err := tr.AddTransaction(draft(models.TypePayment, "40")); err != nil {
		t.Fatal(err)
	}
	next := receive(t, updates)
	if !next.Balance.Equal(dec(t, "40")) {
		t.Fatalf("watched balance = %s, want 40", next.Balance)
	}

	stop()
	if _, ok := <-updates; ok {
		t.Fatalf("channel still open after stop")
	}
}

func TestTrackerWatchKeepsOnlyLatest(t *testing.T) {
	tr := newTestTracker(t, newRecordingStore(), Options{})
	updates, stop := tr.Watch()
	defer stop()

	for i := 0; i < 5; i++ {
		if _, _, err := tr.AddTransaction(draft(models.TypePayment, "1")); err != nil {
			t.Fatal(err)
		}
	}
	latest := receive(t, updates)
	if len(latest.Transactions) != 5 {
		t.Fatalf("slow watcher got %d transactions, want the latest state with 5", len(latest.Transactions))
	}
}

func TestTrackerRebalance(t *testing.T) {
	tr := newTestTracker(t, newRecordingStore(), Options{})
	drifted := `{"balance":999,"transactions":[{"id":1,"type":"payment","amount":40,"date":"2024-03-01","timestamp":"2024-03-01T09:00:00Z"}]}`
	if err := tr.Apply([]byte(drifted)); err != nil {
		t.Fatal(err)
	}

	l, changed := tr.Rebalance()
	if !changed || !l.Balance.Equal(dec(t, "40")) {
		t.Fatalf("rebalance = %s, changed %v", l.Balance, changed)
	}
	if _, changed := tr.Rebalance(); changed {
		t.Fatalf("consistent ledger reported as changed")
	}
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for an update")
	}
	var zero T
	return zero
}
