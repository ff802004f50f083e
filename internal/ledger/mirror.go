package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	interfaces "github.com/sheikh-saqib/credit-tracker/internal/interfaces"
	"github.com/sheikh-saqib/credit-tracker/internal/metrics"
)

// mirror holds the in-memory copy of one document and mirrors it to the store.
//
// Mutations replace the state under mu and queue the serialised document for a
// single writer goroutine. Callers never wait for the store. Queued documents are
// coalesced: the writer always sends the newest one, so the stored copy ends at
// the latest state even when writes are slower than mutations. A failed write is
// logged and dropped; the in-memory state is kept.
type mirror[T any] struct {
	name   string
	key    string
	store  interfaces.DocumentStore
	logger *zap.Logger

	// normalize, when set, fixes up documents read from the store or a peer
	normalize func(T) T

	mu        sync.Mutex // serialises mutations
	state     T
	watchers  map[int]chan T
	nextWatch int

	wmu     sync.Mutex // guards the write queue below
	flushed *sync.Cond
	pending []byte
	queued  uint64
	written uint64
	closed  bool
	kick    chan struct{}
	done    chan struct{}
}

func newMirror[T any](name, key string, store interfaces.DocumentStore, initial T, logger *zap.Logger) *mirror[T] {
	m := &mirror[T]{
		name:     name,
		key:      key,
		store:    store,
		logger:   logger,
		state:    initial,
		watchers: make(map[int]chan T),
		kick:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	m.flushed = sync.NewCond(&m.wmu)
	go m.run()
	return m
}

// load reads the document once. found is false when the store has nothing under
// the key; the state is then left as it is.
func (m *mirror[T]) load(ctx context.Context) (T, bool, error) {
	data, err := m.store.Get(ctx, m.key)
	if errors.Is(err, interfaces.ErrDocumentNotFound) {
		return m.snapshot(), false, nil
	}
	if err != nil {
		return m.snapshot(), false, err
	}

	var doc T
	if err := json.Unmarshal(data, &doc); err != nil {
		return m.snapshot(), false, err
	}
	if m.normalize != nil {
		doc = m.normalize(doc)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = doc
	m.broadcast(doc)
	return doc, true, nil
}

// replace installs a document written elsewhere. The last document to arrive wins.
func (m *mirror[T]) replace(data []byte) (T, error) {
	var doc T
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, err
	}
	if m.normalize != nil {
		doc = m.normalize(doc)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = doc
	m.broadcast(doc)
	metrics.RemoteUpdates.WithLabelValues(m.name).Inc()
	return doc, nil
}

func (m *mirror[T]) snapshot() T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// update applies fn to the current state and commits the result. When fn fails
// nothing changes.
func (m *mirror[T]) update(fn func(T) (T, error)) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := fn(m.state)
	if err != nil {
		return m.state, err
	}
	m.state = next
	m.broadcast(next)
	m.enqueue(next)
	return next, nil
}

// watch returns a channel that receives the current state and then every new
// one. Only the newest state is buffered. Call stop to release the channel.
func (m *mirror[T]) watch() (<-chan T, func()) {
	ch := make(chan T, 1)

	m.mu.Lock()
	id := m.nextWatch
	m.nextWatch++
	m.watchers[id] = ch
	ch <- m.state
	m.mu.Unlock()

	stop := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.watchers[id]; ok {
			delete(m.watchers, id)
			close(ch)
		}
	}
	return ch, stop
}

// broadcast must be called with mu held.
func (m *mirror[T]) broadcast(state T) {
	for _, ch := range m.watchers {
		select {
		case ch <- state:
			continue
		default:
		}
		// drop the stale state nobody read yet
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- state:
		default:
		}
	}
}

func (m *mirror[T]) enqueue(state T) {
	data, err := json.Marshal(state)
	if err != nil {
		m.logger.Error("encode document", zap.String("key", m.key), zap.Error(err))
		metrics.PersistFailures.WithLabelValues(m.name).Inc()
		return
	}

	m.wmu.Lock()
	defer m.wmu.Unlock()
	if m.closed {
		m.logger.Warn("document changed after close, not persisted", zap.String("key", m.key))
		return
	}
	m.pending = data
	m.queued++
	select {
	case m.kick <- struct{}{}:
	default:
	}
}

func (m *mirror[T]) run() {
	defer close(m.done)

	for range m.kick {
		m.wmu.Lock()
		data, seq := m.pending, m.queued
		m.pending = nil
		m.wmu.Unlock()

		if data != nil {
			if err := m.store.Set(context.Background(), m.key, data); err != nil {
				m.logger.Error("persist document",
					zap.String("key", m.key),
					zap.Int("bytes", len(data)),
					zap.Error(err))
				metrics.PersistFailures.WithLabelValues(m.name).Inc()
			}
		}

		m.wmu.Lock()
		m.written = seq
		m.flushed.Broadcast()
		m.wmu.Unlock()
	}
}

// flush blocks until every queued document has been handed to the store.
func (m *mirror[T]) flush() {
	m.wmu.Lock()
	defer m.wmu.Unlock()
	for m.written < m.queued {
		m.flushed.Wait()
	}
}

// close flushes and stops the writer. Later mutations stay in memory only.
func (m *mirror[T]) close() {
	m.flush()

	m.wmu.Lock()
	if !m.closed {
		m.closed = true
		close(m.kick)
	}
	m.wmu.Unlock()

	<-m.done
}
