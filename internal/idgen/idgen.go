package idgen

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Monotonic hands out int64 ids derived from the wall clock in milliseconds.
// An id is never handed out twice: when the clock has not moved past the last id,
// the next id is last+1.
type Monotonic struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewMonotonic() *Monotonic {
	return &Monotonic{now: time.Now}
}

// NewMonotonicWithClock is NewMonotonic with an injectable clock.
func NewMonotonicWithClock(now func() time.Time) *Monotonic {
	return &Monotonic{now: now}
}

func (m *Monotonic) Next() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.now().UnixMilli()
	if id <= m.last {
		id = m.last + 1
	}
	m.last = id
	return id
}

// Observe records an id that is already in use so later ids stay above it.
func (m *Monotonic) Observe(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id > m.last {
		m.last = id
	}
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// SessionID returns a new lexically sortable session id, e.g. sess_01J9...
func SessionID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return "sess_" + ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// StudentID returns a random student id.
func StudentID() string {
	return uuid.New().String()
}
