package testsupport

import (
	"context"
	"sync"
	"testing"
	"time"

	"ghoststation/internal/config"
	"ghoststation/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at a fixed instant.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start.UTC()}
}

// Now returns the current clock reading.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// InsertEvent stores an event with sensible defaults for the fields tests do
// not care about.
func InsertEvent(t testing.TB, st *store.Store, modality store.Modality, score int) *store.Event {
	t.Helper()

	kind := "visual"
	if modality == store.ModalityAudio {
		kind = "audio"
	}
	if score < 1 {
		score = 1
	}
	event, err := st.InsertEvent(context.Background(), &store.Event{
		Modality: modality,
		Kind:     kind,
		Score:    score,
	})
	if err != nil {
		t.Fatalf("InsertEvent: %v", err)
	}
	return event
}
