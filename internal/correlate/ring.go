package correlate

import (
	"sync"

	"ghoststation/internal/store"
)

// ring keeps the most recent captures of one modality. Older entries are
// overwritten once capacity is reached.
type ring struct {
	mu    sync.Mutex
	items []store.CaptureRef
	next  int
	full  bool
}

func newRing(capacity int) *ring {
	if capacity <= 0 {
		capacity = defaultHistorySize
	}
	return &ring{items: make([]store.CaptureRef, capacity)}
}

func (r *ring) add(ref store.CaptureRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[r.next] = ref
	r.next = (r.next + 1) % len(r.items)
	if r.next == 0 {
		r.full = true
	}
}

// snapshot copies the retained captures, oldest first.
func (r *ring) snapshot() []store.CaptureRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		return append([]store.CaptureRef(nil), r.items[:r.next]...)
	}
	out := make([]store.CaptureRef, 0, len(r.items))
	out = append(out, r.items[r.next:]...)
	return append(out, r.items[:r.next]...)
}

func (r *ring) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return len(r.items)
	}
	return r.next
}
