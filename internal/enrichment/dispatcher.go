package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"ghoststation/internal/classifier"
	"ghoststation/internal/config"
	"ghoststation/internal/correlate"
	"ghoststation/internal/feed"
	"ghoststation/internal/logging"
	"ghoststation/internal/services"
	"ghoststation/internal/store"
)

// ReasonBacklogFull is recorded on events dropped because the queue was full.
const ReasonBacklogFull = "enrichment backlog full"

// Correlator receives events once their classification is stored.
type Correlator interface {
	Correlate(ctx context.Context, eventID int64) (correlate.Result, error)
}

// Dispatcher classifies accepted events in the background. A fixed pool of
// workers drains a bounded queue; Dispatch never blocks. Every event gets
// exactly one writeback, successful or not.
type Dispatcher struct {
	store      *store.Store
	classifier classifier.Classifier
	correlator Correlator
	publisher  feed.Publisher
	logger     *slog.Logger
	workers    int

	queue    chan int64
	stopCh   chan struct{}
	inflight atomic.Int64

	mu       sync.RWMutex
	started  bool
	stopped  bool
	baseCtx  context.Context
	workerWG sync.WaitGroup
	sideWG   sync.WaitGroup
}

// NewDispatcher builds a dispatcher sized from the enrichment section.
// correlator and publisher may be nil.
func NewDispatcher(cfg *config.Config, st *store.Store, cls classifier.Classifier, correlator Correlator, publisher feed.Publisher, logger *slog.Logger) *Dispatcher {
	workers, queueSize := 4, 256
	if cfg != nil {
		if cfg.Enrichment.Workers > 0 {
			workers = cfg.Enrichment.Workers
		}
		if cfg.Enrichment.QueueSize > 0 {
			queueSize = cfg.Enrichment.QueueSize
		}
	}
	if publisher == nil {
		publisher = feed.Discard{}
	}
	return &Dispatcher{
		store:      st,
		classifier: cls,
		correlator: correlator,
		publisher:  publisher,
		logger:     logging.NewComponentLogger(logger, "enrichment"),
		workers:    workers,
		queue:      make(chan int64, queueSize),
		stopCh:     make(chan struct{}),
		baseCtx:    context.Background(),
	}
}

// Start loads events left pending by a previous run, then launches the
// workers and re-queues them. A failed Start leaves the dispatcher unstarted.
// Tasks run detached from ctx's cancellation so none is aborted mid-flight.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return errors.New("enrichment dispatcher already started")
	}
	pending, err := d.store.PendingEventIDs(ctx)
	if err != nil {
		d.mu.Unlock()
		return fmt.Errorf("load pending events: %w", err)
	}
	d.started = true
	d.baseCtx = context.WithoutCancel(ctx)
	d.mu.Unlock()

	for range d.workers {
		d.workerWG.Add(1)
		go d.worker()
	}
	if len(pending) > 0 {
		d.logger.Info("resuming pending enrichment", logging.Int("count", len(pending)))
		d.sideWG.Add(1)
		go d.resume(pending)
	}
	return nil
}

// resume queues ids with backpressure; unlike Dispatch it waits for room.
func (d *Dispatcher) resume(ids []int64) {
	defer d.sideWG.Done()
	for _, id := range ids {
		d.inflight.Add(1)
		select {
		case d.queue <- id:
		case <-d.stopCh:
			d.inflight.Add(-1)
			return
		}
	}
}

// Dispatch queues an event for classification without blocking. When the
// queue is full the event immediately receives the backlog sentinel.
func (d *Dispatcher) Dispatch(eventID int64) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		d.logger.Warn("dispatch after stop; event stays pending until restart", logging.Int64(logging.FieldEventID, eventID))
		return
	}

	d.inflight.Add(1)
	select {
	case d.queue <- eventID:
	default:
		d.sideWG.Add(1)
		go func() {
			defer d.sideWG.Done()
			defer d.inflight.Add(-1)
			ctx := d.taskContext(eventID)
			d.writeFailure(ctx, eventID, ReasonBacklogFull)
		}()
	}
}

// Backlog reports queued plus in-flight events.
func (d *Dispatcher) Backlog() int {
	return int(d.inflight.Load())
}

// Stop stops accepting work and waits for queued and in-flight tasks.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.stopCh)
	d.mu.Unlock()

	// resume may still be sending; it watches stopCh, so wait before closing.
	d.sideWG.Wait()
	close(d.queue)
	d.workerWG.Wait()
}

func (d *Dispatcher) worker() {
	defer d.workerWG.Done()
	for id := range d.queue {
		d.Process(d.taskContext(id), id)
		d.inflight.Add(-1)
	}
}

func (d *Dispatcher) taskContext(eventID int64) context.Context {
	d.mu.RLock()
	ctx := d.baseCtx
	d.mu.RUnlock()
	ctx = services.WithEventID(ctx, eventID)
	return services.WithStage(ctx, "enrichment")
}
