package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"ghoststation/internal/capture"
	"ghoststation/internal/classifier"
	"ghoststation/internal/config"
	"ghoststation/internal/correlate"
	"ghoststation/internal/enrichment"
	"ghoststation/internal/feed"
	"ghoststation/internal/logging"
	"ghoststation/internal/preflight"
	"ghoststation/internal/source"
	"ghoststation/internal/store"
)

// Options carries collaborators the caller may want to supply. Zero values
// are replaced with the configured defaults.
type Options struct {
	Source     source.Source
	Classifier classifier.Classifier
	Hub        *feed.Hub
}

// Daemon owns the station components and enforces single-instance execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *store.Store
	source     source.Source
	engine     *correlate.Engine
	dispatcher *enrichment.Dispatcher
	hub        *feed.Hub
	capture    *capture.Service
	api        *apiServer

	lockPath string
	lock     *flock.Flock

	mu        sync.Mutex
	running   atomic.Bool
	stopped   bool
	startedAt time.Time
	cancel    context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, opts Options) (*Daemon, error) {
	if cfg == nil || st == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	src := opts.Source
	if src == nil {
		src = source.New(cfg)
	}
	cls := opts.Classifier
	if cls == nil {
		cls = classifier.NewLLM(cfg)
	}
	hub := opts.Hub
	if hub == nil {
		hub = feed.NewHub(logger)
	}

	engine := correlate.NewEngine(st, cfg, logger)
	dispatcher := enrichment.NewDispatcher(cfg, st, cls, engine, hub, logger)
	svc := capture.NewService(capture.Dependencies{
		Config:     cfg,
		Store:      st,
		Source:     src,
		Dispatcher: dispatcher,
		Recorder:   engine,
		Publisher:  hub,
		Logger:     logger,
	})

	d := &Daemon{
		cfg:        cfg,
		logger:     logger,
		store:      st,
		source:     src,
		engine:     engine,
		dispatcher: dispatcher,
		hub:        hub,
		capture:    svc,
		lockPath:   cfg.LockPath(),
		lock:       flock.New(cfg.LockPath()),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the lock, restores correlation history, starts the
// enrichment pool and opens the API listener.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if d.stopped {
		return errors.New("daemon cannot be restarted after stop")
	}

	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another ghoststation daemon instance is already running")
	}

	d.runPreflight(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.engine.Seed(runCtx); err != nil {
		logging.WarnWithContext(d.logger, "correlation history not restored", "correlation_seed_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "events captured before this start will not pair with new ones"),
		)
	}
	if err := d.dispatcher.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start enrichment: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		cancel()
		d.dispatcher.Stop()
		_ = d.lock.Unlock()
		d.stopped = true
		return err
	}

	d.cancel = cancel
	d.startedAt = time.Now()
	d.running.Store(true)
	d.logger.Info("ghoststation daemon started",
		logging.String("lock", d.lockPath),
		logging.String("camera", d.source.Describe()),
		logging.Bool("classifier", d.cfg.ClassifierEnabled()),
	)
	return nil
}

func (d *Daemon) runPreflight(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	for _, result := range preflight.Failed(preflight.RunAll(checkCtx, d.cfg, d.source)) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "fix the reported problem and restart the daemon"),
		)
	}
}

// Stop closes the API, drains enrichment and releases the lock. A stopped
// daemon cannot be started again.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}

	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.dispatcher.Stop()
	d.hub.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.stopped = true
	d.logger.Info("ghoststation daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	d.hub.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether Start succeeded and Stop has not run.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Addr is the address the API listens on, or empty before Start.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Handler exposes the API routes without a listener.
func (d *Daemon) Handler() http.Handler {
	return d.api.handler
}

// Capture exposes the capture service the API is built on.
func (d *Daemon) Capture() *capture.Service {
	return d.capture
}

// Uptime reports how long the daemon has been running.
func (d *Daemon) Uptime() time.Duration {
	if !d.running.Load() {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return time.Since(d.startedAt)
}
