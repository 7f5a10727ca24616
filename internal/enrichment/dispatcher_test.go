package enrichment_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ghoststation/internal/classifier"
	"ghoststation/internal/correlate"
	"ghoststation/internal/enrichment"
	"ghoststation/internal/feed"
	"ghoststation/internal/logging"
	"ghoststation/internal/services/llm"
	"ghoststation/internal/store"
	"ghoststation/internal/testsupport"
)

type classifierFunc func(context.Context, classifier.Request) (classifier.Verdict, error)

func (f classifierFunc) Classify(ctx context.Context, req classifier.Request) (classifier.Verdict, error) {
	return f(ctx, req)
}

type recorder struct {
	mu    sync.Mutex
	items []feed.Notification
}

func (r *recorder) Publish(n feed.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *recorder) count(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, item := range r.items {
		if item.Type == kind {
			n++
		}
	}
	return n
}

func anomalousVerdict(_ context.Context, req classifier.Request) (classifier.Verdict, error) {
	return classifier.Verdict{Label: "apparition", Confidence: 75, Anomalous: true, Rationale: string(req.Modality)}, nil
}

func waitForEvent(t *testing.T, st *store.Store, id int64, done func(*store.Event) bool) *store.Event {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		event, err := st.GetEvent(context.Background(), id)
		if err != nil {
			t.Fatalf("GetEvent: %v", err)
		}
		if event != nil && done(event) {
			return event
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for event %d, last state %+v", id, event)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func enriched(e *store.Event) bool { return e.Enriched() }

func insertVideo(t *testing.T, st *store.Store, dir string) *store.Event {
	t.Helper()
	path := filepath.Join(dir, "frame.jpg")
	testsupport.WriteFrame(t, path, testsupport.Frame(32, 32, 40, nil, 0))
	event, err := st.InsertEvent(context.Background(), &store.Event{Modality: store.ModalityVideo, Kind: "visual", Score: 2, RegionCount: 1, FramePath: path})
	if err != nil {
		t.Fatalf("InsertEvent: %v", err)
	}
	return event
}

func TestDispatchWritesVerdict(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	rec := &recorder{}
	var seen atomic.Value
	cls := classifierFunc(func(ctx context.Context, req classifier.Request) (classifier.Verdict, error) {
		seen.Store(req)
		return anomalousVerdict(ctx, req)
	})
	d := enrichment.NewDispatcher(cfg, st, cls, nil, rec, logging.NewNop())
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	event := insertVideo(t, st, t.TempDir())
	d.Dispatch(event.ID)

	got := waitForEvent(t, st, event.ID, enriched)
	if got.EnrichmentStatus != store.EnrichmentEnriched || got.Label != "apparition" || !got.Anomalous {
		t.Fatalf("unexpected enrichment %+v", got)
	}
	if got.Confidence == nil || *got.Confidence != 75 {
		t.Fatalf("confidence = %v", got.Confidence)
	}
	req := seen.Load().(classifier.Request)
	if req.Modality != classifier.ModalityVisual || len(req.Frame) == 0 || req.FrameMIMEType != "image/jpeg" {
		t.Fatalf("unexpected classifier request: modality=%s frame=%d mime=%q", req.Modality, len(req.Frame), req.FrameMIMEType)
	}
	d.Stop()
	if rec.count(feed.TypeEventEnriched) != 1 {
		t.Fatalf("expected one enriched notification, got %d", rec.count(feed.TypeEventEnriched))
	}
}

func TestDispatchInvalidJSONLeavesEventUnanalyzed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"I think it is a ghost"}}]}`)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithClassifier(server.URL))
	st := testsupport.MustOpenStore(t, cfg)
	d := enrichment.NewDispatcher(cfg, st, classifier.NewLLM(cfg, llm.WithRetryMaxAttempts(1)), nil, nil, logging.NewNop())
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	event, err := st.InsertEvent(context.Background(), &store.Event{Modality: store.ModalityAudio, Kind: "audio", Score: 2, Transcript: "leave"})
	if err != nil {
		t.Fatalf("InsertEvent: %v", err)
	}
	d.Dispatch(event.ID)

	got := waitForEvent(t, st, event.ID, enriched)
	if got.EnrichmentStatus != store.EnrichmentUnanalyzed || got.Label != store.LabelUnanalyzed {
		t.Fatalf("expected unanalyzed sentinel, got %+v", got)
	}
	if got.Confidence == nil || *got.Confidence != 0 {
		t.Fatalf("confidence = %v, want 0", got.Confidence)
	}
	if !strings.HasPrefix(got.Rationale, "classifier error") {
		t.Fatalf("rationale = %q", got.Rationale)
	}
}

func TestDispatchWithoutCredentials(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	d := enrichment.NewDispatcher(cfg, st, classifier.NewLLM(cfg), nil, nil, logging.NewNop())
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	event := testsupport.InsertEvent(t, st, store.ModalityAudio, 2)
	d.Dispatch(event.ID)
	got := waitForEvent(t, st, event.ID, enriched)
	if got.EnrichmentStatus != store.EnrichmentUnanalyzed || got.Rationale != "classifier not configured" {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestDispatchMissingFrame(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	var calls atomic.Int32
	cls := classifierFunc(func(ctx context.Context, req classifier.Request) (classifier.Verdict, error) {
		calls.Add(1)
		return anomalousVerdict(ctx, req)
	})
	d := enrichment.NewDispatcher(cfg, st, cls, nil, nil, logging.NewNop())
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	event, err := st.InsertEvent(context.Background(), &store.Event{Modality: store.ModalityVideo, Kind: "visual", Score: 2, FramePath: filepath.Join(t.TempDir(), "gone.jpg")})
	if err != nil {
		t.Fatalf("InsertEvent: %v", err)
	}
	d.Dispatch(event.ID)
	got := waitForEvent(t, st, event.ID, enriched)
	if got.EnrichmentStatus != store.EnrichmentUnanalyzed || !strings.HasPrefix(got.Rationale, "frame unavailable") {
		t.Fatalf("unexpected result %+v", got)
	}
	if calls.Load() != 0 {
		t.Fatal("classifier should not be called without a frame")
	}
}

func TestDispatchFullQueueWritesBacklogSentinel(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithEnrichment(1, 1))
	st := testsupport.MustOpenStore(t, cfg)
	entered := make(chan struct{}, 4)
	release := make(chan struct{})
	cls := classifierFunc(func(ctx context.Context, req classifier.Request) (classifier.Verdict, error) {
		entered <- struct{}{}
		<-release
		return anomalousVerdict(ctx, req)
	})
	d := enrichment.NewDispatcher(cfg, st, cls, nil, nil, logging.NewNop())
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	busy := testsupport.InsertEvent(t, st, store.ModalityAudio, 2)
	queued := testsupport.InsertEvent(t, st, store.ModalityAudio, 2)
	dropped := testsupport.InsertEvent(t, st, store.ModalityAudio, 2)

	d.Dispatch(busy.ID)
	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("worker never picked up the first event")
	}

	start := time.Now()
	d.Dispatch(queued.ID)
	d.Dispatch(dropped.ID)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("dispatch blocked for %s", elapsed)
	}

	got := waitForEvent(t, st, dropped.ID, enriched)
	if got.EnrichmentStatus != store.EnrichmentUnanalyzed || got.Rationale != enrichment.ReasonBacklogFull {
		t.Fatalf("expected backlog sentinel, got %+v", got)
	}
	close(release)
	d.Stop()
	for _, id := range []int64{busy.ID, queued.ID} {
		event, err := st.GetEvent(context.Background(), id)
		if err != nil || event.EnrichmentStatus != store.EnrichmentEnriched {
			t.Fatalf("event %d not enriched after stop: %+v, %v", id, event, err)
		}
	}
	if d.Backlog() != 0 {
		t.Fatalf("backlog after stop = %d", d.Backlog())
	}
}

func TestStartResumesPendingEvents(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithEnrichment(1, 1))
	st := testsupport.MustOpenStore(t, cfg)
	var ids []int64
	for range 4 {
		ids = append(ids, testsupport.InsertEvent(t, st, store.ModalityAudio, 2).ID)
	}

	d := enrichment.NewDispatcher(cfg, st, classifierFunc(anomalousVerdict), nil, nil, logging.NewNop())
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	for _, id := range ids {
		got := waitForEvent(t, st, id, enriched)
		if got.EnrichmentStatus != store.EnrichmentEnriched {
			t.Fatalf("resumed event %d got %+v", id, got)
		}
	}
}

func TestProcessWritesBackOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	var calls atomic.Int32
	cls := classifierFunc(func(ctx context.Context, req classifier.Request) (classifier.Verdict, error) {
		calls.Add(1)
		return anomalousVerdict(ctx, req)
	})
	d := enrichment.NewDispatcher(cfg, st, cls, nil, nil, logging.NewNop())
	event := testsupport.InsertEvent(t, st, store.ModalityAudio, 2)

	d.Process(context.Background(), event.ID)
	d.Process(context.Background(), event.ID)
	if calls.Load() != 1 {
		t.Fatalf("classifier called %d times, want 1", calls.Load())
	}
}

func TestEnrichmentTriggersCorrelation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	clock := testsupport.NewClock(time.Date(2026, 10, 31, 23, 0, 0, 0, time.UTC))
	st.SetClock(clock.Now)
	engine := correlate.NewEngine(st, cfg, logging.NewNop())
	rec := &recorder{}
	d := enrichment.NewDispatcher(cfg, st, classifierFunc(anomalousVerdict), engine, rec, logging.NewNop())

	audio, err := st.InsertEvent(context.Background(), &store.Event{Modality: store.ModalityAudio, Kind: "audio", Score: 2, Transcript: "here"})
	if err != nil {
		t.Fatalf("InsertEvent: %v", err)
	}
	clock.Advance(5 * time.Second)
	video := insertVideo(t, st, t.TempDir())
	for _, e := range []*store.Event{audio, video} {
		engine.Record(store.CaptureRef{EventID: e.ID, Modality: e.Modality, CapturedAt: e.CapturedAt})
	}

	d.Process(context.Background(), audio.ID)
	d.Process(context.Background(), video.ID)

	for _, id := range []int64{audio.ID, video.ID} {
		event, err := st.GetEvent(context.Background(), id)
		if err != nil || event.Correlation == nil {
			t.Fatalf("event %d missing correlation: %+v, %v", id, event, err)
		}
	}
	if rec.count(feed.TypeSynchronized) != 1 {
		t.Fatalf("expected one synchronized notification, got %d", rec.count(feed.TypeSynchronized))
	}
}

func TestDispatchAfterStopLeavesEventPending(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	d := enrichment.NewDispatcher(cfg, st, classifierFunc(anomalousVerdict), nil, nil, logging.NewNop())
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	d.Stop()

	event := testsupport.InsertEvent(t, st, store.ModalityAudio, 2)
	d.Dispatch(event.ID)
	got, err := st.GetEvent(context.Background(), event.ID)
	if err != nil || got.EnrichmentStatus != store.EnrichmentPending {
		t.Fatalf("expected pending event, got %+v, %v", got, err)
	}
}

func TestStartFailureLeavesDispatcherUnstarted(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	d := enrichment.NewDispatcher(cfg, st, classifierFunc(anomalousVerdict), nil, nil, logging.NewNop())
	if err := st.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	for attempt := 1; attempt <= 2; attempt++ {
		err := d.Start(context.Background())
		if err == nil || !strings.Contains(err.Error(), "load pending events") {
			t.Fatalf("attempt %d: expected pending load failure, got %v", attempt, err)
		}
	}
	if d.Backlog() != 0 {
		t.Fatalf("backlog = %d after failed start", d.Backlog())
	}

	done := make(chan struct{})
	go func() {
		d.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop blocked after a failed Start")
	}
}
