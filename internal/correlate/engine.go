package correlate

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"ghoststation/internal/config"
	"ghoststation/internal/logging"
	"ghoststation/internal/services"
	"ghoststation/internal/store"
)

// Window is the maximum distance between two capture timestamps that still
// counts as synchronized.
const Window = 10 * time.Second

const defaultHistorySize = 256

const (
	ClassificationSynchrony = "multidimensional_synchrony"
	ClassificationIsolated  = "isolated_event"

	OriginGalactic         = "galactic_intelligence"
	OriginInterdimensional = "interdimensional_signal"
	OriginLocal            = "local_phenomenon"
)

// Result describes the outcome of one correlation attempt. Synchronized is
// true whenever the event carries a payload; Applied only for the attempt
// that wrote it.
type Result struct {
	EventID      int64
	PartnerID    int64
	Synchronized bool
	Applied      bool
	Correlation  *store.Correlation
}

// Classification returns the synchrony classification, or isolated.
func (r Result) Classification() string {
	if r.Synchronized && r.Correlation != nil {
		return r.Correlation.Classification
	}
	return ClassificationIsolated
}

// Engine pairs audio and video events whose captures fall inside Window.
// Attempts are serialized; the store's conditional write makes the first
// writer win even against a stale history.
type Engine struct {
	store  *store.Store
	logger *slog.Logger
	window time.Duration

	mu      sync.Mutex
	history map[store.Modality]*ring
}

// NewEngine builds an engine with per-modality history sized from cfg.
func NewEngine(st *store.Store, cfg *config.Config, logger *slog.Logger) *Engine {
	size := defaultHistorySize
	if cfg != nil && cfg.Correlation.HistorySize > 0 {
		size = cfg.Correlation.HistorySize
	}
	return &Engine{
		store:  st,
		logger: logging.NewComponentLogger(logger, "correlation"),
		window: Window,
		history: map[store.Modality]*ring{
			store.ModalityVideo: newRing(size),
			store.ModalityAudio: newRing(size),
		},
	}
}

// Seed loads recent captures from the store so correlation keeps working
// across restarts.
func (e *Engine) Seed(ctx context.Context) error {
	for modality, buf := range e.history {
		refs, err := e.store.RecentCaptures(ctx, modality, len(buf.items))
		if err != nil {
			return fmt.Errorf("seed %s history: %w", modality, err)
		}
		for _, ref := range refs {
			buf.add(ref)
		}
	}
	return nil
}

// Record adds an accepted event to its modality's history.
func (e *Engine) Record(ref store.CaptureRef) {
	if buf, ok := e.history[ref.Modality]; ok {
		buf.add(ref)
	}
}

// HistoryLen reports how many captures of modality are retained.
func (e *Engine) HistoryLen(modality store.Modality) int {
	if buf, ok := e.history[modality]; ok {
		return buf.len()
	}
	return 0
}

// Correlate looks for a synchronized partner for a freshly enriched event.
// The partner is the most recent opposite-modality capture within Window that
// is enriched and not yet correlated. Both events must be flagged anomalous.
func (e *Engine) Correlate(ctx context.Context, eventID int64) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	result := Result{EventID: eventID}
	event, err := e.store.GetEvent(ctx, eventID)
	if err != nil {
		return result, services.Wrap(services.ErrTransient, "correlation", "load event", "", err)
	}
	if event == nil {
		return result, services.Wrap(services.ErrNotFound, "correlation", "load event", fmt.Sprintf("event %d", eventID), nil)
	}
	logger := e.logger.With(logging.Int64(logging.FieldEventID, eventID), logging.String(logging.FieldModality, string(event.Modality)))

	if event.Correlation != nil {
		result.Synchronized = true
		result.Correlation = event.Correlation
		result.PartnerID = event.Correlation.PartnerOf(eventID)
		return result, nil
	}
	if !event.Enriched() || !event.Anomalous {
		return result, nil
	}

	partner, err := e.findPartner(ctx, event)
	if err != nil {
		return result, err
	}
	if partner == nil {
		logger.Debug("no partner inside window")
		return result, nil
	}
	if !partner.Anomalous {
		logger.Debug("partner not anomalous", logging.Int64("partner_id", partner.ID))
		return result, nil
	}

	payload := buildCorrelation(event, partner, e.store.Now())
	applied, err := e.store.ApplyCorrelation(ctx, payload.AudioEventID, payload.VideoEventID, payload)
	if err != nil {
		return result, services.Wrap(services.ErrTransient, "correlation", "apply", "", err)
	}
	if !applied {
		logger.Debug("partner already correlated", logging.Int64("partner_id", partner.ID))
		return result, nil
	}

	result.Synchronized = true
	result.Applied = true
	result.PartnerID = partner.ID
	result.Correlation = &payload
	logger.Info("synchronized events",
		logging.Int64("partner_id", partner.ID),
		logging.String("origin", payload.Origin),
		logging.Float64("coherence", payload.Coherence),
		logging.Float64("delta_seconds", payload.DeltaSeconds),
	)
	return result, nil
}

func (e *Engine) findPartner(ctx context.Context, event *store.Event) (*store.Event, error) {
	buf, ok := e.history[event.Modality.Opposite()]
	if !ok {
		return nil, nil
	}
	var ids []int64
	for _, ref := range buf.snapshot() {
		if ref.EventID != event.ID && withinWindow(event.CapturedAt, ref.CapturedAt, e.window) {
			ids = append(ids, ref.EventID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	candidates, err := e.store.GetEvents(ctx, ids...)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "correlation", "load candidates", "", err)
	}
	candidates = slices.DeleteFunc(candidates, func(c *store.Event) bool {
		return c.Modality == event.Modality || !c.Enriched() || c.Correlation != nil ||
			!withinWindow(event.CapturedAt, c.CapturedAt, e.window)
	})
	if len(candidates) == 0 {
		return nil, nil
	}
	return slices.MaxFunc(candidates, func(a, b *store.Event) int {
		if c := a.CapturedAt.Compare(b.CapturedAt); c != 0 {
			return c
		}
		return compareInt64(a.ID, b.ID)
	}), nil
}

func withinWindow(a, b time.Time, window time.Duration) bool {
	delta := a.Sub(b)
	if delta < 0 {
		delta = -delta
	}
	return delta <= window
}

func buildCorrelation(event, partner *store.Event, now time.Time) store.Correlation {
	audio, video := event, partner
	if event.Modality == store.ModalityVideo {
		audio, video = partner, event
	}
	geometric := hasGeometricSignature(video)
	cosmic := hasCosmicScore(audio)
	delta := math.Abs(event.CapturedAt.Sub(partner.CapturedAt).Seconds())
	return store.Correlation{
		Classification: ClassificationSynchrony,
		Origin:         Origin(geometric, cosmic),
		AudioEventID:   audio.ID,
		VideoEventID:   video.ID,
		Coherence:      (confidenceOf(audio) + confidenceOf(video)) / 2,
		DeltaSeconds:   math.Round(delta*1000) / 1000,
		Geometric:      geometric,
		Cosmic:         cosmic,
		CorrelatedAt:   now.UTC(),
	}
}

// Origin applies the two-by-two origin table.
func Origin(geometric, cosmic bool) string {
	switch {
	case geometric && cosmic:
		return OriginGalactic
	case geometric || cosmic:
		return OriginInterdimensional
	default:
		return OriginLocal
	}
}

func hasGeometricSignature(video *store.Event) bool {
	return video.Signature || strings.Contains(strings.ToLower(video.Label), "geometr")
}

func hasCosmicScore(audio *store.Event) bool {
	label := strings.ToLower(audio.Label)
	return audio.ParanormalScore > 7 || strings.Contains(label, "galactic") || strings.Contains(label, "galáctic")
}

func confidenceOf(event *store.Event) float64 {
	if event.Confidence == nil {
		return 0
	}
	return *event.Confidence
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
