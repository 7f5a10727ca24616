package enrichment

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"ghoststation/internal/classifier"
	"ghoststation/internal/feed"
	"ghoststation/internal/logging"
	"ghoststation/internal/store"
)

const maxReasonLength = 240

// Process classifies one event and writes the outcome back. It is what the
// workers run; it is exported so callers can enrich synchronously.
func (d *Dispatcher) Process(ctx context.Context, eventID int64) {
	logger := logging.WithContext(ctx, d.logger)

	event, err := d.store.GetEvent(ctx, eventID)
	if err != nil {
		logging.WarnWithContext(logger, "load event for enrichment", "enrichment_load_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "event stays pending until the next restart"),
			logging.String(logging.FieldErrorHint, "check the station database"),
		)
		return
	}
	if event == nil {
		logger.Warn("enrichment requested for unknown event")
		return
	}
	if event.Enriched() {
		logger.Debug("event already enriched", logging.String("status", string(event.EnrichmentStatus)))
		return
	}

	req, err := buildRequest(event)
	if err != nil {
		d.writeFailure(ctx, eventID, err.Error())
		return
	}
	if d.classifier == nil {
		d.writeFailure(ctx, eventID, "classifier not configured")
		return
	}

	verdict, err := d.classifier.Classify(ctx, req)
	if err != nil {
		d.writeFailure(ctx, eventID, failureReason(err))
		return
	}

	applied, err := d.store.ApplyEnrichment(ctx, eventID, store.Enrichment{
		Status:          store.EnrichmentEnriched,
		Label:           verdict.Label,
		Confidence:      verdict.Confidence,
		Rationale:       verdict.Rationale,
		Anomalous:       verdict.Anomalous,
		Signature:       verdict.Signature,
		ParanormalScore: verdict.ParanormalScore,
		Dimension:       verdict.Dimension,
	})
	if err != nil {
		logging.ErrorWithContext(logger, "store classification", "enrichment_writeback_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "event stays pending until the next restart"),
			logging.String(logging.FieldErrorHint, "check the station database"),
		)
		return
	}
	if !applied {
		logger.Debug("classification already recorded")
		return
	}
	logger.Info("classification stored",
		logging.String("label", verdict.Label),
		logging.Float64("confidence", verdict.Confidence),
		logging.Bool("anomalous", verdict.Anomalous),
	)
	d.publisher.Publish(feed.Notification{
		Type:      feed.TypeEventEnriched,
		EventID:   eventID,
		SessionID: sessionOf(event),
		Data: map[string]any{
			"status":     string(store.EnrichmentEnriched),
			"label":      verdict.Label,
			"confidence": verdict.Confidence,
			"anomalous":  verdict.Anomalous,
		},
	})

	d.correlate(ctx, event)
}

func (d *Dispatcher) correlate(ctx context.Context, event *store.Event) {
	if d.correlator == nil {
		return
	}
	logger := logging.WithContext(ctx, d.logger)
	result, err := d.correlator.Correlate(ctx, event.ID)
	if err != nil {
		logging.WarnWithContext(logger, "correlation failed", "correlation_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "event recorded as isolated"),
		)
		return
	}
	if !result.Applied {
		return
	}
	c := result.Correlation
	d.publisher.Publish(feed.Notification{
		Type:      feed.TypeSynchronized,
		EventID:   event.ID,
		SessionID: sessionOf(event),
		Message:   c.Classification,
		Data: map[string]any{
			"audio_event_id": c.AudioEventID,
			"video_event_id": c.VideoEventID,
			"origin":         c.Origin,
			"coherence":      c.Coherence,
			"delta_seconds":  c.DeltaSeconds,
		},
	})
}

// writeFailure records the unanalyzed sentinel. The trigger caller has long
// since returned, so the failure only shows up on the event and in logs.
func (d *Dispatcher) writeFailure(ctx context.Context, eventID int64, reason string) {
	logger := logging.WithContext(ctx, d.logger)
	reason = truncate(reason, maxReasonLength)
	applied, err := d.store.ApplyEnrichment(ctx, eventID, store.Enrichment{
		Status:    store.EnrichmentUnanalyzed,
		Rationale: reason,
	})
	if err != nil {
		logging.ErrorWithContext(logger, "store unanalyzed sentinel", "enrichment_writeback_failed",
			logging.Error(err),
			logging.String("reason", reason),
			logging.String(logging.FieldImpact, "event stays pending until the next restart"),
			logging.String(logging.FieldErrorHint, "check the station database"),
		)
		return
	}
	if !applied {
		return
	}
	logging.WarnWithContext(logger, "event left unanalyzed", "enrichment_failed",
		logging.String("reason", reason),
		logging.String(logging.FieldImpact, "event stored without classification"),
		logging.String(logging.FieldErrorHint, "check classifier credentials and connectivity"),
	)
	d.publisher.Publish(feed.Notification{
		Type:    feed.TypeEventEnriched,
		EventID: eventID,
		Message: reason,
		Data:    map[string]any{"status": string(store.EnrichmentUnanalyzed)},
	})
}

func buildRequest(event *store.Event) (classifier.Request, error) {
	req := classifier.Request{
		AudioLevel:    event.AudioLevel,
		MagneticDelta: event.MagneticDelta,
	}
	switch event.Modality {
	case store.ModalityVideo:
		if strings.TrimSpace(event.FramePath) == "" {
			return req, errors.New("no frame recorded")
		}
		data, err := os.ReadFile(event.FramePath)
		if err != nil {
			return req, fmt.Errorf("frame unavailable: %w", err)
		}
		req.Modality = classifier.ModalityVisual
		req.Frame = data
		req.FrameMIMEType = mime.TypeByExtension(filepath.Ext(event.FramePath))
	case store.ModalityAudio:
		req.Modality = classifier.ModalityAudio
		req.Transcript = event.Transcript
		req.AnomalousFrequencies = event.AnomalousFrequencies
		req.DominantFrequency = event.DominantFrequency
	default:
		return req, fmt.Errorf("unsupported modality %q", event.Modality)
	}
	return req, nil
}

func failureReason(err error) string {
	if errors.Is(err, classifier.ErrNotConfigured) {
		return "classifier not configured"
	}
	return "classifier error: " + err.Error()
}

func sessionOf(event *store.Event) int64 {
	if event.SessionID == nil {
		return 0
	}
	return *event.SessionID
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-3]) + "..."
}
