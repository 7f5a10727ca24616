package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound reports a missing row on operations that require one.
var ErrNotFound = errors.New("not found")

const eventColumns = "id, session_id, modality, kind, origin, captured_at, audio_level, magnetic_delta, motion_score, region_count, frame_path, transcript, dominant_frequency, anomalous_frequencies_json, latitude, longitude, score, label, confidence, rationale, anomalous, signature, paranormal_score, dimension, enrichment_status, enriched_at, correlation_json, correlated_at"

// InsertEvent stores an accepted event. The capture timestamp is assigned
// here; the event joins the active session (if any) in the same transaction,
// bumping that session's running totals.
func (s *Store) InsertEvent(ctx context.Context, event *Event) (*Event, error) {
	if event == nil {
		return nil, errors.New("insert event: nil event")
	}
	if event.Score < 1 {
		return nil, fmt.Errorf("insert event: score must be at least 1, got %d", event.Score)
	}
	if event.Modality != ModalityVideo && event.Modality != ModalityAudio {
		return nil, fmt.Errorf("insert event: unknown modality %q", event.Modality)
	}
	stored := *event
	stored.Label = normalizeLabel(stored.Label)
	stored.EnrichmentStatus = EnrichmentPending
	stored.CapturedAt = s.nextCaptureTime()

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		stored.SessionID = nil
		active, err := activeSessionTx(ctx, tx)
		if err != nil {
			return err
		}
		if active != nil {
			id := active.ID
			stored.SessionID = &id
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO events (session_id, modality, kind, origin, captured_at, audio_level, magnetic_delta,
				motion_score, region_count, frame_path, transcript, dominant_frequency, anomalous_frequencies_json,
				latitude, longitude, score, label, enrichment_status)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending')`,
			stored.SessionID,
			string(stored.Modality),
			stored.Kind,
			nullableString(strings.TrimSpace(stored.Origin)),
			formatTime(stored.CapturedAt),
			stored.AudioLevel,
			stored.MagneticDelta,
			stored.MotionScore,
			stored.RegionCount,
			nullableString(stored.FramePath),
			nullableString(stored.Transcript),
			stored.DominantFrequency,
			encodeFrequencies(stored.AnomalousFrequencies),
			nullableFloat(stored.Latitude),
			nullableFloat(stored.Longitude),
			stored.Score,
			stored.Label,
		)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		if stored.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("event last insert id: %w", err)
		}

		if stored.SessionID != nil {
			if _, err := tx.ExecContext(ctx,
				"UPDATE sessions SET total_events = total_events + 1, max_score = MAX(max_score, ?) WHERE id = ?",
				stored.Score, *stored.SessionID,
			); err != nil {
				return fmt.Errorf("update session totals: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// GetEvent fetches an event by id, returning nil when it does not exist.
func (s *Store) GetEvent(ctx context.Context, id int64) (*Event, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events WHERE id = ?", id)
	event, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event %d: %w", id, err)
	}
	return event, nil
}

// GetEvents fetches the listed events in capture order. Missing ids are skipped.
func (s *Store) GetEvents(ctx context.Context, ids ...int64) ([]*Event, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return s.queryEvents(ctx,
		"SELECT "+eventColumns+" FROM events WHERE id IN ("+makePlaceholders(len(ids))+") ORDER BY captured_at, id",
		args...)
}

// RecentEvents returns the newest events first.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.queryEvents(ctx,
		"SELECT "+eventColumns+" FROM events ORDER BY captured_at DESC, id DESC LIMIT ?", limit)
}

// RecentCaptures returns the last limit capture references of a modality,
// oldest first, for seeding correlation history.
func (s *Store) RecentCaptures(ctx context.Context, modality Modality, limit int) ([]CaptureRef, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, captured_at FROM (
			SELECT id, captured_at FROM events WHERE modality = ? ORDER BY captured_at DESC, id DESC LIMIT ?
		 ) ORDER BY captured_at, id`,
		string(modality), limit)
	if err != nil {
		return nil, fmt.Errorf("recent captures: %w", err)
	}
	defer rows.Close()

	var refs []CaptureRef
	for rows.Next() {
		var (
			ref CaptureRef
			raw string
		)
		if err := rows.Scan(&ref.EventID, &raw); err != nil {
			return nil, fmt.Errorf("scan capture: %w", err)
		}
		ref.Modality = modality
		if ref.CapturedAt, err = parseTimeString(raw); err != nil {
			return nil, fmt.Errorf("parse capture time %q: %w", raw, err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// PendingEventIDs lists events still waiting for their classification writeback.
func (s *Store) PendingEventIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM events WHERE enrichment_status = 'pending' ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("pending events: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// EventCounts summarizes the event table for status views.
type EventCounts struct {
	Total      int
	Pending    int
	Unanalyzed int
	Correlated int
	Orphaned   int
}

// CountEvents returns aggregate event counts.
func (s *Store) CountEvents(ctx context.Context) (EventCounts, error) {
	var counts EventCounts
	err := s.db.QueryRowContext(ctx, `SELECT
		COUNT(1),
		COALESCE(SUM(CASE WHEN enrichment_status = 'pending' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN enrichment_status = 'unanalyzed' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN correlation_json IS NOT NULL THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN session_id IS NULL THEN 1 ELSE 0 END), 0)
		FROM events`).Scan(&counts.Total, &counts.Pending, &counts.Unanalyzed, &counts.Correlated, &counts.Orphaned)
	if err != nil {
		return counts, fmt.Errorf("count events: %w", err)
	}
	return counts, nil
}

// ApplyEnrichment writes the classification outcome if the event is still
// pending. It reports false when the event was already enriched (or does not
// exist), leaving the stored values untouched.
func (s *Store) ApplyEnrichment(ctx context.Context, id int64, result Enrichment) (bool, error) {
	status := result.Status
	if status != EnrichmentEnriched && status != EnrichmentUnanalyzed {
		return false, fmt.Errorf("apply enrichment: invalid status %q", status)
	}
	label := normalizeLabel(result.Label)
	if status == EnrichmentUnanalyzed {
		label = LabelUnanalyzed
	}
	now := s.Now()
	res, err := s.execWithRetry(ctx,
		`UPDATE events SET label = ?, confidence = ?, rationale = ?, anomalous = ?, signature = ?,
			paranormal_score = ?, dimension = ?, enrichment_status = ?, enriched_at = ?
		 WHERE id = ? AND enrichment_status = 'pending'`,
		label,
		result.Confidence,
		nullableString(strings.TrimSpace(result.Rationale)),
		boolToInt(result.Anomalous),
		boolToInt(result.Signature),
		result.ParanormalScore,
		nullableString(strings.TrimSpace(result.Dimension)),
		string(status),
		formatTime(now),
		id,
	)
	if err != nil {
		return false, fmt.Errorf("apply enrichment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("apply enrichment rows: %w", err)
	}
	return affected == 1, nil
}

// ApplyCorrelation attaches payload to both events atomically. It reports
// false, writing nothing, when either event already carries a correlation.
func (s *Store) ApplyCorrelation(ctx context.Context, audioID, videoID int64, payload Correlation) (bool, error) {
	if audioID == videoID {
		return false, errors.New("apply correlation: an event cannot correlate with itself")
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("encode correlation: %w", err)
	}
	applied := false
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		applied = false
		res, err := tx.ExecContext(ctx,
			"UPDATE events SET correlation_json = ?, correlated_at = ? WHERE id IN (?, ?) AND correlation_json IS NULL",
			string(encoded), formatTime(payload.CorrelatedAt), audioID, videoID,
		)
		if err != nil {
			return fmt.Errorf("apply correlation: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("apply correlation rows: %w", err)
		}
		if affected != 2 {
			return errCorrelationTaken
		}
		applied = true
		return nil
	})
	if errors.Is(err, errCorrelationTaken) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return applied, nil
}

var errCorrelationTaken = errors.New("correlation already recorded")

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func scanEvent(scanner interface{ Scan(dest ...any) error }) (*Event, error) {
	var (
		event          Event
		sessionID      sql.NullInt64
		modality       string
		origin         sql.NullString
		capturedRaw    string
		framePath      sql.NullString
		transcript     sql.NullString
		dominantFreq   sql.NullFloat64
		frequencies    sql.NullString
		latitude       sql.NullFloat64
		longitude      sql.NullFloat64
		confidence     sql.NullFloat64
		rationale      sql.NullString
		anomalous      int
		signature      int
		dimension      sql.NullString
		status         string
		enrichedRaw    sql.NullString
		correlationRaw sql.NullString
		correlatedRaw  sql.NullString
	)
	if err := scanner.Scan(
		&event.ID,
		&sessionID,
		&modality,
		&event.Kind,
		&origin,
		&capturedRaw,
		&event.AudioLevel,
		&event.MagneticDelta,
		&event.MotionScore,
		&event.RegionCount,
		&framePath,
		&transcript,
		&dominantFreq,
		&frequencies,
		&latitude,
		&longitude,
		&event.Score,
		&event.Label,
		&confidence,
		&rationale,
		&anomalous,
		&signature,
		&event.ParanormalScore,
		&dimension,
		&status,
		&enrichedRaw,
		&correlationRaw,
		&correlatedRaw,
	); err != nil {
		return nil, err
	}

	if sessionID.Valid {
		id := sessionID.Int64
		event.SessionID = &id
	}
	event.Modality = Modality(modality)
	event.Origin = origin.String
	if captured, err := parseTimeString(capturedRaw); err == nil {
		event.CapturedAt = captured
	}
	event.FramePath = framePath.String
	event.Transcript = transcript.String
	event.DominantFrequency = dominantFreq.Float64
	if frequencies.Valid && frequencies.String != "" {
		if err := json.Unmarshal([]byte(frequencies.String), &event.AnomalousFrequencies); err != nil {
			return nil, fmt.Errorf("decode anomalous frequencies: %w", err)
		}
	}
	event.Latitude = optionalFloat(latitude)
	event.Longitude = optionalFloat(longitude)
	event.Confidence = optionalFloat(confidence)
	event.Rationale = rationale.String
	event.Anomalous = anomalous != 0
	event.Signature = signature != 0
	event.Dimension = dimension.String
	event.EnrichmentStatus = EnrichmentStatus(status)
	event.EnrichedAt = optionalTime(enrichedRaw)
	if correlationRaw.Valid && correlationRaw.String != "" {
		var payload Correlation
		if err := json.Unmarshal([]byte(correlationRaw.String), &payload); err != nil {
			return nil, fmt.Errorf("decode correlation: %w", err)
		}
		event.Correlation = &payload
	}
	event.CorrelatedAt = optionalTime(correlatedRaw)
	return &event, nil
}
