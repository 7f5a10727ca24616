package api

import (
	"strings"
	"time"

	"ghoststation/internal/capture"
	"ghoststation/internal/session"
	"ghoststation/internal/store"
)

// FromEvent converts a stored event to its API representation.
func FromEvent(event *store.Event) Event {
	if event == nil {
		return Event{}
	}
	dto := Event{
		ID:                   event.ID,
		SessionID:            event.SessionID,
		Modality:             string(event.Modality),
		Kind:                 event.Kind,
		Origin:               event.Origin,
		CapturedAt:           FormatTime(event.CapturedAt),
		AudioLevel:           event.AudioLevel,
		MagneticDelta:        event.MagneticDelta,
		MotionScore:          event.MotionScore,
		RegionCount:          event.RegionCount,
		FramePath:            event.FramePath,
		Transcript:           event.Transcript,
		DominantFrequency:    event.DominantFrequency,
		AnomalousFrequencies: event.AnomalousFrequencies,
		Latitude:             event.Latitude,
		Longitude:            event.Longitude,
		Score:                event.Score,
		Danger:               event.DangerLevel(),
		Label:                event.Label,
		Confidence:           event.Confidence,
		Rationale:            event.Rationale,
		Anomalous:            event.Anomalous,
		Signature:            event.Signature,
		ParanormalScore:      event.ParanormalScore,
		Dimension:            event.Dimension,
		EnrichmentStatus:     string(event.EnrichmentStatus),
	}
	if event.EnrichedAt != nil {
		dto.EnrichedAt = FormatTime(*event.EnrichedAt)
	}
	if c := event.Correlation; c != nil {
		dto.Synchronized = true
		dto.Correlation = &Correlation{
			Classification: c.Classification,
			Origin:         c.Origin,
			AudioEventID:   c.AudioEventID,
			VideoEventID:   c.VideoEventID,
			PartnerID:      c.PartnerOf(event.ID),
			Coherence:      c.Coherence,
			DeltaSeconds:   c.DeltaSeconds,
			Geometric:      c.Geometric,
			Cosmic:         c.Cosmic,
			CorrelatedAt:   FormatTime(c.CorrelatedAt),
		}
	}
	return dto
}

// FromEvents converts a slice of stored events. The result is never nil so
// it encodes as an empty JSON array.
func FromEvents(events []*store.Event) []Event {
	out := make([]Event, 0, len(events))
	for _, event := range events {
		out = append(out, FromEvent(event))
	}
	return out
}

// FromSession converts a session; now is used for the running duration of an
// active session.
func FromSession(s *store.Session, now time.Time) *Session {
	if s == nil {
		return nil
	}
	dto := &Session{
		ID:               s.ID,
		Title:            s.Title,
		Location:         s.Location,
		Latitude:         s.Latitude,
		Longitude:        s.Longitude,
		Status:           string(s.Status),
		Notes:            s.Notes,
		StartedAt:        FormatTime(s.StartedAt),
		DurationSeconds:  s.Duration(now).Seconds(),
		TotalEvents:      s.TotalEvents,
		MaxScore:         s.MaxScore,
		MeanChannelValue: s.MeanChannelValue,
	}
	if s.EndedAt != nil {
		dto.EndedAt = FormatTime(*s.EndedAt)
	}
	return dto
}

// FromSessions converts a slice of sessions.
func FromSessions(sessions []*store.Session, now time.Time) []Session {
	out := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		if dto := FromSession(s, now); dto != nil {
			out = append(out, *dto)
		}
	}
	return out
}

// FromStartResult converts the outcome of a session start.
func FromStartResult(result session.StartResult, now time.Time) SessionResponse {
	return SessionResponse{
		Status:     string(store.SessionActive),
		Session:    FromSession(result.Session, now),
		Superseded: FromSession(result.Superseded, now),
	}
}

// FromCloseResult converts the outcome of a session close.
func FromCloseResult(result session.CloseResult, now time.Time) SessionResponse {
	return SessionResponse{
		Status:  string(result.Outcome),
		Session: FromSession(result.Session, now),
	}
}

// FromCaptureResult converts a trigger or EVP outcome.
func FromCaptureResult(result capture.Result) CaptureResponse {
	return CaptureResponse{
		Status:    result.Status,
		EventID:   result.EventID,
		SessionID: result.SessionID,
		Score:     result.Score,
		Kind:      string(result.Kind),
		Danger:    result.Danger,
		FramePath: result.FramePath,
		Regions:   result.Regions,
		Motion:    result.Motion,
		Reason:    result.Reason,
	}
}

// FromStatus converts the station status projection.
func FromStatus(status capture.Status) StationStatus {
	return StationStatus{
		Status:               StatusOK,
		CameraConnected:      status.CameraConnected,
		CameraSource:         status.CameraSource,
		ClassifierConfigured: status.ClassifierConfigured,
		ActiveSession:        FromSession(status.ActiveSession, status.GeneratedAt),
		SessionDuration:      status.SessionDuration.Seconds(),
		Events: EventCounts{
			Total:      status.Events.Total,
			Pending:    status.Events.Pending,
			Unanalyzed: status.Events.Unanalyzed,
			Correlated: status.Events.Correlated,
			Orphaned:   status.Events.Orphaned,
		},
		Backlog:     status.Backlog,
		FreeBytes:   status.FreeBytes,
		GeneratedAt: FormatTime(status.GeneratedAt),
	}
}

// ToCapture converts the wire request into the capture service request.
func (r TriggerRequest) ToCapture() capture.TriggerRequest {
	return capture.TriggerRequest{
		AudioLevel:    r.AudioLevel,
		MagneticDelta: r.MagneticDelta,
		Origin:        strings.TrimSpace(r.Origin),
		Latitude:      r.Latitude,
		Longitude:     r.Longitude,
	}
}

// ToCapture converts the wire request into the capture service request.
func (r EVPRequest) ToCapture() capture.EVPRequest {
	return capture.EVPRequest{
		Transcript:           r.Transcript,
		AudioLevel:           r.AudioLevel,
		DominantFrequency:    r.DominantFrequency,
		AnomalousFrequencies: r.AnomalousFrequencies,
		MagneticDelta:        r.MagneticDelta,
		Origin:               strings.TrimSpace(r.Origin),
		Latitude:             r.Latitude,
		Longitude:            r.Longitude,
	}
}

// ToSession converts the wire request into a session start request.
func (r SessionStartRequest) ToSession() session.StartRequest {
	return session.StartRequest{
		Title:     r.Title,
		Location:  r.Location,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		Notes:     r.Notes,
	}
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// ParseTime parses a timestamp written by FormatTime.
func ParseTime(value string) (time.Time, error) {
	return time.Parse(dateTimeFormat, value)
}
