package store

import (
	"strings"
	"time"
)

// SessionStatus is the lifecycle state of an investigation.
type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionClosed SessionStatus = "closed"
)

// Session is a bounded investigation period that owns the events captured
// while it was active.
type Session struct {
	ID               int64
	Title            string
	Location         string
	Latitude         *float64
	Longitude        *float64
	Status           SessionStatus
	Notes            string
	StartedAt        time.Time
	EndedAt          *time.Time
	TotalEvents      int
	MaxScore         int
	MeanChannelValue float64
}

// Duration reports how long the session ran, or has been running as of now.
func (s *Session) Duration(now time.Time) time.Duration {
	if s == nil || s.StartedAt.IsZero() {
		return 0
	}
	end := now
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	if end.Before(s.StartedAt) {
		return 0
	}
	return end.Sub(s.StartedAt)
}

// Modality separates camera-derived events from audio-derived ones for correlation.
type Modality string

const (
	ModalityVideo Modality = "video"
	ModalityAudio Modality = "audio"
)

// Opposite returns the modality an event correlates against.
func (m Modality) Opposite() Modality {
	if m == ModalityAudio {
		return ModalityVideo
	}
	return ModalityAudio
}

// EnrichmentStatus tracks the single classification writeback an event receives.
type EnrichmentStatus string

const (
	EnrichmentPending    EnrichmentStatus = "pending"
	EnrichmentEnriched   EnrichmentStatus = "enriched"
	EnrichmentUnanalyzed EnrichmentStatus = "unanalyzed"
)

const (
	// LabelUnclassified is carried until enrichment completes.
	LabelUnclassified = "unclassified"
	// LabelUnanalyzed marks an event whose classification attempt failed.
	LabelUnanalyzed = "unanalyzed"
)

// Event is one accepted anomaly, visual or audio.
type Event struct {
	ID                   int64
	SessionID            *int64
	Modality             Modality
	Kind                 string
	Origin               string
	CapturedAt           time.Time
	AudioLevel           float64
	MagneticDelta        float64
	MotionScore          int
	RegionCount          int
	FramePath            string
	Transcript           string
	DominantFrequency    float64
	AnomalousFrequencies []float64
	Latitude             *float64
	Longitude            *float64
	Score                int

	Label            string
	Confidence       *float64
	Rationale        string
	Anomalous        bool
	Signature        bool
	ParanormalScore  int
	Dimension        string
	EnrichmentStatus EnrichmentStatus
	EnrichedAt       *time.Time

	Correlation  *Correlation
	CorrelatedAt *time.Time
}

// Enriched reports whether the classification writeback has happened,
// successfully or not.
func (e *Event) Enriched() bool {
	return e != nil && e.EnrichmentStatus != EnrichmentPending && e.EnrichmentStatus != ""
}

// DangerLevel buckets the fusion score for dashboards.
func (e *Event) DangerLevel() string {
	return DangerLevelForScore(e.Score)
}

// DangerLevelForScore maps a fusion score onto low/medium/high/critical.
func DangerLevelForScore(score int) string {
	switch {
	case score >= 4:
		return "critical"
	case score >= 3:
		return "high"
	case score >= 2:
		return "medium"
	default:
		return "low"
	}
}

// Enrichment is the classification outcome written back exactly once.
type Enrichment struct {
	Status          EnrichmentStatus
	Label           string
	Confidence      float64
	Rationale       string
	Anomalous       bool
	Signature       bool
	ParanormalScore int
	Dimension       string
}

// Correlation is the synchronized-event payload attached to both members of a pair.
type Correlation struct {
	Classification string    `json:"classification"`
	Origin         string    `json:"origin"`
	AudioEventID   int64     `json:"audio_event_id"`
	VideoEventID   int64     `json:"video_event_id"`
	Coherence      float64   `json:"coherence"`
	DeltaSeconds   float64   `json:"delta_seconds"`
	Geometric      bool      `json:"geometric"`
	Cosmic         bool      `json:"cosmic"`
	CorrelatedAt   time.Time `json:"correlated_at"`
}

// PartnerOf returns the other event in the pair.
func (c *Correlation) PartnerOf(id int64) int64 {
	if c == nil {
		return 0
	}
	if c.AudioEventID == id {
		return c.VideoEventID
	}
	return c.AudioEventID
}

// CaptureRef is the minimal view the correlation history keeps per event.
type CaptureRef struct {
	EventID    int64
	Modality   Modality
	CapturedAt time.Time
}

func normalizeLabel(label string) string {
	if label = strings.TrimSpace(label); label == "" {
		return LabelUnclassified
	}
	return label
}
