package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Response status values beyond the capture and session outcomes.
const (
	StatusOK     = "ok"
	StatusFailed = "error"
)

// TriggerRequest is the body of POST /api/trigger.
type TriggerRequest struct {
	AudioLevel    float64  `json:"audioLevel"`
	MagneticDelta float64  `json:"magneticDelta"`
	Origin        string   `json:"origin,omitempty"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
}

// EVPRequest is the body of POST /api/evp.
type EVPRequest struct {
	Transcript           string    `json:"transcript"`
	AudioLevel           float64   `json:"audioLevel"`
	DominantFrequency    float64   `json:"dominantFrequency,omitempty"`
	AnomalousFrequencies []float64 `json:"anomalousFrequencies,omitempty"`
	MagneticDelta        float64   `json:"magneticDelta,omitempty"`
	Origin               string    `json:"origin,omitempty"`
	Latitude             *float64  `json:"latitude,omitempty"`
	Longitude            *float64  `json:"longitude,omitempty"`
}

// SessionStartRequest is the body of POST /api/sessions/start.
type SessionStartRequest struct {
	Title     string   `json:"title,omitempty"`
	Location  string   `json:"location,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Notes     string   `json:"notes,omitempty"`
}

// CaptureResponse is the outcome of a trigger or EVP submission.
type CaptureResponse struct {
	Status    string `json:"status"`
	EventID   int64  `json:"eventId,omitempty"`
	SessionID *int64 `json:"sessionId,omitempty"`
	Score     int    `json:"score"`
	Kind      string `json:"kind,omitempty"`
	Danger    string `json:"danger,omitempty"`
	FramePath string `json:"framePath,omitempty"`
	Regions   int    `json:"regions"`
	Motion    int    `json:"motion"`
	Reason    string `json:"reason,omitempty"`
}

// Correlation is the synchronized-event payload attached to a pair of events.
type Correlation struct {
	Classification string  `json:"classification"`
	Origin         string  `json:"origin"`
	AudioEventID   int64   `json:"audioEventId"`
	VideoEventID   int64   `json:"videoEventId"`
	PartnerID      int64   `json:"partnerId"`
	Coherence      float64 `json:"coherence"`
	DeltaSeconds   float64 `json:"deltaSeconds"`
	Geometric      bool    `json:"geometric"`
	Cosmic         bool    `json:"cosmic"`
	CorrelatedAt   string  `json:"correlatedAt,omitempty"`
}

// Event describes a stored event in a transport-friendly format.
type Event struct {
	ID                   int64        `json:"id"`
	SessionID            *int64       `json:"sessionId,omitempty"`
	Modality             string       `json:"modality"`
	Kind                 string       `json:"kind"`
	Origin               string       `json:"origin,omitempty"`
	CapturedAt           string       `json:"capturedAt"`
	AudioLevel           float64      `json:"audioLevel"`
	MagneticDelta        float64      `json:"magneticDelta"`
	MotionScore          int          `json:"motionScore"`
	RegionCount          int          `json:"regionCount"`
	FramePath            string       `json:"framePath,omitempty"`
	Transcript           string       `json:"transcript,omitempty"`
	DominantFrequency    float64      `json:"dominantFrequency,omitempty"`
	AnomalousFrequencies []float64    `json:"anomalousFrequencies,omitempty"`
	Latitude             *float64     `json:"latitude,omitempty"`
	Longitude            *float64     `json:"longitude,omitempty"`
	Score                int          `json:"score"`
	Danger               string       `json:"danger"`
	Label                string       `json:"label"`
	Confidence           *float64     `json:"confidence,omitempty"`
	Rationale            string       `json:"rationale,omitempty"`
	Anomalous            bool         `json:"anomalous"`
	Signature            bool         `json:"signature"`
	ParanormalScore      int          `json:"paranormalScore"`
	Dimension            string       `json:"dimension,omitempty"`
	EnrichmentStatus     string       `json:"enrichmentStatus"`
	EnrichedAt           string       `json:"enrichedAt,omitempty"`
	Synchronized         bool         `json:"synchronized"`
	Correlation          *Correlation `json:"correlation,omitempty"`
}

// Session describes an investigation session.
type Session struct {
	ID               int64    `json:"id"`
	Title            string   `json:"title"`
	Location         string   `json:"location,omitempty"`
	Latitude         *float64 `json:"latitude,omitempty"`
	Longitude        *float64 `json:"longitude,omitempty"`
	Status           string   `json:"status"`
	Notes            string   `json:"notes,omitempty"`
	StartedAt        string   `json:"startedAt"`
	EndedAt          string   `json:"endedAt,omitempty"`
	DurationSeconds  float64  `json:"durationSeconds"`
	TotalEvents      int      `json:"totalEvents"`
	MaxScore         int      `json:"maxScore"`
	MeanChannelValue float64  `json:"meanChannelValue"`
}

// SessionResponse is returned by the session start and close endpoints.
type SessionResponse struct {
	Status     string   `json:"status"`
	Session    *Session `json:"session,omitempty"`
	Superseded *Session `json:"superseded,omitempty"`
}

// SessionListResponse wraps a collection of sessions.
type SessionListResponse struct {
	Status   string    `json:"status"`
	Sessions []Session `json:"sessions"`
}

// EventListResponse wraps a collection of events.
type EventListResponse struct {
	Status string  `json:"status"`
	Events []Event `json:"events"`
}

// EventResponse wraps a single event.
type EventResponse struct {
	Status string `json:"status"`
	Event  Event  `json:"event"`
}

// EventCounts aggregates stored events by lifecycle state.
type EventCounts struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Unanalyzed int `json:"unanalyzed"`
	Correlated int `json:"correlated"`
	Orphaned   int `json:"orphaned"`
}

// StationStatus is the dashboard projection returned by GET /api/status.
type StationStatus struct {
	Status               string      `json:"status"`
	CameraConnected      bool        `json:"cameraConnected"`
	CameraSource         string      `json:"cameraSource"`
	ClassifierConfigured bool        `json:"classifierConfigured"`
	ActiveSession        *Session    `json:"activeSession,omitempty"`
	SessionDuration      float64     `json:"sessionDurationSeconds"`
	Events               EventCounts `json:"events"`
	Backlog              int         `json:"backlog"`
	FreeBytes            uint64      `json:"freeBytes"`
	GeneratedAt          string      `json:"generatedAt"`
}

// ErrorResponse is written for every failed request.
type ErrorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}
