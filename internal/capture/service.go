package capture

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"

	"ghoststation/internal/config"
	"ghoststation/internal/detector"
	"ghoststation/internal/feed"
	"ghoststation/internal/fusion"
	"ghoststation/internal/logging"
	"ghoststation/internal/services"
	"ghoststation/internal/session"
	"ghoststation/internal/source"
	"ghoststation/internal/store"
)

// Status values returned by the ingress operations.
const (
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

// Rejection reasons for frames that never reach scoring.
const (
	ReasonCameraOffline   = "camera offline"
	ReasonFrameUnreadable = "frame unreadable"
)

const defaultOrigin = "api"

// Dispatcher receives accepted events for background classification.
type Dispatcher interface {
	Dispatch(eventID int64)
	Backlog() int
}

// Recorder receives accepted captures for correlation history.
type Recorder interface {
	Record(ref store.CaptureRef)
}

// TriggerRequest is an external sensor trigger.
type TriggerRequest struct {
	AudioLevel    float64
	MagneticDelta float64
	Origin        string
	Latitude      *float64
	Longitude     *float64
}

// EVPRequest is an audio-domain submission.
type EVPRequest struct {
	Transcript           string
	AudioLevel           float64
	DominantFrequency    float64
	AnomalousFrequencies []float64
	MagneticDelta        float64
	Origin               string
	Latitude             *float64
	Longitude            *float64
}

// Result is the synchronous outcome of a trigger or EVP submission.
type Result struct {
	Status    string
	EventID   int64
	SessionID *int64
	Score     int
	Kind      fusion.Kind
	Danger    string
	FramePath string
	Regions   int
	Motion    int
	Reason    string
}

// Accepted reports whether an event was recorded.
func (r Result) Accepted() bool { return r.Status == StatusAccepted }

// Dependencies wires a Service. Dispatcher, Recorder and Publisher may be nil.
type Dependencies struct {
	Config     *config.Config
	Store      *store.Store
	Source     source.Source
	Detector   *detector.Detector
	Scorer     *fusion.Scorer
	Sessions   *session.Manager
	Dispatcher Dispatcher
	Recorder   Recorder
	Publisher  feed.Publisher
	Logger     *slog.Logger
}

// Service is the synchronous capture path plus the read-side projections.
type Service struct {
	cfg        *config.Config
	store      *store.Store
	source     source.Source
	detector   *detector.Detector
	scorer     *fusion.Scorer
	sessions   *session.Manager
	dispatcher Dispatcher
	recorder   Recorder
	publisher  feed.Publisher
	logger     *slog.Logger
}

// NewService builds the capture service.
func NewService(deps Dependencies) *Service {
	svc := &Service{
		cfg:        deps.Config,
		store:      deps.Store,
		source:     deps.Source,
		detector:   deps.Detector,
		scorer:     deps.Scorer,
		sessions:   deps.Sessions,
		dispatcher: deps.Dispatcher,
		recorder:   deps.Recorder,
		publisher:  deps.Publisher,
		logger:     logging.NewComponentLogger(deps.Logger, "capture"),
	}
	if svc.source == nil {
		svc.source = source.Offline{}
	}
	if svc.scorer == nil {
		svc.scorer = fusion.NewScorer(fusion.ThresholdsFromConfig(deps.Config))
	}
	if svc.detector == nil {
		svc.detector = detector.New(detector.OptionsFromConfig(deps.Config), detector.NewBlobFinder(deps.Config))
	}
	if svc.sessions == nil {
		svc.sessions = session.NewManager(deps.Store, deps.Logger)
	}
	if svc.publisher == nil {
		svc.publisher = feed.Discard{}
	}
	return svc
}

// Trigger reads a frame, scores it together with the sensor readings, and
// records an event when the score is accepted. Rejection is a normal result,
// not an error; only malformed requests and storage failures are errors.
func (s *Service) Trigger(ctx context.Context, req TriggerRequest) (Result, error) {
	if err := validateReadings(req.AudioLevel, req.MagneticDelta); err != nil {
		return Result{}, err
	}
	if err := validateCoordinates(req.Latitude, req.Longitude); err != nil {
		return Result{}, err
	}
	logger := logging.WithContext(ctx, s.logger)

	frame, err := s.source.ReadFrame(ctx)
	if err != nil {
		logger.Info("trigger rejected", logging.String("reason", ReasonCameraOffline), logging.Error(err))
		return Result{Status: StatusRejected, Reason: ReasonCameraOffline}, nil
	}

	detection := s.detector.Detect(frame.Data)
	if detection.Frame == nil {
		logger.Warn("trigger rejected",
			logging.String("reason", ReasonFrameUnreadable),
			logging.String("content_type", frame.ContentType),
			logging.Int("bytes", len(frame.Data)),
		)
		return Result{Status: StatusRejected, Reason: ReasonFrameUnreadable}, nil
	}
	verdict := s.scorer.Score(fusion.Reading{
		Regions:       len(detection.Regions),
		AudioLevel:    req.AudioLevel,
		MagneticDelta: req.MagneticDelta,
	})
	result := Result{
		Score:   verdict.Score,
		Kind:    verdict.Kind,
		Regions: len(detection.Regions),
		Motion:  detection.MotionScore,
	}
	if !verdict.Accepted {
		result.Status = StatusRejected
		result.Reason = fusion.RejectReason
		logger.Debug("trigger rejected",
			logging.String("reason", result.Reason),
			logging.Float64("audio_level", req.AudioLevel),
			logging.Float64("magnetic_delta", req.MagneticDelta),
		)
		return result, nil
	}

	framePath, err := saveEvidence(s.cfg.EvidenceDir(), frame.Data, s.store.Now())
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "capture", "save evidence", "", err)
	}
	event, err := s.store.InsertEvent(ctx, &store.Event{
		Modality:      store.ModalityVideo,
		Kind:          string(verdict.Kind),
		Origin:        originOrDefault(req.Origin),
		AudioLevel:    req.AudioLevel,
		MagneticDelta: req.MagneticDelta,
		MotionScore:   detection.MotionScore,
		RegionCount:   len(detection.Regions),
		FramePath:     framePath,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		Score:         verdict.Score,
	})
	if err != nil {
		_ = os.Remove(framePath)
		return Result{}, services.Wrap(services.ErrTransient, "capture", "record event", "", err)
	}
	result.FramePath = framePath
	s.accept(ctx, event, &result)
	return result, nil
}

// SubmitEVP scores an audio-domain record (no visual channel) and records it
// when accepted.
func (s *Service) SubmitEVP(ctx context.Context, req EVPRequest) (Result, error) {
	if err := validateReadings(req.AudioLevel, req.MagneticDelta); err != nil {
		return Result{}, err
	}
	if err := validateCoordinates(req.Latitude, req.Longitude); err != nil {
		return Result{}, err
	}
	for _, f := range append([]float64{req.DominantFrequency}, req.AnomalousFrequencies...) {
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			return Result{}, services.Wrap(services.ErrValidation, "capture", "evp", "frequencies must be finite and non-negative", nil)
		}
	}

	verdict := s.scorer.Score(fusion.Reading{AudioLevel: req.AudioLevel, MagneticDelta: req.MagneticDelta})
	result := Result{Score: verdict.Score, Kind: verdict.Kind}
	if !verdict.Accepted {
		result.Status = StatusRejected
		result.Reason = fusion.RejectReason
		return result, nil
	}

	event, err := s.store.InsertEvent(ctx, &store.Event{
		Modality:             store.ModalityAudio,
		Kind:                 string(verdict.Kind),
		Origin:               originOrDefault(req.Origin),
		AudioLevel:           req.AudioLevel,
		MagneticDelta:        req.MagneticDelta,
		Transcript:           strings.TrimSpace(req.Transcript),
		DominantFrequency:    req.DominantFrequency,
		AnomalousFrequencies: req.AnomalousFrequencies,
		Latitude:             req.Latitude,
		Longitude:            req.Longitude,
		Score:                verdict.Score,
	})
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "capture", "record evp", "", err)
	}
	s.accept(ctx, event, &result)
	return result, nil
}

// accept runs the post-insert steps shared by both ingress paths. None of
// them can fail the request.
func (s *Service) accept(ctx context.Context, event *store.Event, result *Result) {
	result.Status = StatusAccepted
	result.EventID = event.ID
	result.SessionID = event.SessionID
	result.Danger = event.DangerLevel()

	if s.recorder != nil {
		s.recorder.Record(store.CaptureRef{EventID: event.ID, Modality: event.Modality, CapturedAt: event.CapturedAt})
	}
	ctx = services.WithEventID(ctx, event.ID)
	logging.WithContext(ctx, s.logger).Info("event accepted",
		logging.String(logging.FieldModality, string(event.Modality)),
		logging.String("kind", event.Kind),
		logging.Int("score", event.Score),
		logging.String("origin", event.Origin),
	)
	notification := feed.Notification{
		Type:    feed.TypeEventAccepted,
		EventID: event.ID,
		Data: map[string]any{
			"modality": string(event.Modality),
			"kind":     event.Kind,
			"score":    event.Score,
			"danger":   result.Danger,
		},
	}
	if event.SessionID != nil {
		notification.SessionID = *event.SessionID
	}
	s.publisher.Publish(notification)

	if s.dispatcher != nil {
		s.dispatcher.Dispatch(event.ID)
	}
}

func validateReadings(audio, magnetic float64) error {
	for _, v := range []float64{audio, magnetic} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return services.Wrap(services.ErrValidation, "capture", "validate", "sensor readings must be finite", nil)
		}
	}
	if audio < 0 {
		return services.Wrap(services.ErrValidation, "capture", "validate", fmt.Sprintf("audio level %.2f is negative", audio), nil)
	}
	return nil
}

func validateCoordinates(lat, lon *float64) error {
	if lat != nil && (math.IsNaN(*lat) || *lat < -90 || *lat > 90) {
		return services.Wrap(services.ErrValidation, "capture", "validate", "latitude out of range", nil)
	}
	if lon != nil && (math.IsNaN(*lon) || *lon < -180 || *lon > 180) {
		return services.Wrap(services.ErrValidation, "capture", "validate", "longitude out of range", nil)
	}
	return nil
}

func originOrDefault(origin string) string {
	if origin = strings.TrimSpace(origin); origin == "" {
		return defaultOrigin
	}
	return origin
}
