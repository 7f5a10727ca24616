package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"ghoststation/internal/logging"
	"ghoststation/internal/services"
	"ghoststation/internal/store"
)

// Outcome distinguishes a real close from a close request with nothing open.
type Outcome string

const (
	OutcomeClosed    Outcome = "closed"
	OutcomeNoSession Outcome = "no_session"
)

// StartRequest carries the optional fields of a new session.
type StartRequest struct {
	Title     string
	Location  string
	Latitude  *float64
	Longitude *float64
	Notes     string
}

// StartResult reports the new session and the one it superseded, if any.
type StartResult struct {
	Session    *store.Session
	Superseded *store.Session
}

// CloseResult is returned by Close. Session is nil when Outcome is
// OutcomeNoSession.
type CloseResult struct {
	Outcome Outcome
	Session *store.Session
}

// Manager owns the session lifecycle. Start and Close share one critical
// section so two concurrent starts can never leave two sessions active.
type Manager struct {
	store  *store.Store
	logger *slog.Logger

	mu sync.Mutex
}

// NewManager builds a session manager over st.
func NewManager(st *store.Store, logger *slog.Logger) *Manager {
	return &Manager{
		store:  st,
		logger: logging.NewComponentLogger(logger, "session"),
	}
}

// Start force-closes any active session, recomputing its aggregates, and
// opens a new one.
func (m *Manager) Start(ctx context.Context, req StartRequest) (StartResult, error) {
	if err := validateCoordinates(req.Latitude, req.Longitude); err != nil {
		return StartResult{}, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = DefaultTitle(m.store.Now())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	started, previous, err := m.store.StartSession(ctx, store.NewSession{
		Title:     title,
		Location:  req.Location,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Notes:     req.Notes,
	})
	if err != nil {
		return StartResult{}, services.Wrap(services.ErrTransient, "session", "start", "persist session", err)
	}
	if previous != nil {
		m.logger.Info("session superseded",
			logging.Int64(logging.FieldSessionID, previous.ID),
			logging.Int("total_events", previous.TotalEvents),
			logging.Int("max_score", previous.MaxScore),
		)
	}
	m.logger.Info("session started",
		logging.Int64(logging.FieldSessionID, started.ID),
		logging.String("title", started.Title),
		logging.String("location", started.Location),
	)
	return StartResult{Session: started, Superseded: previous}, nil
}

// Close ends the active session. With nothing active it returns
// OutcomeNoSession and changes nothing.
func (m *Manager) Close(ctx context.Context) (CloseResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	closed, err := m.store.CloseActiveSession(ctx)
	if err != nil {
		return CloseResult{}, services.Wrap(services.ErrTransient, "session", "close", "persist session", err)
	}
	if closed == nil {
		m.logger.Debug("close requested with no active session")
		return CloseResult{Outcome: OutcomeNoSession}, nil
	}
	m.logger.Info("session closed",
		logging.Int64(logging.FieldSessionID, closed.ID),
		logging.Int("total_events", closed.TotalEvents),
		logging.Int("max_score", closed.MaxScore),
		logging.Float64("mean_audio_level", closed.MeanChannelValue),
		logging.Duration("duration", closed.Duration(m.store.Now())),
	)
	return CloseResult{Outcome: OutcomeClosed, Session: closed}, nil
}

// Active returns the open session, or nil.
func (m *Manager) Active(ctx context.Context) (*store.Session, error) {
	active, err := m.store.ActiveSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("active session: %w", err)
	}
	return active, nil
}

// List returns recent sessions, newest first.
func (m *Manager) List(ctx context.Context, limit int) ([]*store.Session, error) {
	sessions, err := m.store.ListSessions(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

func validateCoordinates(lat, lon *float64) error {
	if lat != nil && (*lat < -90 || *lat > 90) {
		return services.Wrap(services.ErrValidation, "session", "start", fmt.Sprintf("latitude %.4f out of range", *lat), nil)
	}
	if lon != nil && (*lon < -180 || *lon > 180) {
		return services.Wrap(services.ErrValidation, "session", "start", fmt.Sprintf("longitude %.4f out of range", *lon), nil)
	}
	return nil
}
