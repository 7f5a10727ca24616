package capture

import (
	"context"
	"fmt"
	"time"

	"ghoststation/internal/feed"
	"ghoststation/internal/logging"
	"ghoststation/internal/preflight"
	"ghoststation/internal/services"
	"ghoststation/internal/session"
	"ghoststation/internal/store"
)

const (
	defaultRecentEvents = 10
	maxListLimit        = 500
)

// Status is the dashboard projection of the station.
type Status struct {
	CameraConnected      bool
	CameraSource         string
	ClassifierConfigured bool
	ActiveSession        *store.Session
	SessionDuration      time.Duration
	Events               store.EventCounts
	Backlog              int
	FreeBytes            uint64
	GeneratedAt          time.Time
}

// StartSession opens a session, superseding the active one. The motion
// baseline restarts with the session.
func (s *Service) StartSession(ctx context.Context, req session.StartRequest) (session.StartResult, error) {
	result, err := s.sessions.Start(ctx, req)
	if err != nil {
		return result, err
	}
	s.detector.Reset()
	if prev := result.Superseded; prev != nil {
		s.publisher.Publish(feed.Notification{Type: feed.TypeSessionClosed, SessionID: prev.ID, Message: prev.Title})
	}
	s.publisher.Publish(feed.Notification{Type: feed.TypeSessionStarted, SessionID: result.Session.ID, Message: result.Session.Title})
	return result, nil
}

// CloseSession closes the active session, reporting OutcomeNoSession when
// there is none.
func (s *Service) CloseSession(ctx context.Context) (session.CloseResult, error) {
	result, err := s.sessions.Close(ctx)
	if err != nil {
		return result, err
	}
	if result.Outcome == session.OutcomeClosed {
		s.publisher.Publish(feed.Notification{
			Type:      feed.TypeSessionClosed,
			SessionID: result.Session.ID,
			Message:   result.Session.Title,
			Data: map[string]any{
				"total_events": result.Session.TotalEvents,
				"max_score":    result.Session.MaxScore,
			},
		})
	}
	return result, nil
}

// Sessions lists recent sessions, newest first.
func (s *Service) Sessions(ctx context.Context, limit int) ([]*store.Session, error) {
	return s.sessions.List(ctx, clampLimit(limit, 20))
}

// RecentEvents lists the newest events first.
func (s *Service) RecentEvents(ctx context.Context, limit int) ([]*store.Event, error) {
	events, err := s.store.RecentEvents(ctx, clampLimit(limit, defaultRecentEvents))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "capture", "recent events", "", err)
	}
	return events, nil
}

// Event fetches one event.
func (s *Service) Event(ctx context.Context, id int64) (*store.Event, error) {
	event, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "capture", "get event", "", err)
	}
	if event == nil {
		return nil, services.Wrap(services.ErrNotFound, "capture", "get event", fmt.Sprintf("event %d", id), nil)
	}
	return event, nil
}

// Status assembles the station status. It only reads.
func (s *Service) Status(ctx context.Context) (Status, error) {
	now := s.store.Now()
	status := Status{
		CameraConnected:      s.source.Connected(),
		CameraSource:         s.source.Describe(),
		ClassifierConfigured: s.cfg.ClassifierEnabled(),
		GeneratedAt:          now,
	}
	active, err := s.sessions.Active(ctx)
	if err != nil {
		return status, services.Wrap(services.ErrTransient, "capture", "status", "active session", err)
	}
	if active != nil {
		status.ActiveSession = active
		status.SessionDuration = active.Duration(now)
	}
	if status.Events, err = s.store.CountEvents(ctx); err != nil {
		return status, services.Wrap(services.ErrTransient, "capture", "status", "count events", err)
	}
	if s.dispatcher != nil {
		status.Backlog = s.dispatcher.Backlog()
	}
	if free, err := preflight.FreeBytes(s.cfg.Paths.DataDir); err == nil {
		status.FreeBytes = free
	} else {
		s.logger.Debug("free space unavailable", logging.Error(err))
	}
	return status, nil
}

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return min(limit, maxListLimit)
}
