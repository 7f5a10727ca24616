package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const sessionColumns = "id, title, location, latitude, longitude, status, notes, started_at, ended_at, total_events, max_score, mean_channel_value"

// NewSession carries the caller-supplied fields of a session being opened.
type NewSession struct {
	Title     string
	Location  string
	Latitude  *float64
	Longitude *float64
	Notes     string
}

// closeActiveSQL ends the active session and recomputes its aggregates from
// every event it owns.
const closeActiveSQL = `UPDATE sessions SET
	status = 'closed',
	ended_at = ?,
	total_events = (SELECT COUNT(1) FROM events WHERE session_id = sessions.id),
	max_score = (SELECT COALESCE(MAX(score), 0) FROM events WHERE session_id = sessions.id),
	mean_channel_value = (SELECT COALESCE(AVG(audio_level), 0) FROM events WHERE session_id = sessions.id)
WHERE status = 'active'`

// StartSession closes any active session and opens a new one in a single
// transaction. The returned previous session is nil when none was active.
func (s *Store) StartSession(ctx context.Context, input NewSession) (started *Session, previous *Session, err error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, nil, errors.New("start session: title required")
	}
	now := s.Now()

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		started, previous = nil, nil
		prev, err := activeSessionTx(ctx, tx)
		if err != nil {
			return err
		}
		if prev != nil {
			if _, err := tx.ExecContext(ctx, closeActiveSQL, formatTime(now)); err != nil {
				return fmt.Errorf("close previous session: %w", err)
			}
			if previous, err = getSessionTx(ctx, tx, prev.ID); err != nil {
				return err
			}
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO sessions (title, location, latitude, longitude, status, notes, started_at)
			 VALUES (?, ?, ?, ?, 'active', ?, ?)`,
			title,
			nullableString(strings.TrimSpace(input.Location)),
			nullableFloat(input.Latitude),
			nullableFloat(input.Longitude),
			nullableString(strings.TrimSpace(input.Notes)),
			formatTime(now),
		)
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("session last insert id: %w", err)
		}
		started, err = getSessionTx(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return started, previous, nil
}

// CloseActiveSession ends the active session. It returns nil, nil when no
// session is active; nothing is mutated in that case.
func (s *Store) CloseActiveSession(ctx context.Context) (*Session, error) {
	now := s.Now()
	var closed *Session
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		closed = nil
		active, err := activeSessionTx(ctx, tx)
		if err != nil || active == nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, closeActiveSQL, formatTime(now)); err != nil {
			return fmt.Errorf("close session: %w", err)
		}
		closed, err = getSessionTx(ctx, tx, active.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return closed, nil
}

// ActiveSession returns the open session, or nil when none is active.
func (s *Store) ActiveSession(ctx context.Context) (*Session, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM sessions WHERE status = 'active' LIMIT 1")
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active session: %w", err)
	}
	return session, nil
}

// GetSession fetches a session by id, returning nil when it does not exist.
func (s *Store) GetSession(ctx context.Context, id int64) (*Session, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM sessions WHERE id = ?", id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session %d: %w", id, err)
	}
	return session, nil
}

// ListSessions returns the newest sessions first.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions ORDER BY started_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func activeSessionTx(ctx context.Context, tx *sql.Tx) (*Session, error) {
	row := tx.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM sessions WHERE status = 'active' LIMIT 1")
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read active session: %w", err)
	}
	return session, nil
}

func getSessionTx(ctx context.Context, tx *sql.Tx, id int64) (*Session, error) {
	row := tx.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM sessions WHERE id = ?", id)
	session, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("read session %d: %w", id, err)
	}
	return session, nil
}

func scanSession(scanner interface{ Scan(dest ...any) error }) (*Session, error) {
	var (
		session    Session
		location   sql.NullString
		latitude   sql.NullFloat64
		longitude  sql.NullFloat64
		status     string
		notes      sql.NullString
		startedRaw string
		endedRaw   sql.NullString
	)
	if err := scanner.Scan(
		&session.ID,
		&session.Title,
		&location,
		&latitude,
		&longitude,
		&status,
		&notes,
		&startedRaw,
		&endedRaw,
		&session.TotalEvents,
		&session.MaxScore,
		&session.MeanChannelValue,
	); err != nil {
		return nil, err
	}
	session.Location = location.String
	session.Latitude = optionalFloat(latitude)
	session.Longitude = optionalFloat(longitude)
	session.Status = SessionStatus(status)
	session.Notes = notes.String
	if started, err := parseTimeString(startedRaw); err == nil {
		session.StartedAt = started
	}
	session.EndedAt = optionalTime(endedRaw)
	return &session, nil
}
