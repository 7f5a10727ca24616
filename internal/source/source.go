package source

import (
	"context"
	"errors"
	"time"

	"ghoststation/internal/config"
)

// ErrUnavailable reports that no frame could be read. Callers treat it as a
// "camera offline" outcome, never as a fault.
var ErrUnavailable = errors.New("frame source unavailable")

// Frame is one encoded camera frame.
type Frame struct {
	Data        []byte
	ContentType string
	ReadAt      time.Time
}

// Source hands back raw encoded frames. ReadFrame must be safe to call
// repeatedly and must return rather than block indefinitely.
type Source interface {
	ReadFrame(ctx context.Context) (Frame, error)
	// Connected reports whether the most recent read succeeded.
	Connected() bool
	Describe() string
}

// New selects a source from the camera section: an HTTP camera when a URL is
// set, directory replay when a replay dir is set, otherwise offline.
func New(cfg *config.Config) Source {
	if cfg == nil {
		return Offline{}
	}
	timeout := time.Duration(cfg.Camera.TimeoutSeconds) * time.Second
	switch {
	case cfg.Camera.URL != "":
		return NewHTTPCamera(cfg.Camera.URL, timeout)
	case cfg.Camera.ReplayDir != "":
		return NewReplay(cfg.Camera.ReplayDir)
	default:
		return Offline{}
	}
}

// Offline is the source used when no camera is configured.
type Offline struct{}

func (Offline) ReadFrame(context.Context) (Frame, error) { return Frame{}, ErrUnavailable }
func (Offline) Connected() bool                          { return false }
func (Offline) Describe() string                         { return "offline" }
