package daemonrun

import (
	"log/slog"
	"sync"
	"testing"

	"ghoststation/internal/feed"
	"ghoststation/internal/logging"
)

type recorder struct {
	mu    sync.Mutex
	items []feed.Notification
}

func (r *recorder) Publish(n feed.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item.Message)
	}
	return out
}

func TestFeedMirrorsWarningsByDefault(t *testing.T) {
	rec := &recorder{}
	var opts Options
	logger := teeFeed(logging.NewNop(), rec, opts.FeedLogLevel)

	logger.Info("routine")
	logger.Warn("camera offline")
	logger.Error("store failure")

	got := rec.messages()
	if len(got) != 2 || got[0] != "camera offline" || got[1] != "store failure" {
		t.Fatalf("unexpected feed messages %q", got)
	}
}

func TestFeedLevelOverride(t *testing.T) {
	rec := &recorder{}
	logger := teeFeed(logging.NewNop(), rec, slog.LevelInfo)

	logger.Debug("noise")
	logger.Info("routine")

	if got := rec.messages(); len(got) != 1 || got[0] != "routine" {
		t.Fatalf("unexpected feed messages %q", got)
	}
}
