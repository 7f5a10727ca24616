package feed

import (
	"context"
	"log/slog"
	"strings"

	"ghoststation/internal/logging"
)

// LogHandler mirrors log records at or above a level into the feed, so
// dashboards see warnings such as a failed classification as they happen.
// Install it with logging.TeeLogger.
type LogHandler struct {
	publisher Publisher
	level     slog.Leveler
	attrs     []slog.Attr
	groups    []string
}

// NewLogHandler publishes records at level and above.
func NewLogHandler(publisher Publisher, level slog.Leveler) *LogHandler {
	if level == nil {
		level = slog.LevelWarn
	}
	return &LogHandler{publisher: publisher, level: level}
}

func (h *LogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.publisher != nil && level >= h.level.Level()
}

func (h *LogHandler) Handle(_ context.Context, record slog.Record) error {
	data := map[string]any{"level": strings.ToLower(record.Level.String())}
	prefix := strings.Join(h.groups, ".")
	add := func(attr slog.Attr) {
		key := attr.Key
		if prefix != "" {
			key = prefix + "." + key
		}
		data[key] = attr.Value.Resolve().Any()
	}
	for _, attr := range h.attrs {
		add(attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		add(attr)
		return true
	})

	n := Notification{Type: TypeLog, Time: record.Time.UTC(), Message: record.Message, Data: data}
	if id, ok := data[logging.FieldEventID].(int64); ok {
		n.EventID = id
	}
	if id, ok := data[logging.FieldSessionID].(int64); ok {
		n.SessionID = id
	}
	h.publisher.Publish(n)
	return nil
}

func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &next
}

func (h *LogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.groups = append(append([]string(nil), h.groups...), name)
	return &next
}
