package session

import "time"

// DefaultTitle names a session started without a title.
func DefaultTitle(now time.Time) string {
	return "Investigation " + now.Local().Format("02/01 15:04")
}
