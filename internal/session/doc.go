// Package session implements the investigation lifecycle: at most one session
// is active, starting a session supersedes the active one, and closing
// freezes aggregates recomputed from the session's events.
package session
