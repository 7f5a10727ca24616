// Package logging assembles structured slog loggers used across the station.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so capture, enrichment, and
// correlation code can tag log lines with event IDs, session IDs, and request
// correlation IDs. TeeLogger lets the daemon mirror records into secondary
// handlers such as the live feed.
package logging
