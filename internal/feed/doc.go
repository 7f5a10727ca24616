// Package feed streams station activity to dashboards over websockets.
//
// The Hub follows a single-owner design: one goroutine owns the client set
// and every connection has its own writer goroutine with a bounded buffer,
// so a stalled dashboard is dropped instead of slowing capture or
// enrichment. LogHandler mirrors warnings into the same stream.
package feed
