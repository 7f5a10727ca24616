// Package daemon coordinates the long-running station process.
//
// It wires the frame source, detector, scorer, session manager, enrichment
// dispatcher, correlation engine and live feed into a single lifecycle with
// flock-based locking so two daemons never share a data directory. The HTTP
// API in api_server.go is the only ingress; handlers translate between the
// api DTOs and the capture service and map tagged service errors onto status
// codes.
//
// Keep orchestration logic here: scoring, enrichment and correlation live in
// their own packages while the daemon focuses on startup, shutdown and
// request plumbing.
package daemon
