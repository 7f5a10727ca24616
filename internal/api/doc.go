// Package api defines the wire-format types shared by the daemon's HTTP
// handlers and the ghoststation CLI.
//
// # Key Types
//
// TriggerRequest / EVPRequest: ingress payloads for sensor triggers and
// audio-domain submissions.
//
// CaptureResponse: the synchronous accepted/rejected outcome of an ingress.
//
// Event / Session: transport representations of stored records, including the
// enrichment fields and the synchronized-event payload.
//
// StationStatus: camera, classifier, active session, counts, and backlog.
//
// # Converters
//
// FromEvent, FromSession, FromCaptureResult and FromStatus translate internal
// models into DTOs; TriggerRequest.ToCapture and friends go the other way.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds in
// UTC. Every response carries a status field so scripted clients can branch
// on "accepted", "rejected", "closed", "no_session", "ok" or "error" without
// inspecting HTTP codes.
package api
