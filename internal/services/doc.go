// Package services defines shared utilities consumed by the capture,
// enrichment, and correlation pipeline and by external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp event IDs, session IDs, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper, and HTTPStatus which
//     translates those markers into API responses.
package services
