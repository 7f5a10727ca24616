// Package correlate joins audio and video events captured close together.
//
// Each modality keeps a small ring of recent capture references, seeded from
// the store at startup and fed by the capture path. When an event finishes
// enrichment the engine scans the opposite ring for captures within Window
// (measured on capture timestamps, in either direction), picks the most
// recent eligible partner, and writes one payload to both events. A payload,
// once written, is never replaced.
package correlate
