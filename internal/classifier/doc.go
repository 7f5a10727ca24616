// Package classifier asks an external inference service what an event shows.
//
// Visual events send the captured frame as an inline image part; audio events
// send the transcript and spectral readings. Responses are decoded leniently
// (code fences, quoted numbers, legacy keys) and normalized into a Verdict.
// Every failure is returned to the caller, which records it on the event
// rather than retrying.
package classifier
