// Package capture is the synchronous side of the station.
//
// Trigger reads a frame, runs the detector and fusion scorer, and records an
// accepted event with its evidence frame before handing it to enrichment.
// SubmitEVP does the same for audio-domain records. The read-side methods
// (RecentEvents, Event, Sessions, Status) never mutate anything.
package capture
