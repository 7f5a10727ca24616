// Package enrichment runs the asynchronous classification of accepted events.
//
// The capture path calls Dispatch and returns immediately. Workers fetch the
// event, send its frame or transcript to the classifier, and write the
// outcome back once: a verdict on success, the "unanalyzed" sentinel with a
// reason on any failure. Writebacks are conditional on the event still being
// pending. Successful writebacks are handed to the correlation engine.
package enrichment
