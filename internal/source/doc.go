// Package source adapts camera hardware into a uniform frame reader.
//
// Every implementation returns ErrUnavailable instead of blocking or
// panicking when a frame cannot be produced, so the capture path can treat a
// missing camera as an ordinary rejection.
package source
