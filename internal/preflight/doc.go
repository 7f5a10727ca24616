// Package preflight provides readiness checks for the filesystem paths and
// external services the station depends on.
//
// The daemon runs RunAll at startup and logs every failed check; a failed
// check never prevents startup, since a station without a camera or
// classifier still records what it can. The status endpoint reuses
// FreeBytes to report remaining evidence space.
package preflight
