// Package detector turns raw camera frames into region and motion signals.
//
// Frames are decoded (JPEG or PNG), scaled to the configured size with
// golang.org/x/image/draw, and reduced to luminance. Motion is the count of
// pixels that changed by more than the motion threshold since the previous
// frame; the previous frame is guarded by a mutex so concurrent triggers
// serialize on it. Region finding is pluggable through RegionFinder;
// BlobFinder is the built-in implementation.
package detector
