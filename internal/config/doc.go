// Package config loads, normalizes, and validates station configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and overlays environment variables such as
// GHOST_CLASSIFIER_API_KEY or OPENROUTER_API_KEY. The Config type centralizes
// every knob the daemon and CLI need: data and media directories, the camera
// endpoint, detector and fusion thresholds, classifier credentials, and the
// enrichment pool size.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
