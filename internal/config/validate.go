package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCamera(); err != nil {
		return err
	}
	if err := c.validateDetector(); err != nil {
		return err
	}
	if err := c.validateFusion(); err != nil {
		return err
	}
	if err := c.validateEnrichment(); err != nil {
		return err
	}
	if c.Correlation.HistorySize <= 0 {
		return errors.New("correlation.history_size must be positive")
	}
	return c.validateLogging()
}

func (c *Config) validateCamera() error {
	if c.Camera.URL != "" {
		parsed, err := url.Parse(c.Camera.URL)
		if err != nil {
			return fmt.Errorf("camera.url: %w", err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("camera.url must use http or https, got %q", parsed.Scheme)
		}
	}
	if c.Camera.URL != "" && c.Camera.ReplayDir != "" {
		return errors.New("camera.url and camera.replay_dir are mutually exclusive")
	}
	return nil
}

func (c *Config) validateDetector() error {
	if c.Detector.FrameWidth <= 0 || c.Detector.FrameHeight <= 0 {
		return errors.New("detector.frame_width and detector.frame_height must be positive")
	}
	if c.Detector.MotionThreshold < 0 || c.Detector.MotionThreshold > 255 {
		return errors.New("detector.motion_threshold must be between 0 and 255")
	}
	if c.Detector.RegionSigma <= 0 {
		return errors.New("detector.region_sigma must be positive")
	}
	if c.Detector.MinRegionCells <= 0 {
		return errors.New("detector.min_region_cells must be positive")
	}
	return nil
}

func (c *Config) validateFusion() error {
	if c.Fusion.AudioThreshold < 0 {
		return errors.New("fusion.audio_threshold must be non-negative")
	}
	if c.Fusion.MagneticThreshold < 0 {
		return errors.New("fusion.magnetic_threshold must be non-negative")
	}
	return nil
}

func (c *Config) validateEnrichment() error {
	if c.Enrichment.Workers <= 0 {
		return errors.New("enrichment.workers must be positive")
	}
	if c.Enrichment.QueueSize <= 0 {
		return errors.New("enrichment.queue_size must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
