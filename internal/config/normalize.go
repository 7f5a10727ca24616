package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeCamera(); err != nil {
		return err
	}
	c.normalizeClassifier()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.MediaDir) == "" {
		c.Paths.MediaDir = filepath.Join(c.Paths.DataDir, "media")
	}
	if c.Paths.MediaDir, err = expandPath(c.Paths.MediaDir); err != nil {
		return fmt.Errorf("paths.media_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeCamera() error {
	c.Camera.URL = strings.TrimSpace(c.Camera.URL)
	if c.Camera.TimeoutSeconds <= 0 {
		c.Camera.TimeoutSeconds = defaultCameraTimeout
	}
	if strings.TrimSpace(c.Camera.ReplayDir) == "" {
		c.Camera.ReplayDir = ""
		return nil
	}
	var err error
	if c.Camera.ReplayDir, err = expandPath(c.Camera.ReplayDir); err != nil {
		return fmt.Errorf("camera.replay_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeClassifier() {
	c.Classifier.APIKey = strings.TrimSpace(c.Classifier.APIKey)
	c.Classifier.BaseURL = strings.TrimSpace(c.Classifier.BaseURL)
	if c.Classifier.BaseURL == "" {
		c.Classifier.BaseURL = defaultClassifierBaseURL
	}
	c.Classifier.Model = strings.TrimSpace(c.Classifier.Model)
	if c.Classifier.Model == "" {
		c.Classifier.Model = defaultClassifierModel
	}
	c.Classifier.Referer = strings.TrimSpace(c.Classifier.Referer)
	if c.Classifier.Referer == "" {
		c.Classifier.Referer = defaultClassifierReferer
	}
	c.Classifier.Title = strings.TrimSpace(c.Classifier.Title)
	if c.Classifier.Title == "" {
		c.Classifier.Title = defaultClassifierTitle
	}
	if c.Classifier.TimeoutSeconds <= 0 {
		c.Classifier.TimeoutSeconds = defaultClassifierTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
