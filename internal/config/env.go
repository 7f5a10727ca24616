package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// envOverrides lists the settings that may come from the environment. Empty
// values leave the file (or default) value in place.
type envOverrides struct {
	DataDir          string `env:"GHOST_DATA_DIR"`
	MediaDir         string `env:"GHOST_MEDIA_DIR"`
	APIBind          string `env:"GHOST_API_BIND"`
	APIToken         string `env:"GHOST_API_TOKEN"`
	CameraURL        string `env:"GHOST_CAMERA_URL"`
	ClassifierAPIKey string `env:"GHOST_CLASSIFIER_API_KEY"`
	OpenRouterAPIKey string `env:"OPENROUTER_API_KEY"`
	ClassifierModel  string `env:"GHOST_CLASSIFIER_MODEL"`
	LogLevel         string `env:"GHOST_LOG_LEVEL"`
	LogFormat        string `env:"GHOST_LOG_FORMAT"`
}

func (c *Config) applyEnv() error {
	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	setIfPresent(&c.Paths.DataDir, overrides.DataDir)
	setIfPresent(&c.Paths.MediaDir, overrides.MediaDir)
	setIfPresent(&c.Paths.APIBind, overrides.APIBind)
	setIfPresent(&c.Paths.APIToken, overrides.APIToken)
	setIfPresent(&c.Camera.URL, overrides.CameraURL)
	setIfPresent(&c.Classifier.Model, overrides.ClassifierModel)
	setIfPresent(&c.Logging.Level, overrides.LogLevel)
	setIfPresent(&c.Logging.Format, overrides.LogFormat)

	// The station-specific key wins; the OpenRouter key only fills a gap.
	setIfPresent(&c.Classifier.APIKey, overrides.ClassifierAPIKey)
	if strings.TrimSpace(c.Classifier.APIKey) == "" {
		setIfPresent(&c.Classifier.APIKey, overrides.OpenRouterAPIKey)
	}
	return nil
}

func setIfPresent(dst *string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*dst = value
	}
}
