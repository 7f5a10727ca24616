package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	MediaDir string `toml:"media_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Camera describes where frames are read from. An empty URL and ReplayDir
// leaves the station without a camera; triggers are then rejected as offline.
type Camera struct {
	URL            string `toml:"url"`
	ReplayDir      string `toml:"replay_dir"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Detector tunes the frame analysis that runs on every trigger.
type Detector struct {
	FrameWidth      int     `toml:"frame_width"`
	FrameHeight     int     `toml:"frame_height"`
	MotionThreshold int     `toml:"motion_threshold"`
	RegionSigma     float64 `toml:"region_sigma"`
	MinRegionCells  int     `toml:"min_region_cells"`
}

// Fusion holds the thresholds that turn raw channel readings into votes.
type Fusion struct {
	AudioThreshold    float64 `toml:"audio_threshold"`
	MagneticThreshold float64 `toml:"magnetic_threshold"`
}

// Classifier contains connection settings for the external inference service.
type Classifier struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Enrichment sizes the background classification pool.
type Enrichment struct {
	Workers   int `toml:"workers"`
	QueueSize int `toml:"queue_size"`
}

// Correlation sizes the per-modality history kept for window lookups.
type Correlation struct {
	HistorySize int `toml:"history_size"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the station.
//
// Configuration sections by subsystem:
//   - Paths: data, media and log directories plus the API bind address
//   - Camera: frame source endpoint or replay directory
//   - Detector: frame size, motion threshold and region finder tuning
//   - Fusion: audio and magnetic vote thresholds
//   - Classifier: external inference service credentials and model
//   - Enrichment: worker pool and queue size
//   - Correlation: ring buffer capacity per modality
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Camera      Camera      `toml:"camera"`
	Detector    Detector    `toml:"detector"`
	Fusion      Fusion      `toml:"fusion"`
	Classifier  Classifier  `toml:"classifier"`
	Enrichment  Enrichment  `toml:"enrichment"`
	Correlation Correlation `toml:"correlation"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. Environment
// overrides are applied after the file so secrets never need to live on disk.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.EvidenceDir()} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath is the SQLite file holding sessions and events.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "station.db")
}

// EvidenceDir is where accepted frames are written.
func (c *Config) EvidenceDir() string {
	return filepath.Join(c.Paths.MediaDir, "evidence")
}

// LockPath guards against two daemons sharing one data directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "ghoststation.lock")
}

// PIDPath records the running daemon's process id for the stop command.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.DataDir, "ghoststation.pid")
}

// ClassifierEnabled reports whether enrichment can reach the inference service.
func (c *Config) ClassifierEnabled() bool {
	return strings.TrimSpace(c.Classifier.APIKey) != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
