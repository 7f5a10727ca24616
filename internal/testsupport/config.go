package testsupport

import (
	"path/filepath"
	"testing"

	"ghoststation/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The API binds to an ephemeral port and the classifier has no credentials
// unless an option says otherwise.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.MediaDir = filepath.Join(base, "media")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Enrichment.Workers = 2
	cfgVal.Enrichment.QueueSize = 16

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithClassifier points the classifier at baseURL with a test key.
func WithClassifier(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Classifier.APIKey = "test-key"
		b.cfg.Classifier.BaseURL = baseURL
		b.cfg.Classifier.TimeoutSeconds = 5
	}
}

// WithCameraURL configures an HTTP snapshot camera.
func WithCameraURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Camera.URL = url
	}
}

// WithReplayDir configures a replay camera reading frames from a temp
// directory, which is created and returned through dir.
func WithReplayDir(dir *string) ConfigOption {
	return func(b *configBuilder) {
		path := filepath.Join(b.baseDir, "frames")
		b.cfg.Camera.ReplayDir = path
		if dir != nil {
			*dir = path
		}
	}
}

// WithEnrichment overrides the worker pool shape.
func WithEnrichment(workers, queueSize int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Enrichment.Workers = workers
		b.cfg.Enrichment.QueueSize = queueSize
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
