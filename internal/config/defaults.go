package config

const (
	defaultConfigPath          = "~/.config/ghoststation/config.toml"
	projectConfigName          = "ghoststation.toml"
	defaultDataDir             = "~/.local/share/ghoststation"
	defaultMediaDir            = "~/.local/share/ghoststation/media"
	defaultLogDir              = "~/.local/share/ghoststation/logs"
	defaultAPIBind             = "127.0.0.1:7490"
	defaultCameraTimeout       = 5
	defaultFrameWidth          = 640
	defaultFrameHeight         = 480
	defaultMotionThreshold     = 25
	defaultRegionSigma         = 2.5
	defaultMinRegionCells      = 2
	defaultAudioThreshold      = 1.5
	defaultMagneticThreshold   = 5.0
	defaultClassifierBaseURL   = "https://openrouter.ai/api/v1/chat/completions"
	defaultClassifierModel     = "google/gemini-2.0-flash-001"
	defaultClassifierReferer   = "https://github.com/ghoststation/ghoststation"
	defaultClassifierTitle     = "Ghost Station"
	defaultClassifierTimeout   = 60
	defaultEnrichmentWorkers   = 4
	defaultEnrichmentQueueSize = 256
	defaultHistorySize         = 256
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			MediaDir: defaultMediaDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Camera: Camera{
			TimeoutSeconds: defaultCameraTimeout,
		},
		Detector: Detector{
			FrameWidth:      defaultFrameWidth,
			FrameHeight:     defaultFrameHeight,
			MotionThreshold: defaultMotionThreshold,
			RegionSigma:     defaultRegionSigma,
			MinRegionCells:  defaultMinRegionCells,
		},
		Fusion: Fusion{
			AudioThreshold:    defaultAudioThreshold,
			MagneticThreshold: defaultMagneticThreshold,
		},
		Classifier: Classifier{
			BaseURL:        defaultClassifierBaseURL,
			Model:          defaultClassifierModel,
			Referer:        defaultClassifierReferer,
			Title:          defaultClassifierTitle,
			TimeoutSeconds: defaultClassifierTimeout,
		},
		Enrichment: Enrichment{
			Workers:   defaultEnrichmentWorkers,
			QueueSize: defaultEnrichmentQueueSize,
		},
		Correlation: Correlation{
			HistorySize: defaultHistorySize,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
