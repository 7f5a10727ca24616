package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"ghoststation/internal/config"
	"ghoststation/internal/daemon"
	"ghoststation/internal/feed"
	"ghoststation/internal/logging"
	"ghoststation/internal/store"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// FeedLogLevel is the minimum level mirrored into the live feed; nil
	// mirrors warnings and errors only.
	FeedLogLevel slog.Leveler
}

// Run starts the station daemon and blocks until SIGINT/SIGTERM or until
// cmdCtx is cancelled.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logPath := filepath.Join(cfg.Paths.LogDir, "ghoststation.log")
	base, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	// The hub logs through base only; mirroring its own records into the
	// feed would loop.
	hub := feed.NewHub(base)
	logger := teeFeed(base, hub, opts.FeedLogLevel)

	logConfigSnapshot(logger, cfg)
	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open station store", logging.Error(err))
		hub.Stop()
		return err
	}

	d, err := daemon.New(cfg, st, logger, daemon.Options{Hub: hub})
	if err != nil {
		_ = st.Close()
		hub.Stop()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the lock file, bind address and data directory"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("ghoststation daemon shutting down")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	camera := "offline"
	switch {
	case cfg.Camera.URL != "":
		camera = "http"
	case cfg.Camera.ReplayDir != "":
		camera = "replay"
	}
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.String("data_dir", cfg.Paths.DataDir),
		logging.String("api_bind", cfg.Paths.APIBind),
		logging.Bool("api_token_set", cfg.Paths.APIToken != ""),
		logging.String("camera", camera),
		logging.Bool("classifier_key_present", cfg.ClassifierEnabled()),
		logging.String("classifier_model", cfg.Classifier.Model),
		logging.Int("enrichment_workers", cfg.Enrichment.Workers),
		logging.Int("enrichment_queue", cfg.Enrichment.QueueSize),
		logging.Float64("audio_threshold", cfg.Fusion.AudioThreshold),
		logging.Float64("magnetic_threshold", cfg.Fusion.MagneticThreshold),
	)
}

func teeFeed(base *slog.Logger, publisher feed.Publisher, level slog.Leveler) *slog.Logger {
	return logging.TeeLogger(base, feed.NewLogHandler(publisher, level))
}
