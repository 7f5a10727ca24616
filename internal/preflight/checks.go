package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"ghoststation/internal/config"
	"ghoststation/internal/services/llm"
	"ghoststation/internal/source"
)

// CheckLLM verifies that the classifier API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt (no retries).
func CheckLLM(ctx context.Context, name string, cfg config.Classifier) Result {
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Referer: cfg.Referer,
		Title:   cfg.Title,
	}, llm.WithRetryMaxAttempts(1))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckCamera reads one frame from src.
func CheckCamera(ctx context.Context, src source.Source) Result {
	const name = "Camera"

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	frame, err := src.ReadFrame(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", src.Describe(), err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s frame)", src.Describe(), humanize.Bytes(uint64(len(frame.Data))))}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace fails when the filesystem holding path has less than
// minimum bytes available.
func CheckFreeSpace(name, path string, minimum uint64) Result {
	free, err := FreeBytes(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if free < minimum {
		return Result{Name: name, Detail: fmt.Sprintf("%s free, need %s", humanize.IBytes(free), humanize.IBytes(minimum))}
	}
	return Result{Name: name, Passed: true, Detail: humanize.IBytes(free) + " free"}
}

// FreeBytes reports the space available to unprivileged users on the
// filesystem holding path.
func FreeBytes(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("statfs: %w", err)
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

// summarizeLLMError produces a human-readable summary for LLM health check failures.
func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (LLM API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (LLM API unreachable)"
	}
	return err.Error()
}
