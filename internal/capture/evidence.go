package capture

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// saveEvidence writes the raw frame under dir and returns its path.
func saveEvidence(dir string, data []byte, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create evidence dir: %w", err)
	}
	ext := ".jpg"
	if http.DetectContentType(data) == "image/png" {
		ext = ".png"
	}
	name := fmt.Sprintf("ANOMALY_%s_%s%s", now.UTC().Format("20060102_150405"), uuid.NewString()[:8], ext)
	path := filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, ".frame-*")
	if err != nil {
		return "", fmt.Errorf("create evidence file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write evidence: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close evidence: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("publish evidence: %w", err)
	}
	return path, nil
}
