package preflight

import (
	"context"

	"ghoststation/internal/config"
	"ghoststation/internal/source"
)

// minFreeBytes is the free space below which the data directory check fails.
const minFreeBytes = 512 << 20

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes all applicable preflight checks for the given config.
// The classifier is only checked when credentials are configured and the
// camera only when a source other than offline is configured.
func RunAll(ctx context.Context, cfg *config.Config, src source.Source) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Media directory", cfg.Paths.MediaDir),
		CheckFreeSpace("Data directory space", cfg.Paths.DataDir, minFreeBytes),
	}

	if _, offline := src.(source.Offline); src != nil && !offline {
		results = append(results, CheckCamera(ctx, src))
	}

	if cfg.ClassifierEnabled() {
		results = append(results, CheckLLM(ctx, "Classifier LLM", cfg.Classifier))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
