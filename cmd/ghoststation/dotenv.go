package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"ghoststation/internal/config"
)

// loadDotEnv reads .env files from the working directory and next to the
// configuration file. Variables already set in the environment win.
func loadDotEnv(configFlag string) {
	paths := []string{".env"}
	if configFlag = strings.TrimSpace(configFlag); configFlag != "" {
		if expanded, err := config.ExpandPath(configFlag); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(expanded), ".env"))
		}
	} else if defaultPath, err := config.DefaultConfigPath(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(defaultPath), ".env"))
	}

	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "warn: unable to load %s: %v\n", p, err)
		}
	}
}
