package source

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

var replayExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// Replay cycles through the images in a directory in name order. It stands in
// for a camera on test rigs and when reviewing recorded footage.
type Replay struct {
	dir string

	mu        sync.Mutex
	next      int
	connected bool
}

// NewReplay builds a replay source over dir.
func NewReplay(dir string) *Replay {
	return &Replay{dir: dir}
}

// ReadFrame implements Source. The directory is rescanned on every call so
// frames dropped in while the daemon runs are picked up.
func (r *Replay) ReadFrame(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	files, err := r.list()
	if err != nil || len(files) == 0 {
		r.connected = false
		if err == nil {
			err = fmt.Errorf("no frames in %s", r.dir)
		}
		return Frame{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	path := files[r.next%len(files)]
	r.next = (r.next + 1) % len(files)

	data, err := os.ReadFile(path)
	if err != nil {
		r.connected = false
		return Frame{}, fmt.Errorf("%w: read %s: %v", ErrUnavailable, path, err)
	}
	r.connected = true
	return Frame{
		Data:        data,
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		ReadAt:      time.Now(),
	}, nil
}

func (r *Replay) list() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !replayExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		files = append(files, filepath.Join(r.dir, entry.Name()))
	}
	slices.Sort(files)
	return files, nil
}

// Connected implements Source.
func (r *Replay) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected
}

// Describe implements Source.
func (r *Replay) Describe() string { return "replay " + r.dir }
