package camera

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FileSource replays JPEG files from a directory in name order, looping
// at the end. Useful for demos and for running without a camera.
type FileSource struct {
	mu    sync.Mutex
	paths []string
	next  int
}

// NewFileSource lists the .jpg/.jpeg files in dir.
func NewFileSource(dir string) (*FileSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("camera: read %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("camera: no JPEG files in %s", dir)
	}
	sort.Strings(paths)
	return &FileSource{paths: paths}, nil
}

// Len returns the number of frames in the loop.
func (f *FileSource) Len() int {
	return len(f.paths)
}

// CaptureJPEG returns the next file's contents.
func (f *FileSource) CaptureJPEG(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	path := f.paths[f.next]
	f.next = (f.next + 1) % len(f.paths)
	f.mu.Unlock()

	return os.ReadFile(path)
}

var _ Source = (*FileSource)(nil)
