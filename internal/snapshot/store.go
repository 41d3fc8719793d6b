package snapshot

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/sitedoc/internal/storage"
	"github.com/dgnsrekt/sitedoc/internal/types"
)

// SnapshotMeta describes one captured page image.
type SnapshotMeta struct {
	Ordinal   int       `json:"ordinal"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Format    string    `json:"format"`
	File      string    `json:"file"`
	SizeBytes int       `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// Page returns the page entry the snapshot was taken from.
func (m SnapshotMeta) Page() types.PageEntry {
	return types.PageEntry{Name: m.Name, URL: m.URL}
}

// Store manages page images and their metadata sidecars in a run directory.
type Store struct {
	dir string
	mu  sync.RWMutex
}

// NewStore creates a Store and ensures the directory exists.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot store: mkdir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the image as NNN_name.ext plus a .json sidecar and returns
// the image path. File, SizeBytes and CreatedAt are filled in when empty.
func (s *Store) Save(meta SnapshotMeta, imageData []byte) (string, error) {
	if meta.Ordinal <= 0 {
		return "", fmt.Errorf("snapshot store: invalid ordinal %d", meta.Ordinal)
	}
	ext := meta.Format
	if meta.File == "" {
		meta.File = storage.ImageFileName(meta.Ordinal, meta.Name, ext)
	}
	meta.SizeBytes = len(imageData)
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	imgPath := filepath.Join(s.dir, meta.File)
	jsonPath := sidecarPath(imgPath)

	if err := os.WriteFile(imgPath, imageData, 0o644); err != nil {
		return "", fmt.Errorf("snapshot store: write image: %w", err)
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		s.removeImage(imgPath)
		return "", fmt.Errorf("snapshot store: marshal meta: %w", err)
	}

	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		s.removeImage(imgPath)
		return "", fmt.Errorf("snapshot store: write meta: %w", err)
	}

	return imgPath, nil
}

func (s *Store) removeImage(path string) {
	if err := os.Remove(path); err != nil {
		slog.Debug("snapshot image cleanup failed", "path", path, "error", err)
	}
}

// List returns all snapshots whose image still exists, sorted by ordinal.
func (s *Store) List() ([]SnapshotMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("snapshot store: glob: %w", err)
	}

	metas := make([]SnapshotMeta, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var meta SnapshotMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			slog.Debug("skipping unreadable sidecar", "path", path, "error", err)
			continue
		}
		if meta.File == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.dir, meta.File)); err != nil {
			continue
		}
		metas = append(metas, meta)
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].Ordinal < metas[j].Ordinal
	})

	return metas, nil
}

// Path returns the absolute image path for meta.
func (s *Store) Path(meta SnapshotMeta) string {
	return filepath.Join(s.dir, meta.File)
}

// Images lists image files in the directory by name, for runs without
// sidecars.
func (s *Store) Images() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("snapshot store: read dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			paths = append(paths, filepath.Join(s.dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func sidecarPath(imgPath string) string {
	return strings.TrimSuffix(imgPath, filepath.Ext(imgPath)) + ".json"
}
