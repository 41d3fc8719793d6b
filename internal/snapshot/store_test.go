package snapshot

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveWritesImageAndSidecar(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	path, err := store.Save(SnapshotMeta{Ordinal: 3, Name: "Reports > Daily", URL: "https://x.test/r/daily", Format: "png"}, []byte("img"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if got, want := filepath.Base(path), "003_Reports___Daily.png"; got != want {
		t.Fatalf("Save() path = %q; want %q", got, want)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "003_Reports___Daily.json"))
	if err != nil {
		t.Fatalf("read sidecar: %v", err)
	}
	var meta SnapshotMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if meta.Name != "Reports > Daily" || meta.URL != "https://x.test/r/daily" || meta.SizeBytes != 3 {
		t.Fatalf("sidecar = %+v", meta)
	}
	if meta.CreatedAt.IsZero() {
		t.Fatal("sidecar CreatedAt is zero")
	}
}

func TestSaveRejectsInvalidOrdinal(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if _, err := store.Save(SnapshotMeta{Name: "x", Format: "png"}, []byte("img")); err == nil {
		t.Fatal("Save() with ordinal 0 = nil; want error")
	}
}

func TestListSortedByOrdinalSkipsMissingImages(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	for _, m := range []SnapshotMeta{
		{Ordinal: 10, Name: "ten", Format: "png"},
		{Ordinal: 2, Name: "two", Format: "jpg"},
		{Ordinal: 5, Name: "five", Format: "png"},
	} {
		if _, err := store.Save(m, []byte("x")); err != nil {
			t.Fatalf("Save(%d) error = %v", m.Ordinal, err)
		}
	}
	if err := os.Remove(filepath.Join(dir, "005_five.png")); err != nil {
		t.Fatalf("remove image: %v", err)
	}

	metas, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("List() len = %d; want 2", len(metas))
	}
	if metas[0].Ordinal != 2 || metas[1].Ordinal != 10 {
		t.Fatalf("List() ordinals = %d,%d; want 2,10", metas[0].Ordinal, metas[1].Ordinal)
	}
	if got := metas[0].Page().Name; got != "two" {
		t.Fatalf("Page().Name = %q; want %q", got, "two")
	}
}

func TestImagesListsByName(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_b.jpg", "001_a.png", "notes.txt", "003_c.JPEG"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile(%q) error = %v", name, err)
		}
	}
	store := &Store{dir: dir}

	got, err := store.Images()
	if err != nil {
		t.Fatalf("Images() error = %v", err)
	}
	var names []string
	for _, p := range got {
		names = append(names, filepath.Base(p))
	}
	if want := "001_a.png,002_b.jpg,003_c.JPEG"; strings.Join(names, ",") != want {
		t.Fatalf("Images() = %v; want %s", names, want)
	}
}

func TestSaveRemovesImageWhenSidecarWriteFails(t *testing.T) {
	dir := t.TempDir()
	store := &Store{dir: dir}
	// A directory in the sidecar's place makes the sidecar write fail.
	if err := os.Mkdir(filepath.Join(dir, "001_x.json"), 0o755); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}

	var buf bytes.Buffer
	oldLogger := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() {
		slog.SetDefault(oldLogger)
	})

	if _, err := store.Save(SnapshotMeta{Ordinal: 1, Name: "x", Format: "png"}, []byte("img")); err == nil {
		t.Fatal("Save() = nil; want error")
	}
	if _, err := os.Stat(filepath.Join(dir, "001_x.png")); !os.IsNotExist(err) {
		t.Fatalf("image left behind after failed save: %v", err)
	}
	if strings.Contains(buf.String(), "snapshot image cleanup failed") {
		t.Fatalf("unexpected cleanup failure log: %q", buf.String())
	}
}
