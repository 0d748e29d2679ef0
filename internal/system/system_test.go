package system

import (
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFindLatestFile(t *testing.T) {
	dir := t.TempDir()

	files := []string{"a.yaml", "b.JSON", "c.txt"}
	base := time.Now().Add(-time.Hour)
	for i, name := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		modTime := base.Add(time.Duration(i) * time.Minute)
		os.Chtimes(path, modTime, modTime)
	}

	latest, err := FindLatestFile(dir, ".yaml", ".json")
	if err != nil {
		t.Fatalf("FindLatestFile failed: %v", err)
	}
	if filepath.Base(latest) != "b.JSON" {
		t.Errorf("Expected b.JSON, got %s", latest)
	}

	if _, err := FindLatestFile(dir, ".png"); err == nil {
		t.Error("Expected error when nothing matches")
	}
}

func TestImagePool(t *testing.T) {
	pool := NewImagePool()
	rect := image.Rect(0, 0, 8, 4)

	img := pool.Get(rect)
	if img.Bounds() != rect {
		t.Fatalf("Expected bounds %v, got %v", rect, img.Bounds())
	}
	pool.Put(img)
	pool.Put(nil)

	if other := pool.Get(image.Rect(0, 0, 2, 2)); other.Bounds().Dx() != 2 {
		t.Errorf("Unexpected bounds %v", other.Bounds())
	}
}

func TestReadStats(t *testing.T) {
	s, err := ReadStats()
	if err != nil {
		t.Skipf("Stats unavailable: %v", err)
	}
	if s.RSS == 0 || s.HostTotal == 0 {
		t.Errorf("Expected non-zero memory figures, got %+v", s)
	}
	t.Logf("RSS %s of %s", FormatBytes(s.RSS), FormatBytes(s.HostTotal))
}

func TestFormatBytes(t *testing.T) {
	tests := map[uint64]string{
		512:     "512 B",
		2048:    "2.0 KiB",
		5 << 20: "5.0 MiB",
	}
	for n, want := range tests {
		if got := FormatBytes(n); got != want {
			t.Errorf("FormatBytes(%d): expected %s, got %s", n, want, got)
		}
	}
}
