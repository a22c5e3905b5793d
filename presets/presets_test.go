package presets

import (
	"path/filepath"
	"testing"

	"figurine-bot/storage"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "presets.json")
	return NewStore(storage.NewFileStore[string](path)), path
}

func TestStoreSeedsDefaults(t *testing.T) {
	s, _ := newTestStore(t)

	if s.Get("figurine") == "" {
		t.Error("Expected default figurine preset to be seeded")
	}
	if len(s.All()) != 3 {
		t.Errorf("Expected 3 default presets, got %d", len(s.All()))
	}
}

func TestStoreAddGetDelete(t *testing.T) {
	s, _ := newTestStore(t)

	s.Add("pixel", "Convert the character into 16-bit pixel art.")
	if got := s.Get("pixel"); got == "" {
		t.Fatal("Expected added preset to be retrievable")
	}

	if !s.Delete("pixel") {
		t.Error("Expected Delete to report the preset existed")
	}
	if s.Get("pixel") != "" {
		t.Error("Expected deleted preset to be gone")
	}
	if s.Delete("pixel") {
		t.Error("Expected second Delete to report missing")
	}
}

func TestStoreAllSorted(t *testing.T) {
	s, _ := newTestStore(t)
	s.Add("aaa", "first")
	s.Add("zzz", "last")

	all := s.All()
	for i := 1; i < len(all); i++ {
		if all[i-1].Name > all[i].Name {
			t.Fatalf("Presets not sorted: %q before %q", all[i-1].Name, all[i].Name)
		}
	}
}

func TestStorePersistsAcrossReload(t *testing.T) {
	s, path := newTestStore(t)
	s.Add("pixel", "Convert the character into 16-bit pixel art.")
	s.Delete("itaroom")

	reloaded := NewStore(storage.NewFileStore[string](path))
	if reloaded.Get("pixel") == "" {
		t.Error("Expected added preset to survive a reload")
	}
	if reloaded.Get("itaroom") != "" {
		t.Error("Expected deleted preset to stay deleted after reload")
	}
}
