// Package presets stores the trigger-word to prompt-template mapping
// behind the image commands.
package presets

import (
	"log"
	"sort"
	"sync"

	"figurine-bot/storage"
)

// defaultPresets seed the store on first run so a fresh install has
// something to offer.
var defaultPresets = map[string]string{
	"figurine": "Use the nano-banana model to create a 1/7 scale commercialized figure of the character in the illustration, in a realistic style and environment. Place the figure on a computer desk, using a circular transparent acrylic base without any text. On the computer screen, display the ZBrush modeling process of the figure. Next to the computer screen, place a BANDAI-style toy packaging box printed with the original artwork.",
	"chibi":    "Transform the character into a Nendoroid style Chibi figure. Big head, small body, cute proportions, smooth plastic texture, 3D rendering style.",
	"itaroom":  "Transform the room into an otaku's paradise, filled with anime posters, figurines, and merchandise. Colorful LED lighting, messy but cozy atmosphere.",
}

// Preset pairs a trigger word with its prompt template.
type Preset struct {
	Name   string
	Prompt string
}

// Store holds the presets in memory and writes every change through to
// a JSON file.
type Store struct {
	mu      sync.Mutex
	prompts map[string]string
	file    *storage.FileStore[string]
}

// NewStore loads the preset store, seeding the defaults when the
// backing file does not exist yet.
func NewStore(file *storage.FileStore[string]) *Store {
	s := &Store{
		prompts: file.Load(),
		file:    file,
	}
	if len(s.prompts) == 0 {
		for name, prompt := range defaultPresets {
			s.prompts[name] = prompt
		}
		s.persist()
	}
	return s
}

// Get returns the prompt template for a trigger word, or "" when the
// word is not a preset.
func (s *Store) Get(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prompts[name]
}

// Add creates or replaces a preset.
func (s *Store) Add(name, prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts[name] = prompt
	s.persist()
}

// Delete removes a preset, reporting whether it existed.
func (s *Store) Delete(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.prompts[name]; !ok {
		return false
	}
	delete(s.prompts, name)
	s.persist()
	return true
}

// All returns every preset sorted by trigger word.
func (s *Store) All() []Preset {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Preset, 0, len(s.prompts))
	for name, prompt := range s.prompts {
		out = append(out, Preset{Name: name, Prompt: prompt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Store) persist() {
	if err := s.file.Save(s.prompts); err != nil {
		log.Printf("Failed to persist presets %s: %v", s.file.Path(), err)
	}
}
