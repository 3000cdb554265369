// Package prefs persists per-installation client preferences as one JSON file.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/sanctum/internal/apperr"
)

// FileName is the preferences file created next to the database.
const FileName = "preferences.json"

// maxUsername bounds the chat display name.
const maxUsername = 40

// ClientPreferences is state a dashboard client wants back across sessions.
type ClientPreferences struct {
	Username        string   `json:"username"`
	WeatherLocation string   `json:"weatherLocation"`
	JoinedRooms     []string `json:"joinedRooms"`
	SeenQuotes      []string `json:"seenQuotes"`
}

// Validate checks user-supplied preferences.
func (p *ClientPreferences) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Username, validation.Length(0, maxUsername)),
		validation.Field(&p.JoinedRooms, validation.Each(validation.Required)),
	)
}

func (p *ClientPreferences) normalize() {
	if p.JoinedRooms == nil {
		p.JoinedRooms = []string{}
	}
	if p.SeenQuotes == nil {
		p.SeenQuotes = []string{}
	}
}

// File loads and saves preferences at a fixed path.
type File struct {
	mu   sync.Mutex
	path string
}

// NewFile returns the preferences file stored beside dbPath.
func NewFile(dbPath string) *File {
	return &File{path: filepath.Join(filepath.Dir(dbPath), FileName)}
}

// Path returns the file location.
func (f *File) Path() string { return f.path }

// Load reads the preferences. A missing file yields empty preferences.
func (f *File) Load() (ClientPreferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var p ClientPreferences
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		p.normalize()
		return p, nil
	}
	if err != nil {
		return ClientPreferences{}, fmt.Errorf("prefs: read: %w", err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return ClientPreferences{}, fmt.Errorf("prefs: parse %s: %w", f.path, err)
	}
	p.normalize()
	return p, nil
}

// Save validates p and replaces the file atomically.
func (f *File) Save(p ClientPreferences) (ClientPreferences, error) {
	if err := p.Validate(); err != nil {
		return ClientPreferences{}, apperr.Validation("preferences", err)
	}
	p.normalize()
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return ClientPreferences{}, fmt.Errorf("prefs: encode: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return ClientPreferences{}, fmt.Errorf("prefs: write: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return ClientPreferences{}, fmt.Errorf("prefs: rename: %w", err)
	}
	return p, nil
}
