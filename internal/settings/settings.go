// Package settings persists scheduler and bot configuration as a small JSON
// file next to the data directory.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Settings is the persisted bot configuration. Zero values are filled from
// Defaults on load.
type Settings struct {
	Timezone       string `json:"timezone"`
	DailyEnabled   bool   `json:"daily_enabled"`
	DailyTime      string `json:"daily_time"`
	WeeklyEnabled  bool   `json:"weekly_enabled"`
	WeeklyDay      string `json:"weekly_day"`
	WeeklyTime     string `json:"weekly_time"`
	SummaryChatID  int64  `json:"summary_chat_id"`
	LastDailySent  string `json:"last_daily_sent"`
	LastWeeklySent string `json:"last_weekly_sent"`
}

// Defaults returns the configuration used when no settings file exists.
func Defaults() Settings {
	return Settings{
		Timezone:     "UTC",
		DailyEnabled: true,
		DailyTime:    "21:00",
		WeeklyDay:    "sun",
		WeeklyTime:   "20:00",
	}
}

// Store reads and writes the settings file. Writes go through a temp file
// and rename so a crash never leaves a half-written file.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads settings from disk. A missing file yields Defaults.
func (s *Store) Load() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (Settings, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Defaults(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}

	out := Defaults()
	if err := json.Unmarshal(data, &out); err != nil {
		return Settings{}, fmt.Errorf("parse settings: %w", err)
	}
	return out, nil
}

// Save writes settings atomically.
func (s *Store) Save(v Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(v)
}

func (s *Store) save(v Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("settings dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Update applies fn to the current settings and saves the result.
func (s *Store) Update(fn func(*Settings)) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.load()
	if err != nil {
		return Settings{}, err
	}
	fn(&v)
	if err := s.save(v); err != nil {
		return Settings{}, err
	}
	return v, nil
}
