package config

import (
	"encoding/json"
	"fmt"

	"github.com/quasilyte/gdata"
)

const preferencesKey = "preferences"

// Preferences are the client toggles remembered between runs.
type Preferences struct {
	PlayerName         string `json:"playerName"`
	Prediction         bool   `json:"prediction"`
	Reconciliation     bool   `json:"reconciliation"`
	LocalInterpolation bool   `json:"localInterpolation"`
}

// PreferencesFrom captures the persisted subset of cfg.
func PreferencesFrom(cfg Config) Preferences {
	return Preferences{
		PlayerName:         cfg.Client.PlayerName,
		Prediction:         cfg.Network.Prediction,
		Reconciliation:     cfg.Network.Reconciliation,
		LocalInterpolation: cfg.Network.LocalInterpolation,
	}
}

// Apply overwrites the matching fields of cfg.
func (p Preferences) Apply(cfg *Config) {
	if p.PlayerName != "" {
		cfg.Client.PlayerName = p.PlayerName
	}
	cfg.Network.Prediction = p.Prediction
	cfg.Network.Reconciliation = p.Reconciliation
	cfg.Network.LocalInterpolation = p.LocalInterpolation
}

type itemStore interface {
	LoadItem(itemKey string) ([]byte, error)
	SaveItem(itemKey string, data []byte) error
}

// PreferenceStore reads and writes Preferences in the per-user data dir.
type PreferenceStore struct {
	items itemStore
}

// OpenPreferences opens the gdata store for appName.
func OpenPreferences(appName string) (*PreferenceStore, error) {
	m, err := gdata.Open(gdata.Config{
		AppName: appName,
	})
	if err != nil {
		return nil, fmt.Errorf("could not initialize persistence: %w", err)
	}
	return &PreferenceStore{items: m}, nil
}

// Load returns the saved preferences. ok is false when nothing was saved yet.
func (s *PreferenceStore) Load() (prefs Preferences, ok bool, err error) {
	data, err := s.items.LoadItem(preferencesKey)
	if err != nil || data == nil {
		// No saved preferences yet, use defaults
		return Preferences{}, false, nil
	}
	if err := json.Unmarshal(data, &prefs); err != nil {
		return Preferences{}, false, fmt.Errorf("could not parse saved preferences: %w", err)
	}
	return prefs, true, nil
}

// Save writes prefs, replacing whatever was stored.
func (s *PreferenceStore) Save(prefs Preferences) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("could not serialize preferences: %w", err)
	}
	if err := s.items.SaveItem(preferencesKey, data); err != nil {
		return fmt.Errorf("could not save preferences: %w", err)
	}
	return nil
}
