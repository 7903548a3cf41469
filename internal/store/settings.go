package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/rotisserie/eris"

	"OutreachLinkedin/internal/prefs"
)

const (
	keySettings = "settings"
	keyLastSync = "last_sync"
)

// Settings is everything the operator edits in the panel. The engine
// toggles are embedded so GET /api/settings also serves prefs.Remote.
type Settings struct {
	prefs.Preferences
	LeadsWebhookURL   string `json:"n8nWebhookUrl"`
	LoggingWebhookURL string `json:"n8nLoggingWebhookUrl"`
	AutoAdvanceOnSend bool   `json:"autoAdvanceOnSend"`
	UserEmail         string `json:"userEmail"`
}

// DefaultSettings is returned before anything was saved.
func DefaultSettings() Settings {
	return Settings{AutoAdvanceOnSend: true}
}

// Settings returns the saved settings or DefaultSettings.
func (s *Store) Settings(ctx context.Context) (Settings, error) {
	set := DefaultSettings()
	found, err := s.getJSON(ctx, keySettings, &set)
	if err != nil {
		return Settings{}, err
	}
	if !found {
		return DefaultSettings(), nil
	}
	return set, nil
}

// SaveSettings replaces the saved settings.
func (s *Store) SaveSettings(ctx context.Context, set Settings) error {
	return s.putJSON(ctx, s.db, keySettings, set)
}

// Preferences implements prefs.Source over the saved settings.
func (s *Store) Preferences(ctx context.Context) (prefs.Preferences, error) {
	set, err := s.Settings(ctx)
	if err != nil {
		return prefs.Preferences{}, err
	}
	return set.Preferences, nil
}

var _ prefs.Source = (*Store)(nil)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) getJSON(ctx context.Context, key string, v any) (bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "store: read %s", key)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, eris.Wrapf(err, "store: decode %s", key)
	}
	return true, nil
}

func (s *Store) putJSON(ctx context.Context, db execer, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return eris.Wrapf(err, "store: encode %s", key)
	}
	_, err = db.ExecContext(ctx,
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, string(b))
	return eris.Wrapf(err, "store: write %s", key)
}
