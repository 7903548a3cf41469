// Package prefs reads the two engine toggles from the background service.
// Values are read at the point of use and never cached.
package prefs

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"
)

// Preferences are the engine's action toggles. Both default to off.
type Preferences struct {
	RedirectToGated  bool `json:"recruiterRedirectEnabled"`
	AutoOpenComposer bool `json:"autoOpenMessageComposer"`
}

// Source supplies the current preferences.
type Source interface {
	Preferences(ctx context.Context) (Preferences, error)
}

// Static is a fixed preference set.
type Static Preferences

func (s Static) Preferences(context.Context) (Preferences, error) {
	return Preferences(s), nil
}

// Remote fetches preferences from the background service.
type Remote struct {
	client *resty.Client
}

// NewRemote returns a Source reading GET {baseURL}/api/settings.
func NewRemote(baseURL string, timeout time.Duration) *Remote {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Remote{client: c}
}

func (r *Remote) Preferences(ctx context.Context) (Preferences, error) {
	var p Preferences
	resp, err := r.client.R().SetContext(ctx).SetResult(&p).Get("/api/settings")
	if err != nil {
		return Preferences{}, eris.Wrap(err, "prefs: fetch settings")
	}
	if resp.IsError() {
		return Preferences{}, eris.Errorf("prefs: settings returned HTTP %d", resp.StatusCode())
	}
	return p, nil
}
