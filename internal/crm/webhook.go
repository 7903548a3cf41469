package crm

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Webhook reads leads from one n8n webhook and logs activity to another.
// Either URL may be changed at runtime from the settings panel.
type Webhook struct {
	client *resty.Client

	mu         sync.RWMutex
	leadsURL   string
	loggingURL string
}

// NewWebhook returns a webhook client. Empty URLs are allowed and make the
// matching operation return ErrNotConfigured.
func NewWebhook(leadsURL, loggingURL string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Webhook{client: c, leadsURL: leadsURL, loggingURL: loggingURL}
}

// SetURLs swaps both endpoints.
func (w *Webhook) SetURLs(leadsURL, loggingURL string) {
	w.mu.Lock()
	w.leadsURL, w.loggingURL = leadsURL, loggingURL
	w.mu.Unlock()
}

func (w *Webhook) urls() (string, string) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.leadsURL, w.loggingURL
}

// FetchLeads asks the leads webhook for the leads owned by email.
func (w *Webhook) FetchLeads(ctx context.Context, email string) ([]Lead, error) {
	leadsURL, _ := w.urls()
	if leadsURL == "" {
		return nil, eris.Wrap(ErrNotConfigured, "crm: leads webhook URL")
	}
	if email == "" {
		return nil, eris.New("crm: no email provided for lead fetch")
	}

	resp, err := w.client.R().
		SetContext(ctx).
		SetQueryParam("email", email).
		Get(leadsURL)
	if err != nil {
		return nil, eris.Wrap(err, "crm: fetch leads")
	}
	if resp.IsError() {
		return nil, eris.Errorf("crm: leads webhook returned %s", resp.Status())
	}

	leads, err := decodeLeads(resp.Body())
	if err != nil {
		return nil, err
	}
	zap.L().Info("crm: fetched leads", zap.Int("count", len(leads)), zap.String("email", email))
	return leads, nil
}

// decodeLeads accepts a bare array or an object wrapping it in "leads" or
// "data". Leads missing an id or either name are dropped.
func decodeLeads(body []byte) ([]Lead, error) {
	var raw []Lead
	if err := json.Unmarshal(body, &raw); err != nil {
		var wrapped struct {
			Leads []Lead `json:"leads"`
			Data  []Lead `json:"data"`
		}
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return nil, eris.Wrap(err, "crm: decode leads")
		}
		raw = wrapped.Leads
		if raw == nil {
			raw = wrapped.Data
		}
	}

	leads := make([]Lead, 0, len(raw))
	for _, l := range raw {
		if l.complete() {
			leads = append(leads, l)
		}
	}
	return leads, nil
}

// LogActivity posts a to the logging webhook.
func (w *Webhook) LogActivity(ctx context.Context, a Activity) error {
	_, loggingURL := w.urls()
	if loggingURL == "" {
		return eris.Wrap(ErrNotConfigured, "crm: logging webhook URL")
	}

	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(a).
		Post(loggingURL)
	if err != nil {
		return eris.Wrap(err, "crm: log activity")
	}
	if resp.IsError() {
		return eris.Errorf("crm: logging webhook returned %s", resp.Status())
	}
	zap.L().Info("crm: activity logged", zap.String("lead", a.LeadID))
	return nil
}

// Ping checks that the leads webhook answers.
func (w *Webhook) Ping(ctx context.Context) error {
	leadsURL, _ := w.urls()
	if leadsURL == "" {
		return eris.Wrap(ErrNotConfigured, "crm: leads webhook URL")
	}
	resp, err := w.client.R().SetContext(ctx).Get(leadsURL)
	if err != nil {
		return eris.Wrap(err, "crm: ping")
	}
	if resp.IsError() {
		return eris.Errorf("crm: leads webhook returned %s", resp.Status())
	}
	return nil
}
