// Package egress delivers scraped records to the background service.
// Delivery is best-effort and never retried.
package egress

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"OutreachLinkedin/internal/profile"
)

// Message types on the background channel.
const (
	TypeProfileScraped    = "PROFILE_SCRAPED"
	TypeGetScrapedProfile = "GET_SCRAPED_PROFILE"
	TypeProfileUpdate     = "PROFILE_UPDATE"
)

// ErrContextInvalidated means the background service is gone. Senders
// swallow it.
var ErrContextInvalidated = eris.New("egress: background context invalidated")

// Envelope is the wire format for background messages.
type Envelope struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Ack is the optional background reply.
type Ack struct {
	Success bool            `json:"success,omitempty"`
	Error   string          `json:"error,omitempty"`
	Profile *profile.Record `json:"profile,omitempty"`
}

// NewEnvelope wraps payload with a fresh id.
func NewEnvelope(typ string, payload any) (Envelope, error) {
	env := Envelope{ID: uuid.NewString(), Type: typ}
	if payload == nil {
		return env, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, eris.Wrap(err, "egress: encode payload")
	}
	env.Payload = b
	return env, nil
}

// Channel sends one record.
type Channel interface {
	Send(ctx context.Context, rec *profile.Record) error
}

// HTTP posts envelopes to the background service.
type HTTP struct {
	client *resty.Client
}

// NewHTTP returns a channel posting to {baseURL}/api/messages.
func NewHTTP(baseURL string, timeout time.Duration) *HTTP {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json")
	return &HTTP{client: c}
}

// Send delivers rec. An invalidated background is swallowed; other
// failures are returned for logging and are never retried.
func (h *HTTP) Send(ctx context.Context, rec *profile.Record) error {
	err := h.send(ctx, rec)
	if errors.Is(err, ErrContextInvalidated) {
		zap.L().Debug("egress: background unavailable, dropping record", zap.String("url", rec.ProfileURL))
		return nil
	}
	return err
}

func (h *HTTP) send(ctx context.Context, rec *profile.Record) error {
	env, err := NewEnvelope(TypeProfileScraped, rec)
	if err != nil {
		return err
	}

	var ack Ack
	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(env).
		SetResult(&ack).
		Post("/api/messages")
	if err != nil {
		if invalidated(err) {
			return ErrContextInvalidated
		}
		return eris.Wrap(err, "egress: post")
	}
	if resp.StatusCode() == http.StatusGone {
		return ErrContextInvalidated
	}
	if resp.IsError() {
		return eris.Errorf("egress: background returned HTTP %d", resp.StatusCode())
	}

	zap.L().Debug("egress: delivered",
		zap.String("id", env.ID),
		zap.Bool("ack", ack.Success),
		zap.String("url", rec.ProfileURL),
	)
	return nil
}

func invalidated(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET)
}

// Writer prints records as JSON lines.
type Writer struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewWriter returns a channel writing to w.
func NewWriter(w io.Writer) *Writer {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return &Writer{enc: enc}
}

func (w *Writer) Send(_ context.Context, rec *profile.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return eris.Wrap(w.enc.Encode(rec), "egress: write record")
}

// Memory keeps records in memory.
type Memory struct {
	mu      sync.Mutex
	records []*profile.Record
}

func (m *Memory) Send(_ context.Context, rec *profile.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

// Records returns what has been sent so far.
func (m *Memory) Records() []*profile.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*profile.Record(nil), m.records...)
}

// Multi fans a record out to several channels. Every channel is tried; the
// first error is returned.
type Multi []Channel

func (m Multi) Send(ctx context.Context, rec *profile.Record) error {
	var first error
	for _, c := range m {
		if err := c.Send(ctx, rec); err != nil && first == nil {
			first = err
		}
	}
	return first
}
