package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"OutreachLinkedin/internal/crm"
)

// CachedLead is a CRM lead plus the panel's local state for it.
type CachedLead struct {
	crm.Lead
	MessageGenerated bool   `json:"messageGenerated"`
	GeneratedMessage string `json:"generatedMessage,omitempty"`
}

// SaveLeads replaces the leads cache and stamps the sync time.
func (s *Store) SaveLeads(ctx context.Context, leads []crm.Lead, at time.Time) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM leads"); err != nil {
			return eris.Wrap(err, "store: clear leads")
		}
		for i, l := range leads {
			b, err := json.Marshal(l)
			if err != nil {
				return eris.Wrapf(err, "store: encode lead %s", l.ID)
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO leads (id, position, data) VALUES (?, ?, ?) ON CONFLICT(id) DO NOTHING",
				l.ID, i, string(b)); err != nil {
				return eris.Wrapf(err, "store: insert lead %s", l.ID)
			}
		}
		return s.putJSON(ctx, tx, keyLastSync, at.UTC())
	})
}

// Leads returns the cached leads in sync order.
func (s *Store) Leads(ctx context.Context) ([]CachedLead, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT data, message_generated, generated_message FROM leads ORDER BY position ASC")
	if err != nil {
		return nil, eris.Wrap(err, "store: list leads")
	}
	defer rows.Close()

	var leads []CachedLead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "store: list leads")
}

// Lead returns one cached lead.
func (s *Store) Lead(ctx context.Context, id string) (CachedLead, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT data, message_generated, generated_message FROM leads WHERE id = ?", id)
	l, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return CachedLead{}, ErrNotFound
	}
	return l, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLead(sc scanner) (CachedLead, error) {
	var (
		l   CachedLead
		raw string
	)
	if err := sc.Scan(&raw, &l.MessageGenerated, &l.GeneratedMessage); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CachedLead{}, err
		}
		return CachedLead{}, eris.Wrap(err, "store: scan lead")
	}
	if err := json.Unmarshal([]byte(raw), &l.Lead); err != nil {
		return CachedLead{}, eris.Wrap(err, "store: decode lead")
	}
	return l, nil
}

// LastSync returns when the leads cache was last replaced. ok is false
// before the first sync.
func (s *Store) LastSync(ctx context.Context) (at time.Time, ok bool, err error) {
	ok, err = s.getJSON(ctx, keyLastSync, &at)
	return at, ok, err
}

// MarkLeadSent flags a cached lead as messaged on LinkedIn. An empty message
// keeps the previously generated one.
func (s *Store) MarkLeadSent(ctx context.Context, id, message string) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		var (
			raw  string
			prev string
		)
		err := tx.QueryRowContext(ctx, "SELECT data, generated_message FROM leads WHERE id = ?", id).Scan(&raw, &prev)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return eris.Wrapf(err, "store: read lead %s", id)
		}

		var lead crm.Lead
		if err := json.Unmarshal([]byte(raw), &lead); err != nil {
			return eris.Wrapf(err, "store: decode lead %s", id)
		}
		lead.LinkedInSent = true
		b, err := json.Marshal(lead)
		if err != nil {
			return eris.Wrapf(err, "store: encode lead %s", id)
		}
		if message == "" {
			message = prev
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE leads SET data = ?, message_generated = 1, generated_message = ? WHERE id = ?",
			string(b), message, id)
		return eris.Wrapf(err, "store: update lead %s", id)
	})
}
