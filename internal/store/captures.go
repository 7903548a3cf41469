package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"OutreachLinkedin/internal/profile"
)

// SaveCapture appends rec to the capture history.
func (s *Store) SaveCapture(ctx context.Context, rec *profile.Record) error {
	if !rec.Valid() {
		return eris.New("store: capture without a first name")
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "store: encode capture")
	}
	at := rec.CapturedAt
	if at.IsZero() {
		at = time.Now()
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO captures (captured_at, profile_url, variant, data) VALUES (?, ?, ?, ?)",
		at.UTC().Format(time.RFC3339Nano), rec.ProfileURL, rec.Variant, string(b))
	return eris.Wrap(err, "store: insert capture")
}

// Captures returns the most recent limit captures, oldest first. limit <= 0
// returns all of them.
func (s *Store) Captures(ctx context.Context, limit int) ([]*profile.Record, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT data FROM (SELECT id, data FROM captures ORDER BY id DESC LIMIT ?) ORDER BY id ASC", limit)
	if err != nil {
		return nil, eris.Wrap(err, "store: list captures")
	}
	defer rows.Close()

	var recs []*profile.Record
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "store: scan capture")
		}
		rec := &profile.Record{}
		if err := json.Unmarshal([]byte(raw), rec); err != nil {
			return nil, eris.Wrap(err, "store: decode capture")
		}
		recs = append(recs, rec)
	}
	return recs, eris.Wrap(rows.Err(), "store: list captures")
}
