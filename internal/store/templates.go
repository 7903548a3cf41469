package store

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"

	"OutreachLinkedin/internal/outreach"
)

// Templates returns the saved templates in order, or the built-in ones when
// none were saved.
func (s *Store) Templates(ctx context.Context) ([]outreach.Template, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, category, content, is_default FROM templates ORDER BY position ASC")
	if err != nil {
		return nil, eris.Wrap(err, "store: list templates")
	}
	defer rows.Close()

	var ts []outreach.Template
	for rows.Next() {
		var t outreach.Template
		if err := rows.Scan(&t.ID, &t.Name, &t.Category, &t.Content, &t.IsDefault); err != nil {
			return nil, eris.Wrap(err, "store: scan template")
		}
		ts = append(ts, t)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "store: list templates")
	}
	if len(ts) == 0 {
		return outreach.Defaults(), nil
	}
	return ts, nil
}

// Template returns one template by id.
func (s *Store) Template(ctx context.Context, id string) (outreach.Template, error) {
	ts, err := s.Templates(ctx)
	if err != nil {
		return outreach.Template{}, err
	}
	for _, t := range ts {
		if t.ID == id {
			return t, nil
		}
	}
	return outreach.Template{}, ErrNotFound
}

// SaveTemplates replaces the template list. An empty list restores the
// built-in templates.
func (s *Store) SaveTemplates(ctx context.Context, ts []outreach.Template) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM templates"); err != nil {
			return eris.Wrap(err, "store: clear templates")
		}
		for i, t := range ts {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO templates (id, position, name, category, content, is_default) VALUES (?, ?, ?, ?, ?, ?)",
				t.ID, i, t.Name, t.Category, t.Content, t.IsDefault)
			if err != nil {
				return eris.Wrapf(err, "store: insert template %s", t.ID)
			}
		}
		return nil
	})
}
