package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"OutreachLinkedin/internal/dom"
	"OutreachLinkedin/internal/profile"
	"OutreachLinkedin/internal/route"
)

// Extractor builds records from a live page.
type Extractor struct {
	Variants map[route.Kind]*Variant
	Now      func() time.Time
}

// New returns an extractor over the built-in variant tables.
func New() *Extractor {
	return &Extractor{Variants: Variants, Now: time.Now}
}

// Extract snapshots page and assembles a record for kind. A nil record with
// a nil error means no name could be recovered; callers retry on the next
// trigger. Panics inside a strategy are recovered and reported the same way.
func (e *Extractor) Extract(ctx context.Context, page dom.Page, kind route.Kind) (rec *profile.Record, err error) {
	v, ok := e.Variants[kind]
	if !ok {
		return nil, eris.Errorf("extract: no variant for %s page", kind)
	}

	snap, err := page.Snapshot(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "extract: snapshot")
	}

	defer func() {
		if r := recover(); r != nil {
			zap.L().Warn("extract: strategy panicked", zap.String("panic", fmt.Sprint(r)), zap.String("url", snap.URL))
			rec, err = nil, nil
		}
	}()
	return e.FromSnapshot(snap, v), nil
}

// FromSnapshot runs a variant table against an existing snapshot.
func (e *Extractor) FromSnapshot(snap *dom.Snapshot, v *Variant) *profile.Record {
	log := zap.L().With(zap.Stringer("variant", v.Kind), zap.String("url", snap.URL))

	raw, src := First(snap, v.Name)
	name := v.ParseName(raw)
	if name.First == "" {
		log.Debug("extract: no name recovered")
		return nil
	}
	log.Debug("extract: name", zap.String("strategy", src), zap.String("raw", raw))

	headline, _ := First(snap, v.Headline)
	title, _ := First(snap, v.Title)
	company, _ := First(snap, v.Company)
	location, _ := First(snap, v.Location)
	education, _ := First(snap, v.Education)

	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	return &profile.Record{
		FullName:    name.Full,
		FirstName:   name.First,
		LastName:    name.Last,
		Headline:    headline,
		Title:       title,
		Company:     company,
		Location:    location,
		Education:   education,
		Credentials: name.Credentials,
		ProfileURL:  route.Canonical(snap.URL),
		Variant:     v.Kind.String(),
		CapturedAt:  now(),
	}
}
