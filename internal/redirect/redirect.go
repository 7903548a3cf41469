// Package redirect bounces public profiles to their recruiter view.
package redirect

import (
	"context"
	"time"

	"go.uber.org/zap"

	"OutreachLinkedin/internal/dom"
	"OutreachLinkedin/internal/identity"
	"OutreachLinkedin/internal/navigation"
	"OutreachLinkedin/internal/prefs"
	"OutreachLinkedin/internal/route"
	"OutreachLinkedin/internal/watch"
)

// Outcome is the controller's decision.
type Outcome int

const (
	// Stay means the pipeline continues on the current document.
	Stay Outcome = iota
	// Redirected means the document is being replaced; the run must end.
	Redirected
)

func (o Outcome) String() string {
	if o == Redirected {
		return "redirected"
	}
	return "stay"
}

// Eligible reports whether a redirect may be issued. Each condition gates
// the result on its own.
func Eligible(kind route.Kind, enabled bool, id string) bool {
	return kind == route.KindPublic && enabled && id != ""
}

// Controller decides and performs the redirect.
type Controller struct {
	Page    dom.Page
	Session *navigation.Session
	Prefs   prefs.Source
	// Settle is waited before the preference read.
	Settle time.Duration
}

// Run must be called before field extraction on a public profile. Only
// context cancellation is returned as an error; every other failure means
// Stay.
func (c *Controller) Run(ctx context.Context) (Outcome, error) {
	loc, err := c.Page.Location(ctx)
	if err != nil {
		return Stay, err
	}
	kind := route.Classify(loc)
	if kind != route.KindPublic {
		return Stay, nil
	}
	log := zap.L().With(zap.String("url", loc))

	if err := watch.Sleep(ctx, c.Settle); err != nil {
		return Stay, err
	}

	p, err := c.Prefs.Preferences(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return Stay, ctx.Err()
		}
		log.Debug("redirect: preferences unavailable, treating as disabled", zap.Error(err))
		return Stay, nil
	}
	if !p.RedirectToGated {
		log.Debug("redirect: disabled")
		return Stay, nil
	}

	snap, err := c.Page.Snapshot(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return Stay, ctx.Err()
		}
		log.Debug("redirect: snapshot failed", zap.Error(err))
		return Stay, nil
	}
	id, source := identity.Resolve(snap)
	if !Eligible(kind, p.RedirectToGated, id) {
		log.Debug("redirect: no identifier, staying")
		return Stay, nil
	}

	entity := route.Canonical(loc)
	if !c.Session.Acquire(entity) {
		log.Debug("redirect: latch held for entity, extracting in place")
		return Stay, nil
	}

	target := route.GatedURL(id)
	if err := c.Page.Replace(ctx, target); err != nil {
		c.Session.Release(entity)
		log.Warn("redirect: replace failed", zap.String("target", target), zap.Error(err))
		return Stay, nil
	}
	log.Info("redirect: issued", zap.String("target", target), zap.String("source", source))
	return Redirected, nil
}
