package composer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"OutreachLinkedin/internal/dom"
	"OutreachLinkedin/internal/navigation"
	"OutreachLinkedin/internal/prefs"
	"OutreachLinkedin/internal/route"
	"OutreachLinkedin/internal/watch"
)

// Result describes what a Run did.
type Result int

const (
	NotGated Result = iota
	AlreadyOpen
	Latched
	Disabled
	NotFound
	Opened
	Unverified
)

func (r Result) String() string {
	return [...]string{"not-gated", "already-open", "latched", "disabled", "not-found", "opened", "unverified"}[r]
}

// Autopilot clicks the message control on recruiter profiles, at most once
// per latch cycle of the tracked entity.
type Autopilot struct {
	Page    dom.Page
	Session *navigation.Session
	Prefs   prefs.Source
	Markers route.Markers

	Settle        time.Duration
	ClickDelay    time.Duration
	VerifyDelay   time.Duration
	ButtonTimeout time.Duration
	Interval      time.Duration
}

func (a *Autopilot) detector() *Detector {
	return &Detector{Page: a.Page, Markers: a.Markers}
}

// Run never fails the pipeline: the returned error is only ever ctx.Err().
func (a *Autopilot) Run(ctx context.Context) (Result, error) {
	loc, err := a.Page.Location(ctx)
	if err != nil {
		return NotGated, err
	}
	if route.Classify(loc) != route.KindGated {
		return NotGated, nil
	}
	entity := route.Canonical(loc)
	log := zap.L().With(zap.String("entity", entity))
	det := a.detector()

	if open, via := det.Open(ctx); open {
		log.Debug("composer: already open", zap.String("via", via))
		a.Session.Mark(entity)
		return AlreadyOpen, nil
	}
	if a.Session.Latched() {
		log.Debug("composer: already attempted for entity")
		return Latched, nil
	}

	p, err := a.Prefs.Preferences(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return Disabled, ctx.Err()
		}
		log.Debug("composer: preferences unavailable", zap.Error(err))
		return Disabled, nil
	}
	if !p.AutoOpenComposer {
		log.Debug("composer: auto-open disabled")
		return Disabled, nil
	}

	if err := watch.Sleep(ctx, a.Settle); err != nil {
		return Disabled, err
	}
	if open, via := det.Open(ctx); open {
		log.Debug("composer: opened while settling", zap.String("via", via))
		a.Session.Mark(entity)
		return AlreadyOpen, nil
	}

	path, via, err := a.waitForControl(ctx)
	if err != nil {
		return NotFound, err
	}
	if path == "" {
		log.Info("composer: message control not found")
		return NotFound, nil
	}

	// Latch before the click so a concurrent trigger cannot click again.
	if !a.Session.Acquire(entity) {
		log.Debug("composer: lost latch race")
		return Latched, nil
	}
	if err := watch.Sleep(ctx, a.ClickDelay); err != nil {
		a.Session.Release(entity)
		return Latched, err
	}
	if err := a.Page.Click(ctx, path); err != nil {
		// A cancelled click may still have landed in the page.
		if ctx.Err() != nil {
			return Unverified, ctx.Err()
		}
		a.Session.Release(entity)
		log.Warn("composer: click failed", zap.String("path", path), zap.Error(err))
		return Unverified, nil
	}
	if err := watch.Sleep(ctx, a.VerifyDelay); err != nil {
		return Unverified, err
	}

	if open, _ := det.Open(ctx); !open {
		a.Session.Release(entity)
		log.Info("composer: click did not open composer, will retry on next trigger")
		return Unverified, nil
	}
	log.Info("composer: opened", zap.String("via", via))
	return Opened, nil
}

// waitForControl locates the message control, waiting up to ButtonTimeout
// for it to render.
func (a *Autopilot) waitForControl(ctx context.Context) (path, via string, err error) {
	locate := func(ctx context.Context) (bool, error) {
		snap, err := a.Page.Snapshot(ctx)
		if err != nil {
			return false, err
		}
		path, via = Locate(snap)
		return path != "", nil
	}
	f := watch.Start(ctx, a.Page, dom.Mutation, locate, watch.Options{
		Timeout:  a.ButtonTimeout,
		Interval: a.Interval,
		Name:     "message-control",
	})
	met, err := f.Wait(ctx)
	if err != nil || !met {
		return "", "", err
	}
	return path, via, nil
}
