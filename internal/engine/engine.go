// Package engine runs the scrape pipeline for one tab: classify, wait for
// hydration, maybe redirect, extract, deliver, and maybe open the composer.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"OutreachLinkedin/internal/composer"
	"OutreachLinkedin/internal/config"
	"OutreachLinkedin/internal/dom"
	"OutreachLinkedin/internal/egress"
	"OutreachLinkedin/internal/extract"
	"OutreachLinkedin/internal/navigation"
	"OutreachLinkedin/internal/prefs"
	"OutreachLinkedin/internal/profile"
	"OutreachLinkedin/internal/redirect"
	"OutreachLinkedin/internal/route"
	"OutreachLinkedin/internal/watch"
)

// Report summarises one pipeline pass.
type Report struct {
	Reason   navigation.Reason
	URL      string
	Kind     route.Kind
	Hydrated bool
	Redirect redirect.Outcome
	Record   *profile.Record
	Composer composer.Result
	Err      error
}

// Engine owns the per-tab session and every pipeline component.
type Engine struct {
	Page      dom.Page
	Session   *navigation.Session
	Watcher   *navigation.Watcher
	Hydration *watch.Hydration
	Redirect  *redirect.Controller
	Extractor *extract.Extractor
	Egress    egress.Channel
	Autopilot *composer.Autopilot

	// OnReport, when set, receives every finished pass.
	OnReport func(Report)

	mu     sync.Mutex
	cancel context.CancelFunc
	runs   sync.WaitGroup
}

// New wires an engine for page from configuration.
func New(page dom.Page, cfg *config.Config, pr prefs.Source, out egress.Channel) *Engine {
	eng := cfg.Engine
	markers := route.ParseMarkers(cfg.Navigation.ActionMarkers)
	session := navigation.NewSession(markers)

	return &Engine{
		Page:    page,
		Session: session,
		Watcher: &navigation.Watcher{
			Page:          page,
			Session:       session,
			HistorySettle: eng.HistorySettle,
			VisibleSettle: eng.VisibleSettle,
			Interval:      eng.PollInterval,
		},
		Hydration: &watch.Hydration{
			Page: page,
			Landmarks: map[route.Kind][]string{
				route.KindPublic: cfg.Landmarks.Public,
				route.KindGated:  cfg.Landmarks.Gated,
			},
			Timeout:  eng.HydrationTimeout,
			Settle:   eng.HydrationSettle,
			Interval: eng.PollInterval,
		},
		Redirect: &redirect.Controller{
			Page:    page,
			Session: session,
			Prefs:   pr,
			Settle:  eng.RedirectSettle,
		},
		Extractor: extract.New(),
		Egress:    out,
		Autopilot: &composer.Autopilot{
			Page:          page,
			Session:       session,
			Prefs:         pr,
			Markers:       markers,
			Settle:        eng.ComposerSettle,
			ClickDelay:    eng.ComposerClickDelay,
			VerifyDelay:   eng.ComposerVerifyDelay,
			ButtonTimeout: eng.ComposerButtonTimeout,
			Interval:      eng.PollInterval,
		},
	}
}

// Run watches the tab until ctx ends. Every trigger cancels the pass still
// in flight before starting a new one.
func (e *Engine) Run(ctx context.Context) error {
	err := e.Watcher.Run(ctx, func(ev navigation.Event) { e.trigger(ctx, ev) })

	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.mu.Unlock()
	e.runs.Wait()

	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}

func (e *Engine) trigger(parent context.Context, ev navigation.Event) {
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	e.cancel = cancel
	e.mu.Unlock()

	e.runs.Add(1)
	go func() {
		defer e.runs.Done()
		defer cancel()
		rep := e.pass(ctx, ev.Reason)
		if e.OnReport != nil {
			e.OnReport(rep)
		}
	}()
}

// RunOnce performs a single pass on the current document. Report.Record is
// nil when no record was produced.
func (e *Engine) RunOnce(ctx context.Context) (Report, error) {
	loc, err := e.Page.Location(ctx)
	if err != nil {
		return Report{}, eris.Wrap(err, "engine: location")
	}
	e.Session.Observe(loc)
	rep := e.pass(ctx, navigation.Initial)
	return rep, rep.Err
}

func (e *Engine) pass(ctx context.Context, reason navigation.Reason) (rep Report) {
	rep.Reason = reason
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("engine: pass panicked", zap.String("panic", fmt.Sprint(r)), zap.String("url", rep.URL))
			rep.Err = eris.Errorf("engine: pass panicked: %v", r)
		}
	}()

	loc, err := e.Page.Location(ctx)
	if err != nil {
		rep.Err = err
		return rep
	}
	rep.URL = loc
	rep.Kind = route.Classify(loc)
	log := zap.L().With(zap.Stringer("reason", reason), zap.Stringer("variant", rep.Kind), zap.String("url", loc))

	if !rep.Kind.Profile() {
		log.Debug("engine: not a profile page")
		return rep
	}

	rep.Hydrated, err = e.Hydration.Wait(ctx, rep.Kind)
	if err != nil {
		rep.Err = err
		return rep
	}

	if rep.Kind == route.KindPublic {
		rep.Redirect, err = e.Redirect.Run(ctx)
		if err != nil {
			rep.Err = err
			return rep
		}
		if rep.Redirect == redirect.Redirected {
			log.Debug("engine: document is being replaced, ending pass")
			return rep
		}
	}

	rep.Record, err = e.Extractor.Extract(ctx, e.Page, rep.Kind)
	if err != nil {
		if ctx.Err() != nil {
			rep.Err = ctx.Err()
			return rep
		}
		log.Warn("engine: extraction failed", zap.Error(err))
		return rep
	}
	if rep.Record == nil {
		log.Info("engine: no record yet, waiting for next trigger")
		return rep
	}
	log.Info("engine: profile scraped",
		zap.String("name", rep.Record.FullName),
		zap.Strings("credentials", rep.Record.Credentials),
		zap.Bool("hydrated", rep.Hydrated),
	)

	if err := e.Egress.Send(ctx, rep.Record); err != nil {
		log.Warn("engine: egress failed", zap.Error(err))
	}

	if rep.Kind == route.KindGated {
		rep.Composer, err = e.Autopilot.Run(ctx)
		if err != nil {
			rep.Err = err
		}
	}
	return rep
}
