package navigation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"OutreachLinkedin/internal/dom"
	"OutreachLinkedin/internal/watch"
)

// Reason is why the pipeline should run.
type Reason int

const (
	Initial Reason = iota
	URLChanged
	HistoryNav
	Visible
)

func (r Reason) String() string {
	switch r {
	case Initial:
		return "initial"
	case URLChanged:
		return "url-changed"
	case HistoryNav:
		return "history"
	case Visible:
		return "visible"
	default:
		return "unknown"
	}
}

// Event is one pipeline trigger.
type Event struct {
	Reason Reason
	Change Change
}

// Watcher turns document signals into pipeline triggers.
type Watcher struct {
	Page    dom.Page
	Session *Session
	// HistorySettle delays the re-check after back/forward navigation.
	HistorySettle time.Duration
	// VisibleSettle delays the re-run after the tab becomes visible.
	VisibleSettle time.Duration
	Interval      time.Duration
}

// Run emits an Initial event, then one event per detected change until ctx
// ends. handle is called from the watcher goroutine and must not block.
func (w *Watcher) Run(ctx context.Context, handle func(Event)) error {
	hist := w.Page.Observe(dom.History)
	defer hist.Close()
	vis := w.Page.Observe(dom.Visibility)
	defer vis.Close()

	loc, err := w.Page.Location(ctx)
	if err != nil {
		return err
	}
	handle(Event{Reason: Initial, Change: w.Session.Observe(loc)})

	for {
		f := watch.Start(ctx, w.Page, dom.Mutation, w.urlChanged, watch.Options{
			Interval: w.Interval,
			Name:     "navigation",
		})

		select {
		case <-ctx.Done():
			f.Cancel()
			<-f.Done()
			return ctx.Err()

		case <-f.Done():
			if _, err := f.Result(); err != nil {
				return err
			}
			w.emit(ctx, URLChanged, handle)

		case <-hist.Ticks():
			f.Cancel()
			<-f.Done()
			if err := watch.Sleep(ctx, w.HistorySettle); err != nil {
				return err
			}
			w.emit(ctx, HistoryNav, handle)

		case <-vis.Ticks():
			f.Cancel()
			<-f.Done()
			if err := watch.Sleep(ctx, w.VisibleSettle); err != nil {
				return err
			}
			w.emit(ctx, Visible, handle)
		}
	}
}

func (w *Watcher) urlChanged(ctx context.Context) (bool, error) {
	loc, err := w.Page.Location(ctx)
	if err != nil {
		return false, err
	}
	return loc != w.Session.LastURL(), nil
}

func (w *Watcher) emit(ctx context.Context, reason Reason, handle func(Event)) {
	loc, err := w.Page.Location(ctx)
	if err != nil {
		zap.L().Debug("navigation: location unavailable", zap.Error(err))
		return
	}
	ch := w.Session.Observe(loc)
	if reason == URLChanged && !ch.Changed {
		return
	}
	zap.L().Debug("navigation: trigger",
		zap.Stringer("reason", reason),
		zap.String("url", ch.URL),
		zap.Bool("new_entity", ch.NewEntity),
		zap.Bool("latched", ch.Latched),
	)
	handle(Event{Reason: reason, Change: ch})
}
