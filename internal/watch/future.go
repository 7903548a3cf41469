// Package watch waits for conditions on a live document. A predicate is
// re-evaluated whenever the page publishes a signal, so waiters are woken by
// the document itself rather than by a fixed polling loop.
package watch

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"OutreachLinkedin/internal/dom"
)

// Predicate reports whether the awaited condition holds.
type Predicate func(ctx context.Context) (bool, error)

// Options bound a wait.
type Options struct {
	// Timeout of zero or less waits until cancelled.
	Timeout time.Duration
	// Interval is the minimum gap between predicate evaluations.
	Interval time.Duration
	// Name labels log lines.
	Name string
}

// Future resolves once: the predicate held, the timeout elapsed, or the
// wait was cancelled. The page subscription is released before Done closes.
type Future struct {
	done   chan struct{}
	cancel context.CancelFunc
	met    bool
	err    error
}

// Start begins watching. The predicate is checked immediately and then on
// every sig tick.
func Start(ctx context.Context, page dom.Page, sig dom.Signal, pred Predicate, opts Options) *Future {
	ctx, cancel := context.WithCancel(ctx)
	f := &Future{done: make(chan struct{}), cancel: cancel}

	// Subscribe before the first check so a change between the check and
	// the subscription cannot be missed.
	sub := page.Observe(sig)
	go f.loop(ctx, sub, pred, opts)
	return f
}

func (f *Future) loop(ctx context.Context, sub *dom.Subscription, pred Predicate, opts Options) {
	defer close(f.done)
	defer f.cancel()
	defer sub.Close()

	log := zap.L().With(zap.String("wait", opts.Name))

	var timeout <-chan time.Time
	if opts.Timeout > 0 {
		t := time.NewTimer(opts.Timeout)
		defer t.Stop()
		timeout = t.C
	}

	limiter := rate.NewLimiter(rate.Every(opts.Interval), 1)
	var deferred <-chan time.Time

	check := func() bool {
		ok, err := pred(ctx)
		if err != nil {
			log.Debug("watch: predicate failed", zap.Error(err))
			return false
		}
		return ok
	}

	if check() {
		f.met = true
		return
	}

	for {
		select {
		case <-ctx.Done():
			f.err = ctx.Err()
			return
		case <-timeout:
			log.Debug("watch: timed out", zap.Duration("timeout", opts.Timeout))
			return
		case <-sub.Ticks():
			if !limiter.Allow() {
				if deferred == nil {
					deferred = time.After(opts.Interval)
				}
				continue
			}
		case <-deferred:
			deferred = nil
		}
		if check() {
			f.met = true
			return
		}
	}
}

// Done closes when the future has resolved.
func (f *Future) Done() <-chan struct{} { return f.done }

// Cancel stops the wait. The future resolves with context.Canceled.
func (f *Future) Cancel() { f.cancel() }

// Result returns the outcome. Valid only after Done is closed.
func (f *Future) Result() (bool, error) { return f.met, f.err }

// Wait blocks until the future resolves or ctx ends. A timeout reports
// (false, nil).
func (f *Future) Wait(ctx context.Context) (bool, error) {
	select {
	case <-f.done:
		return f.met, f.err
	case <-ctx.Done():
		f.cancel()
		<-f.done
		return false, ctx.Err()
	}
}

// Sleep pauses for d or until ctx ends.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
