package watch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"OutreachLinkedin/internal/dom"
	"OutreachLinkedin/internal/route"
)

// Hydration decides when a client-rendered profile has enough content to
// scrape.
type Hydration struct {
	Page      dom.Page
	Landmarks map[route.Kind][]string
	// Timeout caps the wait for a landmark.
	Timeout time.Duration
	// Settle is the extra delay after a landmark appears.
	Settle   time.Duration
	Interval time.Duration
}

// Wait resolves once per call. It reports true when a landmark appeared and
// the settle delay passed, false when the timeout elapsed first. Only
// context cancellation is an error.
func (h *Hydration) Wait(ctx context.Context, kind route.Kind) (bool, error) {
	landmarks := h.Landmarks[kind]
	log := zap.L().With(zap.Stringer("variant", kind))

	present := func(ctx context.Context) (bool, error) {
		return h.Page.Exists(ctx, landmarks...)
	}
	f := Start(ctx, h.Page, dom.Mutation, present, Options{
		Timeout:  h.Timeout,
		Interval: h.Interval,
		Name:     "hydration",
	})
	met, err := f.Wait(ctx)
	if err != nil {
		return false, err
	}
	if !met {
		log.Info("hydration: timeout, proceeding anyway", zap.Duration("timeout", h.Timeout))
		return false, nil
	}

	log.Debug("hydration: landmark present", zap.Duration("settle", h.Settle))
	if err := Sleep(ctx, h.Settle); err != nil {
		return false, err
	}
	return true, nil
}
