// Package composer opens the recruiter message composer once per profile.
package composer

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"OutreachLinkedin/internal/dom"
	"OutreachLinkedin/internal/extract"
	"OutreachLinkedin/internal/route"
)

const (
	railContainer = ".profile__right-rail-composer, .profile__right-rail-message-composer"
	composerView  = `[data-view-name="messaging-composer"]`
	composerHead  = "#messaging-composer-header"
	headerText    = "Compose Message"
	editorInRail  = ".profile__right-rail-composer:has(.rich-text-editor__editor-elem), " +
		".profile__right-rail-message-composer:has(.rich-text-editor__editor-elem)"
)

type openCheck struct {
	name string
	fn   func(ctx context.Context, d *Detector) (bool, error)
}

// openChecks run in priority order; any true result means open.
var openChecks = []openCheck{
	{"url-marker", func(ctx context.Context, d *Detector) (bool, error) {
		loc, err := d.Page.Location(ctx)
		if err != nil {
			return false, err
		}
		return d.Markers.Present(loc), nil
	}},
	{"rail-container", func(ctx context.Context, d *Detector) (bool, error) {
		return d.Page.Visible(ctx, railContainer)
	}},
	{"composer-view", func(ctx context.Context, d *Detector) (bool, error) {
		return d.Page.Visible(ctx, composerView)
	}},
	{"composer-header", func(ctx context.Context, d *Detector) (bool, error) {
		snap, err := d.Page.Snapshot(ctx)
		if err != nil {
			return false, err
		}
		if !strings.Contains(snap.Text(composerHead), headerText) {
			return false, nil
		}
		return d.Page.Visible(ctx, composerHead)
	}},
	{"rail-editor", func(ctx context.Context, d *Detector) (bool, error) {
		return d.Page.Visible(ctx, editorInRail)
	}},
}

// Detector reports whether the composer panel is open.
type Detector struct {
	Page    dom.Page
	Markers route.Markers
}

// Open returns true and the name of the first check that matched. Check
// errors are logged and treated as "not open" for that check.
func (d *Detector) Open(ctx context.Context) (bool, string) {
	for _, c := range openChecks {
		ok, err := c.fn(ctx, d)
		if err != nil {
			zap.L().Debug("composer: open check failed", zap.String("check", c.name), zap.Error(err))
			continue
		}
		if ok {
			return true, c.name
		}
	}
	return false, ""
}

const (
	envelopeIcon  = `li-icon[type="envelope-icon"]`
	interactive   = `button, [role="button"], a`
	iconOrSVG     = `li-icon[type="envelope-icon"], svg`
	stableButtons = `button[data-test-message-button], button.profile-actions__message, button[aria-label*="Message"]`
)

// Locators find the control that opens the composer, returning a CSS path
// that addresses it uniquely.
var Locators = extract.Chain{
	{Name: "envelope-icon", Pull: func(snap *dom.Snapshot) string {
		return dom.PathOf(snap.Find(envelopeIcon).First().Closest(interactive))
	}},
	{Name: "text-and-icon", Pull: func(snap *dom.Snapshot) string {
		var path string
		snap.Find("button").EachWithBreak(func(_ int, b *goquery.Selection) bool {
			text := strings.ToLower(b.Text())
			if strings.Contains(text, "message") && dom.Within(b, iconOrSVG).Length() > 0 {
				path = dom.PathOf(b)
			}
			return path == ""
		})
		return path
	}},
	{Name: "stable-attributes", Pull: func(snap *dom.Snapshot) string {
		return dom.PathOf(snap.Find(stableButtons).First())
	}},
}

// Locate returns the control path and the locator that found it.
func Locate(snap *dom.Snapshot) (string, string) {
	return extract.First(snap, Locators)
}
