// Package domtest provides an in-memory dom.Page for engine tests.
package domtest

import (
	"context"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"OutreachLinkedin/internal/dom"
)

// Page is a fake document. Visibility follows inline display/visibility
// styles and the hidden attribute on the element or any ancestor.
type Page struct {
	mu       sync.Mutex
	url      string
	markup   string
	clicks   []string
	replaced []string
	hub      dom.Hub

	// OnClick runs after a successful click, outside the page lock.
	OnClick func(p *Page, selector string)
	// ReplaceErr, when set, fails Replace.
	ReplaceErr error
}

// New returns a fake page showing markup at url.
func New(url, markup string) *Page {
	return &Page{url: url, markup: markup}
}

// SetHTML swaps the document body and publishes a mutation.
func (p *Page) SetHTML(markup string) {
	p.mu.Lock()
	p.markup = markup
	p.mu.Unlock()
	p.hub.Publish(dom.Mutation)
}

// SetURL changes the location and publishes a mutation, as an SPA route
// change would.
func (p *Page) SetURL(url string) {
	p.mu.Lock()
	p.url = url
	p.mu.Unlock()
	p.hub.Publish(dom.Mutation)
}

// Navigate swaps location and document together, as a full page load would.
func (p *Page) Navigate(url, markup string) {
	p.mu.Lock()
	p.url, p.markup = url, markup
	p.mu.Unlock()
	p.hub.Publish(dom.Mutation)
}

// Emit publishes an arbitrary signal.
func (p *Page) Emit(sig dom.Signal) { p.hub.Publish(sig) }

// Clicks returns the selectors clicked so far.
func (p *Page) Clicks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.clicks...)
}

// Replaced returns the URLs passed to Replace.
func (p *Page) Replaced() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.replaced...)
}

// ActiveObservers counts subscriptions that have not been closed.
func (p *Page) ActiveObservers() int { return p.hub.Active() }

func (p *Page) doc() (*goquery.Document, error) {
	p.mu.Lock()
	markup := p.markup
	p.mu.Unlock()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	return doc, eris.Wrap(err, "domtest: parse")
}

func (p *Page) Location(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}

func (p *Page) Snapshot(ctx context.Context) (*dom.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	url, markup := p.url, p.markup
	p.mu.Unlock()
	return dom.NewSnapshot(url, markup)
}

func (p *Page) Exists(ctx context.Context, selectors ...string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	doc, err := p.doc()
	if err != nil {
		return false, err
	}
	for _, s := range selectors {
		if dom.Within(doc.Selection, s).Length() > 0 {
			return true, nil
		}
	}
	return false, nil
}

func (p *Page) Visible(ctx context.Context, selector string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	doc, err := p.doc()
	if err != nil {
		return false, err
	}
	el := dom.Within(doc.Selection, selector).First()
	if el.Length() == 0 {
		return false, nil
	}
	return !Hidden(el), nil
}

// Hidden reports whether the element or an ancestor is hidden by inline
// style or the hidden attribute.
func Hidden(el *goquery.Selection) bool {
	for cur := el; cur.Length() > 0; cur = cur.Parent() {
		if _, ok := cur.Attr("hidden"); ok {
			return true
		}
		style := strings.ReplaceAll(strings.ToLower(cur.AttrOr("style", "")), " ", "")
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			return true
		}
	}
	return false
}

func (p *Page) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc, err := p.doc()
	if err != nil {
		return err
	}
	if dom.Within(doc.Selection, selector).Length() == 0 {
		return eris.Wrapf(dom.ErrNoElement, "domtest: click %s", selector)
	}
	p.mu.Lock()
	p.clicks = append(p.clicks, selector)
	hook := p.OnClick
	p.mu.Unlock()
	if hook != nil {
		hook(p, selector)
	}
	return nil
}

func (p *Page) Replace(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ReplaceErr != nil {
		return p.ReplaceErr
	}
	p.replaced = append(p.replaced, url)
	return nil
}

func (p *Page) Observe(sig dom.Signal) *dom.Subscription {
	return p.hub.Subscribe(sig)
}

var _ dom.Page = (*Page)(nil)
