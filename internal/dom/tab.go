package dom

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const bindingName = "__outreachSignal"

// observerJS reports subtree mutations, back/forward navigation and the tab
// becoming visible through the page binding. It is installed for the current
// document and every document loaded afterwards.
var observerJS = fmt.Sprintf(`(() => {
  if (window.__outreachObserver) return true;
  window.__outreachObserver = true;
  const send = (t) => { try { window[%q](t); } catch (e) {} };
  let queued = false;
  const tick = () => {
    if (queued) return;
    queued = true;
    setTimeout(() => { queued = false; send('mutation'); }, 0);
  };
  const arm = () => {
    const root = document.body || document.documentElement;
    if (!root) return false;
    new MutationObserver(tick).observe(root, {childList: true, subtree: true});
    return true;
  };
  if (!arm()) document.addEventListener('DOMContentLoaded', arm, {once: true});
  window.addEventListener('popstate', () => send('history'));
  document.addEventListener('visibilitychange', () => {
    if (document.visibilityState === 'visible') send('visible');
  });
  return true;
})()`, bindingName)

// Tab is a Page backed by a chromedp target.
type Tab struct {
	ctx context.Context
	hub Hub
}

// Attach installs the observer on the tab owned by ctx, which must be a
// chromedp context.
func Attach(ctx context.Context) (*Tab, error) {
	t := &Tab{ctx: ctx}

	// The listener runs on chromedp's event goroutine: it must not block
	// and must not call chromedp.Run.
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		switch e := ev.(type) {
		case *runtime.EventBindingCalled:
			if e.Name != bindingName {
				return
			}
			switch e.Payload {
			case "mutation":
				t.hub.Publish(Mutation)
			case "history":
				t.hub.Publish(History)
			case "visible":
				t.hub.Publish(Visibility)
			}
		case *page.EventNavigatedWithinDocument:
			t.hub.Publish(Mutation)
		case *page.EventFrameNavigated:
			if e.Frame != nil && e.Frame.ParentID == "" {
				t.hub.Publish(Mutation)
			}
		}
	})

	var ok bool
	err := chromedp.Run(ctx,
		runtime.AddBinding(bindingName),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(observerJS).Do(ctx)
			return err
		}),
		chromedp.Evaluate(observerJS, &ok),
	)
	if err != nil {
		return nil, eris.Wrap(err, "dom: attach observer")
	}
	zap.L().Debug("dom: observer attached")
	return t, nil
}

// Hub exposes the tab's signal hub.
func (t *Tab) Hub() *Hub { return &t.hub }

// run executes actions on the tab, aborting when either the tab or the
// caller's context ends.
func (t *Tab) run(ctx context.Context, actions ...chromedp.Action) error {
	rctx, cancel := context.WithCancel(t.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(rctx, actions...)
}

func (t *Tab) Location(ctx context.Context) (string, error) {
	var loc string
	if err := t.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", eris.Wrap(err, "dom: location")
	}
	return loc, nil
}

func (t *Tab) Snapshot(ctx context.Context) (*Snapshot, error) {
	var loc, markup string
	err := t.run(ctx,
		chromedp.Location(&loc),
		chromedp.EvaluateAsDevTools(`document.documentElement.outerHTML`, &markup),
	)
	if err != nil {
		return nil, eris.Wrap(err, "dom: snapshot")
	}
	return NewSnapshot(loc, markup)
}

func (t *Tab) Exists(ctx context.Context, selectors ...string) (bool, error) {
	if len(selectors) == 0 {
		return false, nil
	}
	quoted := make([]string, len(selectors))
	for i, s := range selectors {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	js := fmt.Sprintf(`(() => [%s].some(s => {
		try { return document.querySelector(s) !== null; } catch (e) { return false; }
	}))()`, strings.Join(quoted, ","))

	var ok bool
	if err := t.run(ctx, chromedp.Evaluate(js, &ok)); err != nil {
		return false, eris.Wrap(err, "dom: exists")
	}
	return ok, nil
}

func (t *Tab) Visible(ctx context.Context, selector string) (bool, error) {
	js := fmt.Sprintf(`(() => {
		let el;
		try { el = document.querySelector(%q); } catch (e) { return false; }
		if (!el) return false;
		const st = window.getComputedStyle(el);
		return st.display !== 'none' && st.visibility !== 'hidden';
	})()`, selector)

	var ok bool
	if err := t.run(ctx, chromedp.Evaluate(js, &ok)); err != nil {
		return false, eris.Wrap(err, "dom: visible")
	}
	return ok, nil
}

func (t *Tab) Click(ctx context.Context, selector string) error {
	js := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		el.scrollIntoView({behavior:'instant', block:'center'});
		el.click();
		return true;
	})()`, selector)

	var ok bool
	if err := t.run(ctx, chromedp.EvaluateAsDevTools(js, &ok)); err != nil {
		return eris.Wrap(err, "dom: click")
	}
	if !ok {
		return eris.Wrapf(ErrNoElement, "dom: click %s", selector)
	}
	return nil
}

func (t *Tab) Replace(ctx context.Context, url string) error {
	js := fmt.Sprintf(`(() => { window.location.replace(%q); return true; })()`, url)
	var ok bool
	if err := t.run(ctx, chromedp.Evaluate(js, &ok)); err != nil {
		return eris.Wrap(err, "dom: replace location")
	}
	return nil
}

func (t *Tab) Observe(sig Signal) *Subscription {
	return t.hub.Subscribe(sig)
}

// OpenURL navigates the tab and waits for the document to finish loading.
func (t *Tab) OpenURL(ctx context.Context, url string) error {
	err := t.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	return eris.Wrapf(err, "dom: open %s", url)
}

var _ Page = (*Tab)(nil)
