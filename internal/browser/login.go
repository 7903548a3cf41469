package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	loginURL = "https://www.linkedin.com/checkpoint/lg/sign-in-another-account"
	feedURL  = "https://www.linkedin.com/feed/"

	submitButton  = `button[data-litms-control-urn="login-submit"], button[type="submit"]`
	passwordInput = `#password, input[name="session_password"]`
	captchaFrames = `iframe[src*="captcha"], iframe[src*="challenge"]`
	otpInputs     = `input[autocomplete="one-time-code"], input[name*="pin"]`
)

// ErrTimeout is returned when a manual step was not completed in time.
var ErrTimeout = eris.New("browser: timed out waiting")

const challengeJS = `(()=>{
  const href = location.href || "";
  if (href.includes("/checkpoint/challenge/")) return true;
  const h2 = document.querySelector('[data-theme="home.title"]');
  const btn = document.querySelector('[data-theme="home.verifyButton"]');
  const txt = (h2?.textContent || "") + " " + (btn?.textContent || "");
  return /Protect your account|Start puzzle|Verify/i.test(txt);
})()`

const signedInJS = `(()=>{
  if (` + challengeJS + `) return false;
  if (document.querySelector('input[placeholder*="Search"]')) return true;
  return (location.href || "").includes("/feed/");
})()`

// evaluate runs js in the tab. Replaced in tests.
var evaluate = func(ctx context.Context, js string, out any) error {
	return chromedp.Run(ctx, chromedp.EvaluateAsDevTools(js, out))
}

// Login signs in with email and password. Captcha, checkpoint and 2FA steps
// are left to the operator when a window is visible; headless runs fail
// fast on them.
func Login(ctx context.Context, email, password string, headless bool) error {
	if err := chromedp.Run(ctx,
		chromedp.Navigate(loginURL),
		chromedp.WaitVisible(`#username`, chromedp.ByQuery),
		chromedp.SetValue(`#username`, email, chromedp.ByQuery),
		chromedp.SetValue(passwordInput, password, chromedp.ByQuery),
	); err != nil {
		return eris.Wrap(err, "browser: fill login form")
	}

	if err := chromedp.Run(ctx,
		chromedp.WaitVisible(submitButton, chromedp.ByQuery),
		chromedp.ScrollIntoView(submitButton, chromedp.ByQuery),
		chromedp.Click(submitButton, chromedp.ByQuery),
		chromedp.Sleep(400*time.Millisecond),
	); err != nil {
		zap.L().Debug("browser: submit click failed, pressing enter", zap.Error(err))
		_ = chromedp.Run(ctx, chromedp.Submit(`form`))
		_ = chromedp.Run(ctx, chromedp.Focus(passwordInput), chromedp.KeyEvent("\r"))
	}

	if count(ctx, captchaFrames) > 0 {
		if headless {
			return eris.New("browser: captcha detected in headless mode; rerun with browser.headless=false to solve it")
		}
		zap.L().Info("browser: captcha detected, solve it in the window", zap.Duration("timeout", 3*time.Minute))
		if err := waitDisappear(ctx, 3*time.Minute, captchaFrames); err != nil {
			return eris.Wrap(err, "browser: captcha")
		}
	}

	if check(ctx, challengeJS) {
		if headless {
			return eris.New("browser: checkpoint challenge detected in headless mode; rerun with browser.headless=false to solve it")
		}
		zap.L().Info("browser: checkpoint challenge, solve it in the window", zap.Duration("timeout", 5*time.Minute))
		_ = chromedp.Run(ctx, clickIfExists(`[data-theme="home.verifyButton"]`), chromedp.Sleep(1200*time.Millisecond))
		if err := waitUntil(ctx, 5*time.Minute, 1500*time.Millisecond, signedInJS); err != nil {
			return eris.Wrap(err, "browser: checkpoint challenge")
		}
	}

	if count(ctx, otpInputs) > 0 {
		zap.L().Info("browser: two-factor code requested, enter it in the window", zap.Duration("timeout", 3*time.Minute))
		if err := waitDisappear(ctx, 3*time.Minute, otpInputs); err != nil {
			return eris.Wrap(err, "browser: two-factor")
		}
	}

	return eris.Wrap(chromedp.Run(ctx,
		chromedp.Navigate(feedURL),
		chromedp.WaitReady(`body`, chromedp.ByQuery),
	), "browser: open feed")
}

func check(ctx context.Context, js string) bool {
	var on bool
	_ = evaluate(ctx, js, &on)
	return on
}

func count(ctx context.Context, css string) int {
	var n int
	_ = evaluate(ctx, fmt.Sprintf(`document.querySelectorAll(%q).length`, css), &n)
	return n
}

// waitUntil polls js until it returns true.
func waitUntil(ctx context.Context, timeout, every time.Duration, js string) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		if check(ctx, js) {
			return nil
		}
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return ErrTimeout
			}
			return ctx.Err()
		case <-t.C:
		}
	}
}

// waitDisappear polls until nothing matches css.
func waitDisappear(ctx context.Context, timeout time.Duration, css string) error {
	return waitUntil(ctx, timeout, 2*time.Second, fmt.Sprintf(`document.querySelectorAll(%q).length === 0`, css))
}

func clickIfExists(sel string) chromedp.ActionFunc {
	js := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return false;
		el.scrollIntoView({behavior:'instant', block:'center'});
		el.click();
		return true;
	})()`, sel)
	return func(ctx context.Context) error {
		var ok bool
		return chromedp.EvaluateAsDevTools(js, &ok).Do(ctx)
	}
}
