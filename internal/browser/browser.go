// Package browser starts or attaches to Chrome and signs in to LinkedIn.
package browser

import (
	"context"
	"os"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"OutreachLinkedin/internal/config"
)

// Browser owns the allocator and the first tab.
type Browser struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// AllocatorOptions builds the exec allocator flags for cfg. CHROME_PATH
// is honoured when cfg.ExecPath is empty.
func AllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if cfg.Lang != "" {
		opts = append(opts, chromedp.Flag("lang", cfg.Lang))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}
	path := cfg.ExecPath
	if path == "" {
		path = os.Getenv("CHROME_PATH")
	}
	if path != "" {
		opts = append(opts, chromedp.ExecPath(path))
	}
	return opts
}

// Start launches Chrome, or connects to cfg.RemoteURL when set, and opens a
// blank tab.
func Start(ctx context.Context, cfg config.BrowserConfig) (*Browser, error) {
	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if cfg.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, cfg.RemoteURL)
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, AllocatorOptions(cfg)...)
	}
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	b := &Browser{ctx: tabCtx, cancel: func() {
		tabCancel()
		allocCancel()
	}}
	if err := chromedp.Run(tabCtx, chromedp.Navigate("about:blank")); err != nil {
		b.Close()
		return nil, eris.Wrap(err, "browser: start chrome")
	}
	zap.L().Info("browser: chrome ready",
		zap.Bool("headless", cfg.Headless),
		zap.Bool("remote", cfg.RemoteURL != ""),
	)
	return b, nil
}

// Context is the chromedp context of the first tab.
func (b *Browser) Context() context.Context { return b.ctx }

// Close shuts the tab and, for launched browsers, Chrome itself.
func (b *Browser) Close() { b.cancel() }

// SignIn logs in when credentials are configured. Without credentials it
// assumes the profile in UserDataDir already holds a session.
func (b *Browser) SignIn(cfg config.BrowserConfig) error {
	if cfg.Email == "" || cfg.Password == "" {
		zap.L().Debug("browser: no credentials, reusing existing session")
		return nil
	}
	zap.L().Info("browser: signing in to LinkedIn", zap.Bool("headless", cfg.Headless))
	if err := Login(b.ctx, cfg.Email, cfg.Password, cfg.Headless); err != nil {
		return err
	}
	zap.L().Info("browser: signed in")
	return nil
}
