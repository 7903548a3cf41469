package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"OutreachLinkedin/internal/browser"
	"OutreachLinkedin/internal/config"
	"OutreachLinkedin/internal/crm"
	"OutreachLinkedin/internal/dom"
	"OutreachLinkedin/internal/egress"
	"OutreachLinkedin/internal/engine"
	"OutreachLinkedin/internal/prefs"
	"OutreachLinkedin/internal/route"
	"OutreachLinkedin/internal/store"
)

var (
	cfg *config.Config
	v   = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "outreach",
	Short: "LinkedIn profile scraper and outreach panel",
	Long:  "Drives a Chrome tab on LinkedIn, scrapes public and recruiter profiles as they are visited, and serves an outreach panel backed by the CRM.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.LoadWith(v)
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

// =============== watch ===============

var (
	startURL  string
	withServe bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Scrape every LinkedIn profile opened in the tab until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		if withServe {
			st, err := store.Open(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer st.Close()
			g.Go(func() error { return serveBackground(ctx, st) })
		}
		g.Go(func() error { return watchTab(ctx) })
		return g.Wait()
	},
}

func watchTab(ctx context.Context) error {
	b, tab, err := openTab(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	if startURL != "" {
		if err := tab.OpenURL(ctx, startURL); err != nil {
			return eris.Wrap(err, "open start url")
		}
	}

	out := egress.NewHTTP(cfg.Background.URL, 5*time.Second)
	pr := prefs.NewRemote(cfg.Background.URL, 2*time.Second)
	eng := engine.New(tab, cfg, pr, out)
	eng.OnReport = logReport

	zap.L().Info("watching tab", zap.String("background", cfg.Background.URL))
	return eng.Run(ctx)
}

func logReport(r engine.Report) {
	if !r.Kind.Profile() {
		return
	}
	fields := []zap.Field{
		zap.Stringer("reason", r.Reason),
		zap.Stringer("variant", r.Kind),
		zap.String("url", r.URL),
		zap.Bool("hydrated", r.Hydrated),
		zap.Stringer("redirect", r.Redirect),
		zap.Stringer("composer", r.Composer),
		zap.Bool("record", r.Record != nil),
	}
	if r.Err != nil && !errors.Is(r.Err, context.Canceled) {
		zap.L().Warn("pass ended with error", append(fields, zap.Error(r.Err))...)
		return
	}
	zap.L().Debug("pass finished", fields...)
}

// =============== scrape ===============

var scrapeCmd = &cobra.Command{
	Use:   "scrape <profile-url>",
	Short: "Open one profile, scrape it once and print the record as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !route.Classify(args[0]).Profile() {
			return eris.Errorf("not a LinkedIn profile URL: %s", args[0])
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		b, tab, err := openTab(ctx)
		if err != nil {
			return err
		}
		defer b.Close()

		if err := tab.OpenURL(ctx, args[0]); err != nil {
			return eris.Wrap(err, "open profile")
		}

		// Scrape leaves the page where it is: no redirect, no composer.
		eng := engine.New(tab, cfg, prefs.Static{}, egress.NewWriter(cmd.OutOrStdout()))
		rep, err := eng.RunOnce(ctx)
		if err != nil {
			return err
		}
		if rep.Record == nil {
			return eris.Errorf("no profile could be read from %s", rep.URL)
		}
		return nil
	},
}

func openTab(ctx context.Context) (*browser.Browser, *dom.Tab, error) {
	b, err := browser.Start(ctx, cfg.Browser)
	if err != nil {
		return nil, nil, err
	}
	if err := b.SignIn(cfg.Browser); err != nil {
		b.Close()
		return nil, nil, eris.Wrap(err, "sign in")
	}
	tab, err := dom.Attach(b.Context())
	if err != nil {
		b.Close()
		return nil, nil, err
	}
	return b, tab, nil
}

// =============== serve ===============

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the background service and operator panel",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()
		return serveBackground(ctx, st)
	},
}

func serveBackground(ctx context.Context, st *store.Store) error {
	client, err := crm.New(cfg)
	if err != nil {
		return err
	}
	srv, err := newServer(ctx, st, client, cfg.CRM)
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              cfg.Background.Addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down background service")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("background service listening", zap.String("addr", cfg.Background.Addr), zap.String("crm", cfg.CRM.Driver))
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "background listen")
	}
	return nil
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.Bool("headless", false, "run Chrome headless")
	pf.String("background-url", "", "background service base URL")
	pf.String("store", "", "sqlite database path")
	_ = v.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = v.BindPFlag("browser.headless", pf.Lookup("headless"))
	_ = v.BindPFlag("background.url", pf.Lookup("background-url"))
	_ = v.BindPFlag("store.path", pf.Lookup("store"))

	watchCmd.Flags().StringVar(&startURL, "start-url", "https://www.linkedin.com/feed/", "page to open before watching")
	watchCmd.Flags().BoolVar(&withServe, "serve", false, "also run the background service in-process")

	serveCmd.Flags().String("addr", "", "listen address")
	_ = v.BindPFlag("background.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(watchCmd, scrapeCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
