package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Browser    BrowserConfig    `yaml:"browser" mapstructure:"browser"`
	Engine     EngineConfig     `yaml:"engine" mapstructure:"engine"`
	Navigation NavigationConfig `yaml:"navigation" mapstructure:"navigation"`
	Landmarks  LandmarksConfig  `yaml:"landmarks" mapstructure:"landmarks"`
	Background BackgroundConfig `yaml:"background" mapstructure:"background"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	CRM        CRMConfig        `yaml:"crm" mapstructure:"crm"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// BrowserConfig configures the Chrome instance the engine attaches to.
type BrowserConfig struct {
	Headless    bool   `yaml:"headless" mapstructure:"headless"`
	ExecPath    string `yaml:"exec_path" mapstructure:"exec_path"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	UserDataDir string `yaml:"user_data_dir" mapstructure:"user_data_dir"`
	RemoteURL   string `yaml:"remote_url" mapstructure:"remote_url"`
	Email       string `yaml:"email" mapstructure:"email"`
	Password    string `yaml:"password" mapstructure:"password"`
	Lang        string `yaml:"lang" mapstructure:"lang"`
}

// EngineConfig holds the scraping engine timing budget.
type EngineConfig struct {
	HydrationTimeout      time.Duration `yaml:"hydration_timeout" mapstructure:"hydration_timeout"`
	HydrationSettle       time.Duration `yaml:"hydration_settle" mapstructure:"hydration_settle"`
	HistorySettle         time.Duration `yaml:"history_settle" mapstructure:"history_settle"`
	VisibleSettle         time.Duration `yaml:"visible_settle" mapstructure:"visible_settle"`
	RedirectSettle        time.Duration `yaml:"redirect_settle" mapstructure:"redirect_settle"`
	ComposerSettle        time.Duration `yaml:"composer_settle" mapstructure:"composer_settle"`
	ComposerClickDelay    time.Duration `yaml:"composer_click_delay" mapstructure:"composer_click_delay"`
	ComposerVerifyDelay   time.Duration `yaml:"composer_verify_delay" mapstructure:"composer_verify_delay"`
	ComposerButtonTimeout time.Duration `yaml:"composer_button_timeout" mapstructure:"composer_button_timeout"`
	PollInterval          time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
}

// NavigationConfig configures same-entity query handling.
type NavigationConfig struct {
	// ActionMarkers are key=value query parameters that mean the one-shot
	// action already happened for the entity.
	ActionMarkers []string `yaml:"action_markers" mapstructure:"action_markers"`
}

// LandmarksConfig lists the hydration landmark selectors per page variant.
type LandmarksConfig struct {
	Public []string `yaml:"public" mapstructure:"public"`
	Gated  []string `yaml:"gated" mapstructure:"gated"`
}

// BackgroundConfig configures the background service.
type BackgroundConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
	URL  string `yaml:"url" mapstructure:"url"`
}

// StoreConfig configures the sqlite store.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// CRMConfig selects the CRM backend and its webhook endpoints.
type CRMConfig struct {
	Driver            string        `yaml:"driver" mapstructure:"driver"`
	LeadsWebhookURL   string        `yaml:"leads_webhook_url" mapstructure:"leads_webhook_url"`
	LoggingWebhookURL string        `yaml:"logging_webhook_url" mapstructure:"logging_webhook_url"`
	UserEmail         string        `yaml:"user_email" mapstructure:"user_email"`
	AllowedDomain     string        `yaml:"allowed_domain" mapstructure:"allowed_domain"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// SalesforceConfig holds Salesforce JWT bearer credentials.
type SalesforceConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
}

// Defaults for selectors and markers. Exported so tests and callers that
// build an engine without viper share one source.
var (
	DefaultPublicLandmarks = []string{
		"section.artdeco-card.pv-top-card",
		"h1.text-heading-xlarge",
		"#experience",
		".pv-top-card-profile-picture",
	}
	DefaultGatedLandmarks = []string{
		".artdeco-entity-lockup__title",
		"[data-test-latest-position]",
		"[data-test-location]",
	}
	DefaultActionMarkers = []string{"rightRail=composer"}
)

// DefaultEngine returns the engine timings used when nothing is configured.
func DefaultEngine() EngineConfig {
	return EngineConfig{
		HydrationTimeout:      10 * time.Second,
		HydrationSettle:       1500 * time.Millisecond,
		HistorySettle:         500 * time.Millisecond,
		VisibleSettle:         500 * time.Millisecond,
		RedirectSettle:        500 * time.Millisecond,
		ComposerSettle:        800 * time.Millisecond,
		ComposerClickDelay:    200 * time.Millisecond,
		ComposerVerifyDelay:   300 * time.Millisecond,
		ComposerButtonTimeout: 5 * time.Second,
		PollInterval:          50 * time.Millisecond,
	}
}

// Load reads configuration from config.yaml (optional) and OUTREACH_* env vars.
func Load() (*Config, error) {
	return load(viper.New())
}

// LoadWith is Load against a caller-owned viper instance, so CLI flags bound
// with BindPFlag take precedence.
func LoadWith(v *viper.Viper) (*Config, error) {
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("OUTREACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	eng := DefaultEngine()
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.lang", "en-US")
	v.SetDefault("browser.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36")
	v.SetDefault("engine.hydration_timeout", eng.HydrationTimeout)
	v.SetDefault("engine.hydration_settle", eng.HydrationSettle)
	v.SetDefault("engine.history_settle", eng.HistorySettle)
	v.SetDefault("engine.visible_settle", eng.VisibleSettle)
	v.SetDefault("engine.redirect_settle", eng.RedirectSettle)
	v.SetDefault("engine.composer_settle", eng.ComposerSettle)
	v.SetDefault("engine.composer_click_delay", eng.ComposerClickDelay)
	v.SetDefault("engine.composer_verify_delay", eng.ComposerVerifyDelay)
	v.SetDefault("engine.composer_button_timeout", eng.ComposerButtonTimeout)
	v.SetDefault("engine.poll_interval", eng.PollInterval)
	v.SetDefault("navigation.action_markers", DefaultActionMarkers)
	v.SetDefault("landmarks.public", DefaultPublicLandmarks)
	v.SetDefault("landmarks.gated", DefaultGatedLandmarks)
	v.SetDefault("background.addr", ":8080")
	v.SetDefault("background.url", "http://127.0.0.1:8080")
	v.SetDefault("store.path", "outreach.db")
	v.SetDefault("crm.driver", "webhook")
	v.SetDefault("crm.allowed_domain", "savvywealth.com")
	v.SetDefault("crm.timeout", 15*time.Second)
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
