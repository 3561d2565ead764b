package goReset

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goReset/i18n"
)

// Config defines every tunable of the reset-request flow.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	App      AppConfig
	Provider ProviderConfig
	Forms    FormsConfig
	I18n     I18nConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
APP CONFIG
====================================
*/

// AppConfig describes where the application lives and which routes the
// flow links to.
type AppConfig struct {
	// URL is the fallback origin used when a submission has no ambient origin.
	URL string
	// AllowedOrigins restricts which ambient origins may appear in callback
	// links. When empty and URL is set, only URL's origin is accepted.
	AllowedOrigins []string
	// AllowAnyOrigin accepts every ambient origin when AllowedOrigins is
	// empty, even with URL set. Request headers then control reset links.
	AllowAnyOrigin bool
	// TrustForwardedHeaders honors X-Forwarded-Proto/Host when deriving the
	// ambient origin of an HTTP request.
	TrustForwardedHeaders bool
	// CallbackPath is appended to the origin to form the reset redirect.
	CallbackPath string
	// LoginPath is the target of the return/back-to-login links.
	LoginPath string
}

/*
====================================
PROVIDER CONFIG
====================================
*/

// ProviderConfig bounds calls to the authentication provider.
type ProviderConfig struct {
	Timeout time.Duration
}

/*
====================================
FORMS CONFIG
====================================
*/

// FormsConfig sizes the registry of live form instances.
type FormsConfig struct {
	TTL      time.Duration
	MaxForms int64
}

// I18nConfig selects the locale used with the built-in catalog.
type I18nConfig struct {
	Locale string
}

// AuditConfig controls asynchronous audit dispatch.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters and the provider latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration used by New.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		App: AppConfig{
			URL:                   "",
			TrustForwardedHeaders: false,
			CallbackPath:          "/change-password",
			LoginPath:             "/auth/login",
		},
		Provider: ProviderConfig{
			Timeout: 15 * time.Second,
		},
		Forms: FormsConfig{
			TTL:      30 * time.Minute,
			MaxForms: 100000,
		},
		I18n: I18nConfig{
			Locale: i18n.DefaultLocale,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.App.AllowedOrigins != nil {
		out.App.AllowedOrigins = append([]string(nil), cfg.App.AllowedOrigins...)
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if c.App.CallbackPath == "" || !strings.HasPrefix(c.App.CallbackPath, "/") {
		return errors.New("App.CallbackPath must start with /")
	}
	if c.App.LoginPath == "" {
		return errors.New("App.LoginPath must not be empty")
	}
	if c.App.URL != "" && !strings.HasPrefix(c.App.URL, "http://") && !strings.HasPrefix(c.App.URL, "https://") {
		return errors.New("App.URL must be an absolute http(s) URL")
	}
	for _, o := range c.App.AllowedOrigins {
		if !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
			return errors.New("App.AllowedOrigins entries must be absolute http(s) origins")
		}
	}

	if c.Provider.Timeout < 0 {
		return errors.New("Provider.Timeout must be >= 0")
	}
	if c.Provider.Timeout > 5*time.Minute {
		return errors.New("Provider.Timeout must be <= 5m")
	}

	if c.Forms.TTL <= 0 {
		return errors.New("Forms.TTL must be > 0")
	}
	if c.Forms.MaxForms <= 0 {
		return errors.New("Forms.MaxForms must be > 0")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit.BufferSize must be > 0 when audit is enabled")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics.EnableLatencyHistograms requires Metrics.Enabled")
	}

	return nil
}
