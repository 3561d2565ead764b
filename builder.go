package goReset

import (
	"errors"

	"github.com/MrEthical07/goReset/i18n"
	"github.com/MrEthical07/goReset/internal/forms"
	"github.com/MrEthical07/goReset/internal/origin"
	"github.com/rs/zerolog"
)

// Builder assembles an Engine. A Builder can be used for one Build call.
type Builder struct {
	config Config

	provider   Provider
	translator Translator
	catalog    *i18n.Catalog
	auditSink  AuditSink
	logger     *zerolog.Logger

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithProvider sets the authentication provider. Required.
func (b *Builder) WithProvider(p Provider) *Builder {
	b.provider = p
	return b
}

// WithTranslator overrides message lookup. It takes precedence over WithCatalog.
func (b *Builder) WithTranslator(t Translator) *Builder {
	b.translator = t
	return b
}

// WithCatalog sets the message catalog used with Config.I18n.Locale.
// The embedded catalog is used when neither a catalog nor a translator is set.
func (b *Builder) WithCatalog(c *i18n.Catalog) *Builder {
	b.catalog = c
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger for failed submissions. Defaults to zerolog.Nop().
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = &logger
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.provider == nil {
		return nil, ErrProviderRequired
	}

	// -------- TRANSLATION --------
	translate := b.translator
	if translate == nil {
		catalog := b.catalog
		if catalog == nil {
			var err error
			catalog, err = i18n.Default()
			if err != nil {
				return nil, err
			}
		}
		translate = catalog.Func(cfg.I18n.Locale)
	}

	// -------- FORM REGISTRY --------
	registry, err := forms.New(forms.Config{
		TTL:      cfg.Forms.TTL,
		MaxForms: cfg.Forms.MaxForms,
	})
	if err != nil {
		return nil, err
	}

	logger := zerolog.Nop()
	if b.logger != nil {
		logger = *b.logger
	}

	engine := &Engine{
		config:    cloneConfig(cfg),
		provider:  b.provider,
		translate: translate,
		resolver: origin.Resolver{
			Configured: cfg.App.URL,
			Allowed:    append([]string(nil), cfg.App.AllowedOrigins...),
			AnyOrigin:  cfg.App.AllowAnyOrigin,
		},
		forms:  registry,
		logger: logger.With().Str("component", "goreset").Logger(),
	}
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
