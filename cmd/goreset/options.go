package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

const (
	providerGoTrue = "gotrue"
	providerLocal  = "local"
)

// Options collects everything serve needs.
type Options struct {
	Listen         string
	AppURL         string
	AllowedOrigins string
	AllowAnyOrigin bool
	TrustForwarded bool
	Provider       string
	GoTrueURL      string
	GoTrueKey      string
	RedisAddr      string
	SMTPAddr       string
	SMTPFrom       string
	SMTPUser       string
	SMTPPassword   string
	SigningKey     string
	TokenTTL       time.Duration
	Users          string
	Locale         string
	Catalog        string
	LogLevel       string
	LogFormat      string
	AuditLog       bool
}

func Flags(o *Options) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "listen",
			Usage:       "http address to listen to",
			Value:       ":8080",
			Destination: &o.Listen,
			EnvVars:     []string{"GORESET_LISTEN"},
		},
		&cli.StringFlag{
			Name:        "app-url",
			Usage:       "fallback origin for reset callback links",
			Destination: &o.AppURL,
			EnvVars:     []string{"GORESET_APP_URL", "APP_URL"},
		},
		&cli.StringFlag{
			Name:        "allowed-origins",
			Usage:       "comma separated origins accepted from requests; defaults to the app-url origin",
			Destination: &o.AllowedOrigins,
			EnvVars:     []string{"GORESET_ALLOWED_ORIGINS"},
		},
		&cli.BoolFlag{
			Name:        "allow-any-origin",
			Usage:       "accept any request origin in reset links when allowed-origins is empty",
			Destination: &o.AllowAnyOrigin,
			EnvVars:     []string{"GORESET_ALLOW_ANY_ORIGIN"},
		},
		&cli.BoolFlag{
			Name:        "trust-forwarded",
			Usage:       "honor X-Forwarded-* headers",
			Destination: &o.TrustForwarded,
			EnvVars:     []string{"GORESET_TRUST_FORWARDED"},
		},
		&cli.StringFlag{
			Name:        "provider",
			Usage:       "reset provider, values are (gotrue,local)",
			Value:       providerLocal,
			Destination: &o.Provider,
			EnvVars:     []string{"GORESET_PROVIDER"},
		},
		&cli.StringFlag{
			Name:        "gotrue-url",
			Usage:       "base URL of the GoTrue auth API",
			Destination: &o.GoTrueURL,
			EnvVars:     []string{"GORESET_GOTRUE_URL"},
		},
		&cli.StringFlag{
			Name:        "gotrue-key",
			Usage:       "GoTrue API key",
			Destination: &o.GoTrueKey,
			EnvVars:     []string{"GORESET_GOTRUE_KEY"},
		},
		&cli.StringFlag{
			Name:        "redis-addr",
			Usage:       "redis address for the local provider; empty starts an in-process redis",
			Destination: &o.RedisAddr,
			EnvVars:     []string{"GORESET_REDIS_ADDR"},
		},
		&cli.StringFlag{
			Name:        "smtp-addr",
			Usage:       "SMTP relay host:port; empty keeps mail in memory and logs it",
			Destination: &o.SMTPAddr,
			EnvVars:     []string{"GORESET_SMTP_ADDR"},
		},
		&cli.StringFlag{
			Name:        "smtp-from",
			Usage:       "sender address of reset emails",
			Value:       "no-reply@localhost",
			Destination: &o.SMTPFrom,
			EnvVars:     []string{"GORESET_SMTP_FROM"},
		},
		&cli.StringFlag{
			Name:        "smtp-username",
			Usage:       "SMTP PLAIN auth user",
			Destination: &o.SMTPUser,
			EnvVars:     []string{"GORESET_SMTP_USERNAME"},
		},
		&cli.StringFlag{
			Name:        "smtp-password",
			Usage:       "SMTP PLAIN auth password",
			Destination: &o.SMTPPassword,
			EnvVars:     []string{"GORESET_SMTP_PASSWORD"},
		},
		&cli.StringFlag{
			Name:        "signing-key",
			Usage:       "ed25519 PEM file, or an HS256 secret of at least 32 bytes; empty generates an ephemeral key",
			Destination: &o.SigningKey,
			EnvVars:     []string{"GORESET_SIGNING_KEY"},
		},
		&cli.DurationFlag{
			Name:        "token-ttl",
			Usage:       "lifetime of reset links",
			Value:       30 * time.Minute,
			Destination: &o.TokenTTL,
			EnvVars:     []string{"GORESET_TOKEN_TTL"},
		},
		&cli.StringFlag{
			Name:        "users",
			Usage:       "comma separated id=email pairs known to the local provider",
			Destination: &o.Users,
			EnvVars:     []string{"GORESET_USERS"},
		},
		&cli.StringFlag{
			Name:        "locale",
			Usage:       "message locale",
			Value:       "en",
			Destination: &o.Locale,
			EnvVars:     []string{"GORESET_LOCALE"},
		},
		&cli.StringFlag{
			Name:        "catalog",
			Usage:       "extra YAML message catalog; the file name is the locale",
			Destination: &o.Catalog,
			EnvVars:     []string{"GORESET_CATALOG"},
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level, values are (trace,debug,info,warn,error,fatal,panic)",
			Value:       "info",
			Destination: &o.LogLevel,
			EnvVars:     []string{"GORESET_LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log output, values are (json,console)",
			Value:       "json",
			Destination: &o.LogFormat,
			EnvVars:     []string{"GORESET_LOG_FORMAT"},
		},
		&cli.BoolFlag{
			Name:        "audit-log",
			Usage:       "write audit events to the log",
			Value:       true,
			Destination: &o.AuditLog,
			EnvVars:     []string{"GORESET_AUDIT_LOG"},
		},
	}
}
