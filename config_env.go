package goReset

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variables read by LoadEnv. EnvAppURLFallback is consulted only
// when EnvAppURL is unset.
const (
	EnvAppURL          = "GORESET_APP_URL"
	EnvAppURLFallback  = "APP_URL"
	EnvAllowedOrigins  = "GORESET_ALLOWED_ORIGINS"
	EnvAllowAnyOrigin  = "GORESET_ALLOW_ANY_ORIGIN"
	EnvTrustForwarded  = "GORESET_TRUST_FORWARDED"
	EnvCallbackPath    = "GORESET_CALLBACK_PATH"
	EnvLoginPath       = "GORESET_LOGIN_PATH"
	EnvLocale          = "GORESET_LOCALE"
	EnvProviderTimeout = "GORESET_PROVIDER_TIMEOUT"
)

// LoadEnv overlays process environment variables onto cfg.
func LoadEnv(cfg *Config) error {
	return ApplyEnv(cfg, os.LookupEnv)
}

// ApplyEnv overlays variables from lookup onto cfg. Unset variables leave
// the existing value untouched.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if cfg == nil || lookup == nil {
		return nil
	}

	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		if !ok {
			return "", false
		}
		v = strings.TrimSpace(v)
		return v, v != ""
	}

	if v, ok := get(EnvAppURL); ok {
		cfg.App.URL = v
	} else if v, ok := get(EnvAppURLFallback); ok {
		cfg.App.URL = v
	}
	if v, ok := get(EnvAllowedOrigins); ok {
		cfg.App.AllowedOrigins = splitList(v)
	}
	if v, ok := get(EnvAllowAnyOrigin); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvAllowAnyOrigin, err)
		}
		cfg.App.AllowAnyOrigin = b
	}
	if v, ok := get(EnvTrustForwarded); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTrustForwarded, err)
		}
		cfg.App.TrustForwardedHeaders = b
	}
	if v, ok := get(EnvCallbackPath); ok {
		cfg.App.CallbackPath = v
	}
	if v, ok := get(EnvLoginPath); ok {
		cfg.App.LoginPath = v
	}
	if v, ok := get(EnvLocale); ok {
		cfg.I18n.Locale = v
	}
	if v, ok := get(EnvProviderTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvProviderTimeout, err)
		}
		cfg.Provider.Timeout = d
	}

	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
