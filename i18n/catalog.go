package i18n

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var builtin embed.FS

// DefaultLocale is the locale shipped with the package and used as fallback.
const DefaultLocale = "en"

var (
	ErrMissingTranslation = errors.New("missing translation")
	ErrEmptyLocale        = errors.New("empty locale")
)

// Catalog holds flattened messages per locale. Safe for concurrent use.
type Catalog struct {
	mu       sync.RWMutex
	fallback string
	messages map[string]map[string]string
}

// New returns an empty catalog falling back to fallbackLocale.
func New(fallbackLocale string) *Catalog {
	fallbackLocale = normalizeLocale(fallbackLocale)
	if fallbackLocale == "" {
		fallbackLocale = DefaultLocale
	}
	return &Catalog{
		fallback: fallbackLocale,
		messages: make(map[string]map[string]string),
	}
}

// Default returns a catalog preloaded with the built-in locales.
func Default() (*Catalog, error) {
	c := New(DefaultLocale)
	entries, err := builtin.ReadDir("locales")
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		data, err := builtin.ReadFile("locales/" + entry.Name())
		if err != nil {
			return nil, err
		}
		if err := c.Load(localeFromFilename(entry.Name()), data); err != nil {
			return nil, fmt.Errorf("load builtin %s: %w", entry.Name(), err)
		}
	}
	return c, nil
}

// MustDefault is Default for package-level initialization.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// Load merges a YAML document into locale, overriding existing keys.
func (c *Catalog) Load(locale string, data []byte) error {
	locale = normalizeLocale(locale)
	if locale == "" {
		return ErrEmptyLocale
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse catalog %s: %w", locale, err)
	}

	flat := make(map[string]string)
	flatten("", doc, flat)

	c.mu.Lock()
	defer c.mu.Unlock()

	dst := c.messages[locale]
	if dst == nil {
		dst = make(map[string]string, len(flat))
		c.messages[locale] = dst
	}
	for k, v := range flat {
		dst[k] = v
	}
	return nil
}

// LoadFile loads path; the locale is the file name without extension.
func (c *Catalog) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return c.Load(localeFromFilename(filepath.Base(path)), data)
}

// Translate resolves key for locale, trying the base language ("es" for
// "es-MX") and the fallback locale before giving up.
func (c *Catalog) Translate(locale, key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrMissingTranslation
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, candidate := range c.candidates(normalizeLocale(locale)) {
		if msg, ok := c.messages[candidate][key]; ok && msg != "" {
			return msg, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrMissingTranslation, key)
}

// Func binds the catalog to one locale. Missing keys render as the key.
func (c *Catalog) Func(locale string) func(string) string {
	return func(key string) string {
		msg, err := c.Translate(locale, key)
		if err != nil {
			return key
		}
		return msg
	}
}

// Locales lists loaded locales in sorted order.
func (c *Catalog) Locales() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.messages))
	for locale := range c.messages {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

func (c *Catalog) candidates(locale string) []string {
	out := make([]string, 0, 3)
	if locale != "" {
		out = append(out, locale)
		if i := strings.IndexByte(locale, '-'); i > 0 {
			out = append(out, locale[:i])
		}
	}
	return append(out, c.fallback)
}

func flatten(prefix string, in map[string]any, out map[string]string) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case nil:
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

func normalizeLocale(locale string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(locale), "_", "-"))
}

func localeFromFilename(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
