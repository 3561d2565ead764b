package forms

import (
	"errors"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
)

var ErrInvalidConfig = errors.New("invalid form registry configuration")

// Config sizes the registry.
type Config struct {
	TTL      time.Duration
	MaxForms int64
}

// Registry is a TTL-bounded map from form ID to value, safe for concurrent use.
type Registry struct {
	cache     *ristretto.Cache
	ttl       time.Duration
	closeOnce sync.Once
}

// New builds a registry holding at most cfg.MaxForms entries.
func New(cfg Config) (*Registry, error) {
	if cfg.TTL <= 0 || cfg.MaxForms <= 0 {
		return nil, ErrInvalidConfig
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        cfg.MaxForms * 10,
		MaxCost:            cfg.MaxForms,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &Registry{cache: cache, ttl: cfg.TTL}, nil
}

// Put stores v under id. It reports false when the cache refused the entry.
func (r *Registry) Put(id string, v any) bool {
	if r == nil || id == "" {
		return false
	}
	ok := r.cache.SetWithTTL(id, v, 1, r.ttl)
	r.cache.Wait()
	return ok
}

// Get returns the value stored under id, if still live.
func (r *Registry) Get(id string) (any, bool) {
	if r == nil || id == "" {
		return nil, false
	}
	return r.cache.Get(id)
}

// Delete drops id from the registry.
func (r *Registry) Delete(id string) {
	if r == nil || id == "" {
		return
	}
	r.cache.Del(id)
	r.cache.Wait()
}

// Close releases the cache's background goroutines.
func (r *Registry) Close() {
	if r == nil {
		return
	}
	r.closeOnce.Do(r.cache.Close)
}
