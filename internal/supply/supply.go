// Package supply resolves the circulating supply of a futures symbol through
// an ordered chain of providers behind a unified cache.
package supply

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"oitracker/internal/provider"
	"oitracker/internal/provider/cache"
)

const DefaultTTL = 10 * time.Minute

// DefaultQuoteSuffixes are the quote assets stripped from futures symbols.
var DefaultQuoteSuffixes = []string{"USDT", "BUSD", "USDC", "FDUSD", "USD"}

// BaseAsset upper-cases symbol and strips the longest matching suffix.
// A symbol that is nothing but a suffix is returned unchanged.
func BaseAsset(symbol string, suffixes []string) string {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	best := ""
	for _, s := range suffixes {
		s = strings.ToUpper(s)
		if len(s) > len(best) && len(s) < len(sym) && strings.HasSuffix(sym, s) {
			best = s
		}
	}
	return sym[:len(sym)-len(best)]
}

// Catalog answers whether a base asset is curated.
type Catalog interface {
	Has(base string) bool
}

// Orchestrator tries each provider in order and caches the first hit.
type Orchestrator struct {
	providers []provider.SupplyProvider
	suffixes  []string
	catalog   Catalog
	cache     *cache.Store[float64]
	group     singleflight.Group
}

// Config tunes the orchestrator. Zero values use the defaults.
type Config struct {
	Suffixes []string
	TTL      time.Duration
	Now      func() time.Time
}

func New(providers []provider.SupplyProvider, catalog Catalog, cfg Config) *Orchestrator {
	if len(cfg.Suffixes) == 0 {
		cfg.Suffixes = DefaultQuoteSuffixes
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &Orchestrator{
		providers: providers,
		suffixes:  cfg.Suffixes,
		catalog:   catalog,
		cache:     cache.New[float64](cfg.TTL, cfg.Now),
	}
}

// BaseAsset strips the configured suffixes from symbol.
func (o *Orchestrator) BaseAsset(symbol string) string {
	return BaseAsset(symbol, o.suffixes)
}

// Get returns the circulating supply of futuresSymbol, or ok=false when no
// provider has it. Failures are never cached.
func (o *Orchestrator) Get(ctx context.Context, futuresSymbol string) (float64, bool) {
	key := strings.ToUpper(strings.TrimSpace(futuresSymbol))
	if v, ok := o.cache.Get(key); ok {
		return v, true
	}

	v, _, _ := o.group.Do(key, func() (any, error) {
		if v, ok := o.cache.Get(key); ok {
			return v, nil
		}
		base := o.BaseAsset(key)
		// shared by every waiter; providers bound their own calls with timeouts
		shared := context.WithoutCancel(ctx)
		for _, p := range o.providers {
			if v, ok := p.Resolve(shared, base); ok {
				o.cache.Set(key, v)
				log.Debug().Str("symbol", key).Str("provider", p.Name()).Float64("supply", v).Msg("supply resolved")
				return v, nil
			}
		}
		log.Debug().Str("symbol", key).Str("base", base).Msg("no supply from any provider")
		return nil, nil
	})
	supply, ok := v.(float64)
	return supply, ok
}

// Supports reports whether the base asset of futuresSymbol is in the curated
// catalog. It does not consult the dynamic providers.
func (o *Orchestrator) Supports(futuresSymbol string) bool {
	if o.catalog == nil {
		return false
	}
	return o.catalog.Has(o.BaseAsset(futuresSymbol))
}
