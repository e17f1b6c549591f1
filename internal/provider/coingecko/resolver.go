package coingecko

import (
	"context"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"oitracker/internal/provider/cache"
	"oitracker/internal/provider/ratelimit"
)

const (
	Name = "coingecko"

	DefaultPages   = 8
	DefaultPerPage = 250
	DefaultTTL     = 10 * time.Minute
)

// API is the part of the CoinGecko client the resolver needs.
type API interface {
	Markets(ctx context.Context, page, perPage int) ([]Market, error)
	CirculatingSupply(ctx context.Context, id string) (*float64, error)
}

// Config tunes the resolver. Zero values use the defaults; nil gates do not wait.
type Config struct {
	Pages   int
	PerPage int
	TTL     time.Duration
	Now     func() time.Time
	// Catalog replaces the ranked list when it cannot be loaded.
	Catalog Catalog
	// PageGate paces the market list pages.
	PageGate ratelimit.Limiter
	// CoinGate paces the per-coin supply calls.
	CoinGate ratelimit.Limiter
}

// Resolver maps base assets to CoinGecko ids and reads their circulating supply.
type Resolver struct {
	api      API
	pages    int
	perPage  int
	catalog  Catalog
	pageGate ratelimit.Limiter
	coinGate ratelimit.Limiter

	mu     sync.RWMutex
	ids    map[string]string
	loaded bool
	group  singleflight.Group

	supply *cache.Store[float64]
}

func NewResolver(api API, cfg Config) *Resolver {
	if cfg.Pages <= 0 {
		cfg.Pages = DefaultPages
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = DefaultPerPage
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Catalog == nil {
		cfg.Catalog = DefaultCatalog()
	}
	return &Resolver{
		api:      api,
		pages:    cfg.Pages,
		perPage:  cfg.PerPage,
		catalog:  cfg.Catalog,
		pageGate: cfg.PageGate,
		coinGate: cfg.CoinGate,
		supply:   cache.New[float64](cfg.TTL, cfg.Now),
	}
}

func (r *Resolver) Name() string { return Name }

// Catalog returns the static table backing the fallback.
func (r *Resolver) Catalog() Catalog { return r.catalog }

// Resolve returns the circulating supply of base, or ok=false.
func (r *Resolver) Resolve(ctx context.Context, base string) (float64, bool) {
	id, ok := r.ResolveID(ctx, base)
	if !ok {
		return 0, false
	}
	return r.GetSupply(ctx, id)
}

// ResolveID returns the coin id for base. The ranked list is loaded on first
// use; when it cannot be loaded the static catalog takes its place for good.
func (r *Resolver) ResolveID(ctx context.Context, base string) (string, bool) {
	r.ensureLoaded(ctx)
	r.mu.RLock()
	id, ok := r.ids[strings.ToUpper(base)]
	r.mu.RUnlock()
	return id, ok
}

// GetSupply returns the circulating supply for id, cached for the TTL.
// On an upstream failure the last known value is returned, whatever its age.
func (r *Resolver) GetSupply(ctx context.Context, id string) (float64, bool) {
	if v, ok := r.supply.Get(id); ok {
		return v, true
	}

	supply, err := r.fetchSupply(ctx, id)
	if err != nil {
		stale, ok := r.supply.Stale(id)
		log.Warn().Err(err).Str("provider", Name).Str("id", id).Bool("stale", ok).Msg("supply lookup failed")
		return stale, ok
	}
	if supply == nil || *supply <= 0 {
		return 0, false
	}
	r.supply.Set(id, *supply)
	return *supply, true
}

func (r *Resolver) fetchSupply(ctx context.Context, id string) (*float64, error) {
	if r.coinGate != nil {
		if err := r.coinGate.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return r.api.CirculatingSupply(ctx, id)
}

// IDs returns a copy of the loaded symbol to id map.
func (r *Resolver) IDs(ctx context.Context) map[string]string {
	r.ensureLoaded(ctx)
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.ids)
}

func (r *Resolver) ensureLoaded(ctx context.Context) {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if loaded {
		return
	}
	_, _, _ = r.group.Do("list", func() (any, error) {
		r.load(context.WithoutCancel(ctx))
		return nil, nil
	})
}

func (r *Resolver) load(ctx context.Context) {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if loaded {
		return
	}

	ids, err := r.fetchRanked(ctx)
	if err != nil {
		log.Warn().Err(err).Str("provider", Name).Int("fallback", len(r.catalog)).Msg("coin list load failed; using static catalog")
		ids = maps.Clone(map[string]string(r.catalog))
	} else {
		log.Info().Str("provider", Name).Int("coins", len(ids)).Msg("coin list loaded")
	}

	r.mu.Lock()
	r.ids = ids
	r.loaded = true
	r.mu.Unlock()
}

// fetchRanked walks the market cap pages; the first coin seen per symbol wins.
func (r *Resolver) fetchRanked(ctx context.Context) (map[string]string, error) {
	ids := make(map[string]string)
	for page := 1; page <= r.pages; page++ {
		if r.pageGate != nil {
			if err := r.pageGate.Wait(ctx); err != nil {
				return nil, err
			}
		}
		coins, err := r.api.Markets(ctx, page, r.perPage)
		if err != nil {
			return nil, err
		}
		if len(coins) == 0 {
			break
		}
		for _, c := range coins {
			sym := strings.ToUpper(c.Symbol)
			if _, seen := ids[sym]; !seen {
				ids[sym] = c.ID
			}
		}
	}
	return ids, nil
}
