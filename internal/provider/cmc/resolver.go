package cmc

import (
	"context"
	"maps"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"oitracker/internal/provider/cache"
)

const (
	Name = "cmc"

	DefaultPageSize = 5000
	DefaultMaxPages = 2
	DefaultTTL      = 10 * time.Minute
)

// API is the part of the CoinMarketCap client the resolver needs.
type API interface {
	Map(ctx context.Context, start, limit int) ([]MapEntry, error)
	QuotesLatest(ctx context.Context, id int) (*float64, error)
}

// Config tunes the resolver. Zero values use the defaults.
type Config struct {
	PageSize int
	MaxPages int
	TTL      time.Duration
	Now      func() time.Time
}

// Resolver maps base assets to CMC ids and reads their circulating supply.
type Resolver struct {
	api      API
	pageSize int
	maxPages int

	mu     sync.RWMutex
	ids    map[string]int
	loaded bool
	group  singleflight.Group

	supply *cache.Store[float64]
}

func NewResolver(api API, cfg Config) *Resolver {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &Resolver{
		api:      api,
		pageSize: cfg.PageSize,
		maxPages: cfg.MaxPages,
		supply:   cache.New[float64](cfg.TTL, cfg.Now),
	}
}

func (r *Resolver) Name() string { return Name }

// Resolve returns the circulating supply of base, or ok=false.
func (r *Resolver) Resolve(ctx context.Context, base string) (float64, bool) {
	id, ok := r.ResolveID(ctx, base)
	if !ok {
		return 0, false
	}
	return r.GetSupply(ctx, id)
}

// ResolveID returns the CMC id for base. The id map is loaded on first use;
// a failed load is retried on the next call.
func (r *Resolver) ResolveID(ctx context.Context, base string) (int, bool) {
	if !r.ensureLoaded(ctx) {
		return 0, false
	}
	r.mu.RLock()
	id, ok := r.ids[strings.ToUpper(base)]
	r.mu.RUnlock()
	return id, ok
}

// GetSupply returns the circulating supply for id, cached for the TTL.
// On an upstream failure the last known value is returned, whatever its age.
func (r *Resolver) GetSupply(ctx context.Context, id int) (float64, bool) {
	key := strconv.Itoa(id)
	if v, ok := r.supply.Get(key); ok {
		return v, true
	}

	supply, err := r.api.QuotesLatest(ctx, id)
	if err != nil {
		stale, ok := r.supply.Stale(key)
		log.Warn().Err(err).Str("provider", Name).Int("id", id).Bool("stale", ok).Msg("supply lookup failed")
		return stale, ok
	}
	if supply == nil || *supply <= 0 {
		return 0, false
	}
	r.supply.Set(key, *supply)
	return *supply, true
}

// IDs returns a copy of the loaded symbol to id map.
func (r *Resolver) IDs(ctx context.Context) map[string]int {
	r.ensureLoaded(ctx)
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.ids)
}

func (r *Resolver) ensureLoaded(ctx context.Context) bool {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if loaded {
		return true
	}

	// the load outlives any single caller
	_, err, _ := r.group.Do("map", func() (any, error) {
		return nil, r.load(context.WithoutCancel(ctx))
	})
	if err != nil {
		log.Warn().Err(err).Str("provider", Name).Msg("id map load failed")
		return false
	}
	return true
}

func (r *Resolver) load(ctx context.Context) error {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if loaded {
		return nil
	}

	ids := make(map[string]int)
	ranks := make(map[string]int)
	for page := 0; page < r.maxPages; page++ {
		entries, err := r.api.Map(ctx, page*r.pageSize+1, r.pageSize)
		if err != nil {
			return err
		}
		for _, e := range entries {
			sym := strings.ToUpper(e.Symbol)
			rank := math.MaxInt
			if e.Rank != nil {
				rank = *e.Rank
			}
			if prev, ok := ranks[sym]; ok && prev <= rank {
				continue
			}
			ids[sym] = e.ID
			ranks[sym] = rank
		}
		if len(entries) < r.pageSize {
			break
		}
	}

	r.mu.Lock()
	r.ids = ids
	r.loaded = true
	r.mu.Unlock()
	log.Info().Str("provider", Name).Int("coins", len(ids)).Msg("id map loaded")
	return nil
}
