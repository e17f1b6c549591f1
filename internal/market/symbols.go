package market

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"oitracker/internal/exchange/binance"
	"oitracker/internal/provider/cache"
)

const (
	DefaultQuoteAsset = "USDT"
	DefaultSymbolsTTL = time.Hour

	listKey = "symbols"
)

// InstrumentLister is the part of the exchange client the symbol source needs.
type InstrumentLister interface {
	ExchangeInfo(ctx context.Context) ([]binance.Instrument, error)
}

// SymbolSource serves the sorted list of tradable futures symbols.
// The list is cached for TTL and a stale copy is served when a refetch fails.
type SymbolSource struct {
	exchange InstrumentLister
	quote    string
	cache    *cache.Store[[]string]
	group    singleflight.Group
}

// NewSymbolSource builds a SymbolSource over exchange. A zero ttl or empty
// quote falls back to the defaults; now may be nil.
func NewSymbolSource(exchange InstrumentLister, quote string, ttl time.Duration, now func() time.Time) *SymbolSource {
	if quote == "" {
		quote = DefaultQuoteAsset
	}
	if ttl <= 0 {
		ttl = DefaultSymbolsTTL
	}
	return &SymbolSource{
		exchange: exchange,
		quote:    quote,
		cache:    cache.New[[]string](ttl, now),
	}
}

// List returns the tradable symbols. Callers must not modify the slice.
func (s *SymbolSource) List(ctx context.Context) ([]string, error) {
	if list, ok := s.cache.Get(listKey); ok {
		return list, nil
	}

	v, err, _ := s.group.Do(listKey, func() (any, error) {
		// another caller may have refreshed while we waited
		if list, ok := s.cache.Get(listKey); ok {
			return list, nil
		}
		// shared by every waiter; one caller leaving must not fail the rest
		instruments, err := s.exchange.ExchangeInfo(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		list := binance.TradingSymbols(instruments, s.quote)
		s.cache.Set(listKey, list)
		log.Debug().Int("count", len(list)).Str("quote", s.quote).Msg("symbol list refreshed")
		return list, nil
	})
	if err == nil {
		return v.([]string), nil
	}

	if stale, ok := s.cache.Stale(listKey); ok {
		log.Warn().Err(err).Int("count", len(stale)).Msg("symbol list refresh failed; serving stale list")
		return stale, nil
	}
	return nil, fmt.Errorf("loading symbol list: %w", err)
}

// Contains reports whether symbol is a tradable futures symbol.
func (s *SymbolSource) Contains(ctx context.Context, symbol string) (bool, error) {
	list, err := s.List(ctx)
	if err != nil {
		return false, err
	}
	_, found := slices.BinarySearch(list, symbol)
	return found, nil
}
