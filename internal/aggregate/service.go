package aggregate

import (
    "context"
    "errors"
    "fmt"
    "strings"

    "golang.org/x/sync/errgroup"

    "oitracker/internal/market"
)

// ErrUnknownSymbol is returned for a symbol that is not listed on the exchange.
var ErrUnknownSymbol = errors.New("unknown symbol")

// SymbolLister lists tradable futures symbols.
type SymbolLister interface {
    List(ctx context.Context) ([]string, error)
    Contains(ctx context.Context, symbol string) (bool, error)
}

// MarketReader reads live market data for a symbol.
type MarketReader interface {
    Get(ctx context.Context, symbol string) (market.Data, error)
}

// SupplyReader resolves circulating supply for a futures symbol.
type SupplyReader interface {
    Get(ctx context.Context, futuresSymbol string) (float64, bool)
    Supports(futuresSymbol string) bool
}

// Service answers symbol listing and per-coin requests.
type Service struct {
    symbols SymbolLister
    market  MarketReader
    supply  SupplyReader
}

func NewService(symbols SymbolLister, m MarketReader, supply SupplyReader) *Service {
    return &Service{symbols: symbols, market: m, supply: supply}
}

// Symbols returns every tradable symbol annotated with curated supply support.
func (s *Service) Symbols(ctx context.Context) ([]SymbolEntry, error) {
    list, err := s.symbols.List(ctx)
    if err != nil {
        return nil, err
    }
    out := make([]SymbolEntry, 0, len(list))
    for _, sym := range list {
        out = append(out, SymbolEntry{Symbol: sym, Supported: s.supply.Supports(sym)})
    }
    return out, nil
}

// Coin returns the combined view of symbol. Market data and supply are
// fetched concurrently; a market data failure aborts the request.
func (s *Service) Coin(ctx context.Context, symbol string) (Coin, error) {
    sym := strings.ToUpper(strings.TrimSpace(symbol))
    ok, err := s.symbols.Contains(ctx, sym)
    if err != nil {
        return Coin{}, err
    }
    if !ok {
        return Coin{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, sym)
    }

    var (
        data   market.Data
        supply *float64
    )
    g, gctx := errgroup.WithContext(ctx)
    g.Go(func() error {
        var err error
        data, err = s.market.Get(gctx, sym)
        return err
    })
    g.Go(func() error {
        if v, ok := s.supply.Get(gctx, sym); ok {
            supply = &v
        }
        return nil
    })
    if err := g.Wait(); err != nil {
        return Coin{}, err
    }
    return Compose(sym, data, supply), nil
}
