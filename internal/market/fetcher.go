package market

import (
	"context"

	"golang.org/x/sync/errgroup"

	"oitracker/internal/exchange/binance"
)

// Data is the live market snapshot of one futures symbol.
type Data struct {
	Price        float64
	ChangePct    float64
	VolumeUSDT   float64
	OpenInterest float64
}

// Exchange is the part of the exchange client the fetcher needs.
type Exchange interface {
	OpenInterest(ctx context.Context, symbol string) (float64, error)
	Ticker24h(ctx context.Context, symbol string) (binance.Ticker, error)
}

// Fetcher reads open interest and the 24h ticker. Nothing is cached.
type Fetcher struct {
	exchange Exchange
}

func NewFetcher(exchange Exchange) *Fetcher {
	return &Fetcher{exchange: exchange}
}

// Get runs both calls concurrently. The first failure cancels the other
// and is returned as is.
func (f *Fetcher) Get(ctx context.Context, symbol string) (Data, error) {
	var (
		oi float64
		tk binance.Ticker
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		oi, err = f.exchange.OpenInterest(gctx, symbol)
		return err
	})
	g.Go(func() error {
		var err error
		tk, err = f.exchange.Ticker24h(gctx, symbol)
		return err
	})
	if err := g.Wait(); err != nil {
		return Data{}, err
	}
	return Data{
		Price:        tk.LastPrice,
		ChangePct:    tk.PriceChangePercent,
		VolumeUSDT:   tk.QuoteVolume,
		OpenInterest: oi,
	}, nil
}
