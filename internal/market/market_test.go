package market_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"oitracker/internal/exchange/binance"
	"oitracker/internal/market"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeLister struct {
	calls       atomic.Int32
	err         error
	instruments []binance.Instrument
}

func (f *fakeLister) ExchangeInfo(ctx context.Context) ([]binance.Instrument, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.instruments, nil
}

func usdt(symbols ...string) []binance.Instrument {
	out := make([]binance.Instrument, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, binance.Instrument{Symbol: s, QuoteAsset: "USDT", Status: binance.StatusTrading})
	}
	return out
}

func TestSymbolSource_CachesWithinTTL(t *testing.T) {
	t.Parallel()

	// Arrange
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	lister := &fakeLister{instruments: usdt("SOLUSDT", "BTCUSDT")}
	src := market.NewSymbolSource(lister, "", time.Hour, clock.Now)

	// Act
	first, err := src.List(t.Context())
	require.NoError(t, err)
	clock.Advance(59 * time.Minute)
	second, err := src.List(t.Context())
	require.NoError(t, err)

	// Assert
	require.Equal(t, []string{"BTCUSDT", "SOLUSDT"}, first)
	require.Equal(t, first, second)
	require.EqualValues(t, 1, lister.calls.Load())

	// Act: after the TTL the list is refetched exactly once
	lister.instruments = usdt("ETHUSDT")
	clock.Advance(time.Minute)
	third, err := src.List(t.Context())
	require.NoError(t, err)
	require.Equal(t, []string{"ETHUSDT"}, third)
	require.EqualValues(t, 2, lister.calls.Load())
}

func TestSymbolSource_StaleOnError(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(0, 0)}
	lister := &fakeLister{instruments: usdt("BTCUSDT")}
	src := market.NewSymbolSource(lister, "USDT", time.Hour, clock.Now)

	_, err := src.List(t.Context())
	require.NoError(t, err)

	// Arrange: the exchange goes down after the TTL passes
	lister.err = errors.New("503")
	clock.Advance(2 * time.Hour)

	list, err := src.List(t.Context())
	require.NoError(t, err)
	require.Equal(t, []string{"BTCUSDT"}, list)
}

func TestSymbolSource_ErrorWithoutCache(t *testing.T) {
	t.Parallel()

	boom := errors.New("dial tcp: timeout")
	src := market.NewSymbolSource(&fakeLister{err: boom}, "USDT", time.Hour, nil)

	_, err := src.List(t.Context())
	require.ErrorIs(t, err, boom)

	_, err = src.Contains(t.Context(), "BTCUSDT")
	require.ErrorIs(t, err, boom)
}

func TestSymbolSource_Contains(t *testing.T) {
	t.Parallel()

	src := market.NewSymbolSource(&fakeLister{instruments: usdt("ETHUSDT", "BTCUSDT", "SOLUSDT")}, "USDT", time.Hour, nil)

	ok, err := src.Contains(t.Context(), "ETHUSDT")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = src.Contains(t.Context(), "UNKNOWNUSDT")
	require.NoError(t, err)
	require.False(t, ok)
}

type fakeExchange struct {
	oi     float64
	oiErr  error
	ticker binance.Ticker
	tkErr  error
	// blockTicker makes Ticker24h wait for cancellation
	blockTicker bool
}

func (f *fakeExchange) OpenInterest(ctx context.Context, symbol string) (float64, error) {
	return f.oi, f.oiErr
}

func (f *fakeExchange) Ticker24h(ctx context.Context, symbol string) (binance.Ticker, error) {
	if f.blockTicker {
		<-ctx.Done()
		return binance.Ticker{}, ctx.Err()
	}
	return f.ticker, f.tkErr
}

func TestFetcher_Get(t *testing.T) {
	t.Parallel()

	f := market.NewFetcher(&fakeExchange{
		oi:     1000,
		ticker: binance.Ticker{Symbol: "BTCUSDT", LastPrice: 50000, PriceChangePercent: 2.5, QuoteVolume: 1e9},
	})

	data, err := f.Get(t.Context(), "BTCUSDT")
	require.NoError(t, err)
	require.Equal(t, market.Data{Price: 50000, ChangePct: 2.5, VolumeUSDT: 1e9, OpenInterest: 1000}, data)
}

func TestFetcher_FirstErrorCancelsSibling(t *testing.T) {
	t.Parallel()

	boom := errors.New("open interest: 500")
	f := market.NewFetcher(&fakeExchange{oiErr: boom, blockTicker: true})

	_, err := f.Get(t.Context(), "BTCUSDT")
	require.ErrorIs(t, err, boom)
}

type blockingLister struct {
	entered     chan struct{}
	release     chan struct{}
	calls       atomic.Int32
	instruments []binance.Instrument
}

func (b *blockingLister) ExchangeInfo(ctx context.Context) ([]binance.Instrument, error) {
	b.calls.Add(1)
	close(b.entered)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-b.release:
		return b.instruments, nil
	}
}

func TestSymbolSource_CancelledCallerDoesNotFailSharedRefresh(t *testing.T) {
	t.Parallel()

	// Arrange: caller A starts a cold refresh and then goes away
	lister := &blockingLister{
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
		instruments: usdt("BTCUSDT"),
	}
	src := market.NewSymbolSource(lister, "", time.Hour, nil)

	ctxA, cancelA := context.WithCancel(t.Context())
	errA := make(chan error, 1)
	go func() {
		_, err := src.List(ctxA)
		errA <- err
	}()
	<-lister.entered

	type result struct {
		list []string
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		list, err := src.List(t.Context())
		resB <- result{list, err}
	}()
	time.Sleep(20 * time.Millisecond)

	// Act
	cancelA()
	time.Sleep(20 * time.Millisecond)
	close(lister.release)

	// Assert: the healthy waiter gets the list from the single refresh
	b := <-resB
	require.NoError(t, b.err)
	require.Equal(t, []string{"BTCUSDT"}, b.list)
	require.NoError(t, <-errA)
	require.EqualValues(t, 1, lister.calls.Load())
}
