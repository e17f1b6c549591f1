package supply

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"oitracker/internal/provider"
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

type catalog map[string]bool

func (c catalog) Has(base string) bool { return c[base] }

func TestBaseAsset(t *testing.T) {
	t.Parallel()

	tests := []struct {
		symbol string
		want   string
	}{
		{"BTCUSDT", "BTC"},
		{"btcusdt", "BTC"},
		{"BTCBUSD", "BTC"},
		{"ETHUSDC", "ETH"},
		{"ETHFDUSD", "ETH"},
		{"SOLUSD", "SOL"},
		{"1000PEPEUSDT", "1000PEPE"},
		{"USDT", "USDT"},
		{"BTC", "BTC"},
		{"", ""},
	}
	for _, tt := range tests {
		require.Equalf(t, tt.want, BaseAsset(tt.symbol, DefaultQuoteSuffixes), "BaseAsset(%q)", tt.symbol)
	}
}

func TestOrchestrator_FirstProviderWins(t *testing.T) {
	t.Parallel()

	// Arrange
	ctrl := gomock.NewController(t)
	a := NewMockSupplyProvider(ctrl)
	b := NewMockSupplyProvider(ctrl)
	a.EXPECT().Name().Return("cmc").AnyTimes()
	b.EXPECT().Name().Return("coingecko").AnyTimes()

	// Assert: B is never consulted when A answers
	a.EXPECT().Resolve(gomock.Any(), "BTC").Return(19_700_000.0, true).Times(1)
	b.EXPECT().Resolve(gomock.Any(), gomock.Any()).Times(0)

	o := New([]provider.SupplyProvider{a, b}, nil, Config{})

	// Act
	v, ok := o.Get(t.Context(), "btcusdt")

	// Assert
	require.True(t, ok)
	require.Equal(t, 19_700_000.0, v)
}

func TestOrchestrator_FallsThroughToB(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	a := NewMockSupplyProvider(ctrl)
	b := NewMockSupplyProvider(ctrl)
	a.EXPECT().Name().Return("cmc").AnyTimes()
	b.EXPECT().Name().Return("coingecko").AnyTimes()

	gomock.InOrder(
		a.EXPECT().Resolve(gomock.Any(), "SPACE").Return(0.0, false),
		b.EXPECT().Resolve(gomock.Any(), "SPACE").Return(3_000_000_000.0, true),
	)

	o := New([]provider.SupplyProvider{a, b}, nil, Config{})

	v, ok := o.Get(t.Context(), "SPACEUSDT")
	require.True(t, ok)
	require.Equal(t, 3_000_000_000.0, v)
}

func TestOrchestrator_AllFailIsNotCached(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	a := NewMockSupplyProvider(ctrl)
	b := NewMockSupplyProvider(ctrl)

	// each Get tries both providers again
	a.EXPECT().Resolve(gomock.Any(), "NOPE").Return(0.0, false).Times(2)
	b.EXPECT().Resolve(gomock.Any(), "NOPE").Return(0.0, false).Times(2)

	o := New([]provider.SupplyProvider{a, b}, nil, Config{})

	_, ok := o.Get(t.Context(), "NOPEUSDT")
	require.False(t, ok)
	_, ok = o.Get(t.Context(), "NOPEUSDT")
	require.False(t, ok)
}

func TestOrchestrator_CacheReusedThenRefreshedOnce(t *testing.T) {
	t.Parallel()

	// Arrange
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	ctrl := gomock.NewController(t)
	a := NewMockSupplyProvider(ctrl)
	a.EXPECT().Name().Return("cmc").AnyTimes()
	gomock.InOrder(
		a.EXPECT().Resolve(gomock.Any(), "ETH").Return(120_000_000.0, true).Times(1),
		a.EXPECT().Resolve(gomock.Any(), "ETH").Return(120_500_000.0, true).Times(1),
	)
	o := New([]provider.SupplyProvider{a}, nil, Config{TTL: 10 * time.Minute, Now: clock.Now})

	// Act + Assert: within the TTL the cached value is reused
	for range 3 {
		v, ok := o.Get(t.Context(), "ETHUSDT")
		require.True(t, ok)
		require.Equal(t, 120_000_000.0, v)
		clock.Advance(time.Minute)
	}

	// past the TTL: exactly one refresh, then cached again
	clock.Advance(10 * time.Minute)
	for range 3 {
		v, ok := o.Get(t.Context(), "ETHUSDT")
		require.True(t, ok)
		require.Equal(t, 120_500_000.0, v)
	}
}

func TestOrchestrator_CacheKeyedByFuturesSymbol(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	a := NewMockSupplyProvider(ctrl)
	a.EXPECT().Name().Return("cmc").AnyTimes()

	// BTCUSDT and BTCUSDC share a base but not a cache entry
	a.EXPECT().Resolve(gomock.Any(), "BTC").Return(19_700_000.0, true).Times(2)

	o := New([]provider.SupplyProvider{a}, nil, Config{})
	_, _ = o.Get(t.Context(), "BTCUSDT")
	_, _ = o.Get(t.Context(), "BTCUSDC")
	_, _ = o.Get(t.Context(), "BTCUSDT")
}

func TestOrchestrator_ConcurrentMissesShareOneResolution(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	a := NewMockSupplyProvider(ctrl)
	a.EXPECT().Name().Return("cmc").AnyTimes()

	release := make(chan struct{})
	a.EXPECT().
		Resolve(gomock.Any(), "SOL").
		DoAndReturn(func(_ context.Context, _ string) (float64, bool) {
			<-release
			return 480_000_000.0, true
		}).
		Times(1)

	o := New([]provider.SupplyProvider{a}, nil, Config{})

	var wg sync.WaitGroup
	results := make([]float64, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = o.Get(t.Context(), "SOLUSDT")
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, v := range results {
		require.Equal(t, 480_000_000.0, v)
	}
}

func TestOrchestrator_CancelledCallerDoesNotEmptySharedResolution(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	a := NewMockSupplyProvider(ctrl)
	a.EXPECT().Name().Return("cmc").AnyTimes()

	entered := make(chan struct{})
	release := make(chan struct{})
	a.EXPECT().
		Resolve(gomock.Any(), "ETH").
		DoAndReturn(func(ctx context.Context, _ string) (float64, bool) {
			close(entered)
			select {
			case <-ctx.Done():
				return 0, false
			case <-release:
				return 42.0, true
			}
		}).
		Times(1)

	o := New([]provider.SupplyProvider{a}, nil, Config{})

	// Arrange: caller A starts the resolution and then goes away
	ctxA, cancelA := context.WithCancel(t.Context())
	doneA := make(chan struct{})
	go func() {
		defer close(doneA)
		_, _ = o.Get(ctxA, "ETHUSDT")
	}()
	<-entered

	type result struct {
		supply float64
		ok     bool
	}
	resB := make(chan result, 1)
	go func() {
		v, ok := o.Get(t.Context(), "ETHUSDT")
		resB <- result{v, ok}
	}()
	time.Sleep(20 * time.Millisecond)

	// Act
	cancelA()
	time.Sleep(20 * time.Millisecond)
	close(release)

	// Assert
	b := <-resB
	<-doneA
	require.True(t, b.ok)
	require.Equal(t, 42.0, b.supply)
}

func TestOrchestrator_Supports(t *testing.T) {
	t.Parallel()

	o := New(nil, catalog{"BTC": true, "SPACE": true}, Config{})

	require.True(t, o.Supports("BTCUSDT"))
	require.True(t, o.Supports("spaceusdt"))
	require.False(t, o.Supports("DOGEUSDT"))
	require.False(t, New(nil, nil, Config{}).Supports("BTCUSDT"))
}
