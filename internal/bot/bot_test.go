package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"oitracker/internal/aggregate"
)

type fakeService struct {
	coins   map[string]aggregate.Coin
	entries []aggregate.SymbolEntry
	err     error
	asked   []string
}

func (f *fakeService) Symbols(ctx context.Context) ([]aggregate.SymbolEntry, error) {
	return f.entries, f.err
}

func (f *fakeService) Coin(ctx context.Context, symbol string) (aggregate.Coin, error) {
	f.asked = append(f.asked, symbol)
	if f.err != nil {
		return aggregate.Coin{}, f.err
	}
	c, ok := f.coins[symbol]
	if !ok {
		return aggregate.Coin{}, fmt.Errorf("%w: %s", aggregate.ErrUnknownSymbol, symbol)
	}
	return c, nil
}

func ptr(v float64) *float64 { return &v }

func TestFormatCoin(t *testing.T) {
	t.Parallel()

	got := formatCoin(aggregate.Coin{
		Symbol:            "BTCUSDT",
		Price:             50000,
		ChangePct:         -1.25,
		VolumeUSDT:        12.5e9,
		OpenInterest:      1000,
		OpenInterestUSDT:  5e7,
		CirculatingSupply: ptr(20000),
		OISupplyRatio:     ptr(5),
	})

	require.Contains(t, got, "BTCUSDT")
	require.Contains(t, got, "$50000.0000")
	require.Contains(t, got, "🔴-1.25%")
	require.Contains(t, got, "12.50 B")
	require.Contains(t, got, "$50.00 M")
	require.Contains(t, got, "5.0000%")
}

func TestFormatCoin_NoSupply(t *testing.T) {
	t.Parallel()

	got := formatCoin(aggregate.Coin{Symbol: "NEWUSDT", Price: 1, OpenInterest: 10, OpenInterestUSDT: 10})
	require.Contains(t, got, "Supply: N/A")
	require.Contains(t, got, "OI/Supply: N/A")
	require.Contains(t, got, "➖")
}

func TestReply(t *testing.T) {
	t.Parallel()

	svc := &fakeService{
		coins:   map[string]aggregate.Coin{"ETHUSDT": {Symbol: "ETHUSDT", Price: 3000}},
		entries: []aggregate.SymbolEntry{{Symbol: "BTCUSDT", Supported: true}, {Symbol: "ETHUSDT", Supported: true}, {Symbol: "NEWUSDT"}},
	}
	b := &Bot{service: svc, timeout: time.Second}

	require.Equal(t, helpText, b.reply(t.Context(), "help", ""))
	require.Equal(t, helpText, b.reply(t.Context(), "start", ""))
	require.Empty(t, b.reply(t.Context(), "unknown", ""))
	require.True(t, strings.HasPrefix(b.reply(t.Context(), "oi", "  "), "usage"))

	// bare base assets get the USDT suffix
	require.Contains(t, b.reply(t.Context(), "oi", "eth"), "ETHUSDT")
	require.Equal(t, "NOPEUSDT not found on Binance Futures", b.reply(t.Context(), "oi", "nopeusdt"))
	require.Equal(t, []string{"ETHUSDT", "NOPEUSDT"}, svc.asked)

	require.Equal(t, "📋 3 futures symbols tracked, 2 with curated supply data", b.reply(t.Context(), "symbols", ""))
}

func TestContractSymbol(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"ETH":      "ETHUSDT",
		"BTCUSDT":  "BTCUSDT",
		"ETHFDUSD": "ETHFDUSD",
		"USDT":     "USDT",
		"USDC":     "USDC",
	}
	for in, want := range tests {
		require.Equal(t, want, contractSymbol(in), in)
	}
}

func TestReply_UpstreamError(t *testing.T) {
	t.Parallel()

	b := &Bot{service: &fakeService{err: errors.New("binance down")}, timeout: time.Second}

	require.Contains(t, b.reply(t.Context(), "oi", "BTCUSDT"), "upstream error")
	require.Contains(t, b.reply(t.Context(), "symbols", ""), "upstream error")
}
