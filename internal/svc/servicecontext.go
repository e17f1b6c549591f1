package svc

import (
	"time"

	"github.com/rs/zerolog/log"

	"oitracker/internal/aggregate"
	"oitracker/internal/config"
	"oitracker/internal/exchange/binance"
	"oitracker/internal/httpx"
	"oitracker/internal/market"
	"oitracker/internal/provider"
	"oitracker/internal/provider/cmc"
	"oitracker/internal/provider/coingecko"
	"oitracker/internal/provider/ratelimit"
	"oitracker/internal/supply"
)

// transportTimeout caps any single upstream exchange; per-call timeouts are shorter.
const transportTimeout = time.Minute

// ServiceContext owns every long-lived dependency of the process.
type ServiceContext struct {
	Config config.Config

	HTTP      *httpx.Client
	Binance   *binance.Client
	Symbols   *market.SymbolSource
	Market    *market.Fetcher
	CMC       *cmc.Resolver
	CoinGecko *coingecko.Resolver
	Supply    *supply.Orchestrator
	Service   *aggregate.Service
}

// NewServiceContext wires the exchange, the supply chain and the request
// service from c. now is the clock shared by the caches; nil means time.Now.
func NewServiceContext(c config.Config, now func() time.Time) *ServiceContext {
	svc := &ServiceContext{
		Config: c,
		HTTP:   httpx.New(transportTimeout),
	}

	svc.Binance = binance.NewClient(
		binance.WithBaseURL(c.Binance.BaseURL),
		binance.WithHTTPClient(svc.HTTP),
		binance.WithTimeout(seconds(c.Binance.TimeoutSec)),
	)
	svc.Symbols = market.NewSymbolSource(svc.Binance, c.Binance.QuoteAsset, seconds(c.Binance.SymbolsCacheTTLSec), now)
	svc.Market = market.NewFetcher(svc.Binance)

	var providers []provider.SupplyProvider
	switch {
	case !c.CMC.Enabled:
		log.Info().Str("provider", cmc.Name).Msg("disabled by config")
	case c.CMC.APIKey == "":
		log.Warn().Str("provider", cmc.Name).Msg("CMC_API_KEY not set; skipping")
	default:
		client := cmc.NewClient(c.CMC.APIKey,
			cmc.WithBaseURL(c.CMC.BaseURL),
			cmc.WithHTTPClient(svc.HTTP),
			cmc.WithTimeouts(seconds(c.CMC.MapTimeoutSec), seconds(c.CMC.QuoteTimeoutSec)),
		)
		svc.CMC = cmc.NewResolver(client, cmc.Config{
			PageSize: c.CMC.MapPageSize,
			MaxPages: c.CMC.MapMaxPages,
			TTL:      seconds(c.CMC.CacheTTLSec),
			Now:      now,
		})
		providers = append(providers, svc.CMC)
	}

	catalog := coingecko.DefaultCatalog()
	if c.CoinGecko.Enabled {
		client := coingecko.NewClient(c.CoinGecko.APIKey,
			coingecko.WithBaseURL(c.CoinGecko.BaseURL),
			coingecko.WithHTTPClient(svc.HTTP),
			coingecko.WithTimeouts(seconds(c.CoinGecko.ListTimeoutSec), seconds(c.CoinGecko.CoinTimeoutSec)),
		)
		cgCfg := coingecko.Config{
			Pages:    c.CoinGecko.ListPages,
			PerPage:  c.CoinGecko.PerPage,
			TTL:      seconds(c.CoinGecko.CacheTTLSec),
			Now:      now,
			Catalog:  catalog,
			PageGate: ratelimit.NewInterval(time.Duration(c.CoinGecko.PageIntervalMS) * time.Millisecond),
		}
		if c.CoinGecko.MaxRequestsPerMinute > 0 {
			cgCfg.CoinGate = ratelimit.PerMinute(c.CoinGecko.MaxRequestsPerMinute, c.CoinGecko.Burst)
		}
		svc.CoinGecko = coingecko.NewResolver(client, cgCfg)
		providers = append(providers, svc.CoinGecko)
	} else {
		log.Info().Str("provider", coingecko.Name).Msg("disabled by config")
	}

	if len(providers) == 0 {
		log.Warn().Msg("no supply providers configured; circulating supply will be null")
	}

	svc.Supply = supply.New(providers, catalog, supply.Config{
		Suffixes: c.Supply.QuoteSuffixes,
		TTL:      seconds(c.Supply.CacheTTLSec),
		Now:      now,
	})
	svc.Service = aggregate.NewService(svc.Symbols, svc.Market, svc.Supply)
	return svc
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }
