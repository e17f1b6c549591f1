package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"oitracker/internal/httpx"
)

const (
	baseURL        = "https://fapi.binance.com"
	defaultTimeout = 10 * time.Second

	// StatusTrading marks an instrument that currently accepts orders.
	StatusTrading = "TRADING"
)

// ErrEmptySymbol is returned when a per-symbol call gets an empty symbol.
var ErrEmptySymbol = errors.New("binance: empty symbol")

// Client is a client for the Binance USDⓈ-M futures public REST API.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient performs the requests.
	httpClient httpx.Doer
	// header contains additional headers to be sent with each request.
	header http.Header
	// timeout bounds every call.
	timeout time.Duration
}

// ClientOption is a configuration option for the Binance client.
type ClientOption func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient httpx.Doer) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) ClientOption {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient creates a new Binance futures client.
func NewClient(options ...ClientOption) *Client {
	var c = &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		timeout:    defaultTimeout,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Instrument is one contract from exchangeInfo.
type Instrument struct {
	Symbol       string `json:"symbol"`
	BaseAsset    string `json:"baseAsset"`
	QuoteAsset   string `json:"quoteAsset"`
	Status       string `json:"status"`
	ContractType string `json:"contractType"`
}

// Ticker is the subset of the 24h ticker the tracker reports.
type Ticker struct {
	Symbol             string
	LastPrice          float64
	PriceChangePercent float64
	QuoteVolume        float64
}

// ExchangeInfo returns every instrument listed on the futures exchange.
func (c *Client) ExchangeInfo(ctx context.Context) ([]Instrument, error) {
	var body struct {
		Symbols []Instrument `json:"symbols"`
	}
	if err := c.get(ctx, "/fapi/v1/exchangeInfo", nil, &body); err != nil {
		return nil, fmt.Errorf("binance: exchange info: %w", err)
	}
	return body.Symbols, nil
}

// TradingSymbols returns the sorted symbols quoted in quote whose status is TRADING.
func TradingSymbols(instruments []Instrument, quote string) []string {
	out := make([]string, 0, len(instruments))
	for _, in := range instruments {
		if in.QuoteAsset == quote && in.Status == StatusTrading {
			out = append(out, in.Symbol)
		}
	}
	sort.Strings(out)
	return out
}

// OpenInterest returns the open interest of symbol in contracts.
func (c *Client) OpenInterest(ctx context.Context, symbol string) (float64, error) {
	if symbol == "" {
		return 0, ErrEmptySymbol
	}
	var body struct {
		Symbol       string `json:"symbol"`
		OpenInterest string `json:"openInterest"`
	}
	if err := c.get(ctx, "/fapi/v1/openInterest", url.Values{"symbol": {symbol}}, &body); err != nil {
		return 0, fmt.Errorf("binance: open interest %s: %w", symbol, err)
	}
	oi, err := parseNumber("openInterest", body.OpenInterest)
	if err != nil {
		return 0, fmt.Errorf("binance: open interest %s: %w", symbol, err)
	}
	return oi, nil
}

// Ticker24h returns the rolling 24h statistics of symbol.
func (c *Client) Ticker24h(ctx context.Context, symbol string) (Ticker, error) {
	if symbol == "" {
		return Ticker{}, ErrEmptySymbol
	}
	var body struct {
		Symbol             string `json:"symbol"`
		LastPrice          string `json:"lastPrice"`
		PriceChangePercent string `json:"priceChangePercent"`
		QuoteVolume        string `json:"quoteVolume"`
	}
	if err := c.get(ctx, "/fapi/v1/ticker/24hr", url.Values{"symbol": {symbol}}, &body); err != nil {
		return Ticker{}, fmt.Errorf("binance: ticker %s: %w", symbol, err)
	}

	t := Ticker{Symbol: body.Symbol}
	var err error
	if t.LastPrice, err = parseNumber("lastPrice", body.LastPrice); err != nil {
		return Ticker{}, fmt.Errorf("binance: ticker %s: %w", symbol, err)
	}
	if t.PriceChangePercent, err = parseNumber("priceChangePercent", body.PriceChangePercent); err != nil {
		return Ticker{}, fmt.Errorf("binance: ticker %s: %w", symbol, err)
	}
	if t.QuoteVolume, err = parseNumber("quoteVolume", body.QuoteVolume); err != nil {
		return Ticker{}, fmt.Errorf("binance: ticker %s: %w", symbol, err)
	}
	return t, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return httpx.GetJSON(ctx, c.httpClient, c.baseURL+path, query, c.header, out)
}

// parseNumber reads a decimal string as Binance encodes prices and quantities.
func parseNumber(field, s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("decoding %s %q: %w", field, s, err)
	}
	return d.InexactFloat64(), nil
}
