package cmc

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"oitracker/internal/httpx"
)

const (
	baseURL = "https://pro-api.coinmarketcap.com"

	defaultMapTimeout   = 30 * time.Second
	defaultQuoteTimeout = 8 * time.Second
)

// Client is a client for the CoinMarketCap Pro API.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient performs the requests.
	httpClient httpx.Doer
	// header contains additional headers to be sent with each request.
	header http.Header

	mapTimeout   time.Duration
	quoteTimeout time.Duration
}

// ClientOption is a configuration option for the CoinMarketCap client.
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

// WithTimeouts sets the id map and quote call timeouts. Zero keeps the default.
func WithTimeouts(mapTimeout, quoteTimeout time.Duration) ClientOption {
	return func(c *Client) {
		if mapTimeout > 0 {
			c.mapTimeout = mapTimeout
		}
		if quoteTimeout > 0 {
			c.quoteTimeout = quoteTimeout
		}
	}
}

// NewClient creates a new CoinMarketCap client authenticated with key.
func NewClient(key string, options ...ClientOption) *Client {
	var c = &Client{
		baseURL:      baseURL,
		httpClient:   http.DefaultClient,
		header:       http.Header{},
		mapTimeout:   defaultMapTimeout,
		quoteTimeout: defaultQuoteTimeout,
	}
	if key != "" {
		// https://coinmarketcap.com/api/documentation/v1/#section/Authentication
		c.header.Set("X-CMC_PRO_API_KEY", key)
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// MapEntry is one coin from /v1/cryptocurrency/map.
type MapEntry struct {
	ID     int    `json:"id"`
	Rank   *int   `json:"rank"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Slug   string `json:"slug"`
}

// Map returns one page of active coins ordered by CMC rank. start is 1-based.
func (c *Client) Map(ctx context.Context, start, limit int) ([]MapEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, c.mapTimeout)
	defer cancel()

	query := url.Values{}
	query.Set("listing_status", "active")
	query.Set("sort", "cmc_rank")
	query.Set("start", strconv.Itoa(start))
	query.Set("limit", strconv.Itoa(limit))

	var body struct {
		Data []MapEntry `json:"data"`
	}
	if err := httpx.GetJSON(ctx, c.httpClient, c.baseURL+"/v1/cryptocurrency/map", query, c.header, &body); err != nil {
		return nil, fmt.Errorf("cmc: map start=%d: %w", start, err)
	}
	return body.Data, nil
}

// QuotesLatest returns the circulating supply of the coin with the given id.
// A nil result means CoinMarketCap has no supply for it.
func (c *Client) QuotesLatest(ctx context.Context, id int) (*float64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.quoteTimeout)
	defer cancel()

	key := strconv.Itoa(id)
	query := url.Values{}
	query.Set("id", key)
	query.Set("convert", "USD")

	var body struct {
		Data map[string]struct {
			ID                int      `json:"id"`
			Symbol            string   `json:"symbol"`
			CirculatingSupply *float64 `json:"circulating_supply"`
		} `json:"data"`
	}
	if err := httpx.GetJSON(ctx, c.httpClient, c.baseURL+"/v1/cryptocurrency/quotes/latest", query, c.header, &body); err != nil {
		return nil, fmt.Errorf("cmc: quotes id=%d: %w", id, err)
	}
	return body.Data[key].CirculatingSupply, nil
}
