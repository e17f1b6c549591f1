package coingecko

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
	baseURL = "https://api.coingecko.com/api/v3"

	defaultListTimeout = 30 * time.Second
	defaultCoinTimeout = 10 * time.Second
)

// Client is a client for the public CoinGecko v3 API.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient performs the requests.
	httpClient httpx.Doer
	// header contains additional headers to be sent with each request.
	header http.Header

	listTimeout time.Duration
	coinTimeout time.Duration
}

// ClientOption is a configuration option for the CoinGecko client.
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

// WithTimeouts sets the market list and coin call timeouts. Zero keeps the default.
func WithTimeouts(listTimeout, coinTimeout time.Duration) ClientOption {
	return func(c *Client) {
		if listTimeout > 0 {
			c.listTimeout = listTimeout
		}
		if coinTimeout > 0 {
			c.coinTimeout = coinTimeout
		}
	}
}

// NewClient creates a new CoinGecko client. key is an optional demo API key.
func NewClient(key string, options ...ClientOption) *Client {
	var c = &Client{
		baseURL:     baseURL,
		httpClient:  http.DefaultClient,
		header:      http.Header{},
		listTimeout: defaultListTimeout,
		coinTimeout: defaultCoinTimeout,
	}
	if key != "" {
		c.header.Set("x-cg-demo-api-key", key)
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Market is one row of /coins/markets.
type Market struct {
	ID            string `json:"id"`
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	MarketCapRank *int   `json:"market_cap_rank"`
}

// Markets returns one page of coins ordered by market cap, largest first. page is 1-based.
func (c *Client) Markets(ctx context.Context, page, perPage int) ([]Market, error) {
	ctx, cancel := context.WithTimeout(ctx, c.listTimeout)
	defer cancel()

	query := url.Values{}
	query.Set("vs_currency", "usd")
	query.Set("order", "market_cap_desc")
	query.Set("per_page", strconv.Itoa(perPage))
	query.Set("page", strconv.Itoa(page))
	query.Set("sparkline", "false")

	var out []Market
	if err := httpx.GetJSON(ctx, c.httpClient, c.baseURL+"/coins/markets", query, c.header, &out); err != nil {
		return nil, fmt.Errorf("coingecko: markets page=%d: %w", page, err)
	}
	return out, nil
}

// CirculatingSupply returns the circulating supply of coin id.
// A nil result means CoinGecko has no supply for it.
func (c *Client) CirculatingSupply(ctx context.Context, id string) (*float64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.coinTimeout)
	defer cancel()

	query := url.Values{}
	query.Set("localization", "false")
	query.Set("tickers", "false")
	query.Set("market_data", "true")
	query.Set("community_data", "false")
	query.Set("developer_data", "false")

	var body struct {
		ID         string `json:"id"`
		MarketData struct {
			CirculatingSupply *float64 `json:"circulating_supply"`
		} `json:"market_data"`
	}
	if err := httpx.GetJSON(ctx, c.httpClient, c.baseURL+"/coins/"+url.PathEscape(id), query, c.header, &body); err != nil {
		return nil, fmt.Errorf("coingecko: coin %s: %w", id, err)
	}
	return body.MarketData.CirculatingSupply, nil
}
