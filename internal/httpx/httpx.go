package httpx

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net"
    "net/http"
    "net/url"
    "time"
)

// ErrRateLimited is returned (wrapped in *StatusError) when an upstream answers 429.
var ErrRateLimited = errors.New("rate limited")

// Doer is the subset of *http.Client used by the upstream clients.
//
//go:generate mockgen -package=httpxmock -destination=httpxmock/mock_doer.go -source=httpx.go Doer
type Doer interface {
    Do(req *http.Request) (*http.Response, error)
}

// Client is a small wrapper around http.Client with sane defaults.
type Client struct {
    HTTP      *http.Client
    UserAgent string
    Headers   map[string]string
}

func New(timeout time.Duration) *Client {
    transport := &http.Transport{
        Proxy: http.ProxyFromEnvironment,
        DialContext: (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
        MaxIdleConns:          100,
        MaxIdleConnsPerHost:   20,
        ForceAttemptHTTP2:     true,
        IdleConnTimeout:       90 * time.Second,
        TLSHandshakeTimeout:   5 * time.Second,
        ExpectContinueTimeout: 1 * time.Second,
    }
    return &Client{HTTP: &http.Client{Timeout: timeout, Transport: transport}, UserAgent: "oi-tracker/1.0"}
}

// Do sets the default user agent and headers, then sends req.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
    if c.UserAgent != "" && req.Header.Get("User-Agent") == "" {
        req.Header.Set("User-Agent", c.UserAgent)
    }
    for k, v := range c.Headers {
        if req.Header.Get(k) == "" {
            req.Header.Set(k, v)
        }
    }
    return c.HTTP.Do(req)
}

// StatusError reports a non-2xx upstream answer.
type StatusError struct {
    URL        string
    StatusCode int
    Body       string
}

func (e *StatusError) Error() string {
    return fmt.Sprintf("GET %s -> %d: %s", e.URL, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
    if e.StatusCode == http.StatusTooManyRequests {
        return ErrRateLimited
    }
    return nil
}

// GetJSON issues a GET for base+"?"+query and decodes a 2xx body into out.
// Non-2xx answers are returned as *StatusError with at most 2KiB of body.
func GetJSON(ctx context.Context, c Doer, base string, query url.Values, header http.Header, out any) error {
    u := base
    if len(query) > 0 {
        u += "?" + query.Encode()
    }
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
    if err != nil {
        return fmt.Errorf("creating request: %w", err)
    }
    for k, vs := range header {
        for _, v := range vs {
            req.Header.Add(k, v)
        }
    }
    req.Header.Set("Accept", "application/json")

    resp, err := c.Do(req)
    if err != nil {
        return fmt.Errorf("performing request: %w", err)
    }
    defer resp.Body.Close()

    if resp.StatusCode < 200 || resp.StatusCode >= 300 {
        b, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
        return &StatusError{URL: base, StatusCode: resp.StatusCode, Body: string(b)}
    }
    if out == nil {
        return nil
    }
    if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
        return fmt.Errorf("decoding response: %w", err)
    }
    return nil
}
