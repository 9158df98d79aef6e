// Package scrapeops provides a client for the ScrapeOps scraping proxy. The
// proxy fetches a target URL on our behalf and relays the response.
package scrapeops

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the proxy endpoint.
const DefaultBaseURL = "https://proxy.scrapeops.io/v1/"

// Client fetches pages through the proxy.
type Client interface {
	// Get fetches targetURL through the proxy. A non-200 status is not an
	// error; callers decide what to do with it.
	Get(ctx context.Context, targetURL string) (*Response, error)
}

// Response is the relayed response.
type Response struct {
	StatusCode int
	Body       []byte
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom proxy endpoint (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithCountry sets the proxy exit country.
func WithCountry(country string) Option {
	return func(c *httpClient) {
		c.country = country
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit caps outgoing requests per second. Zero or negative means
// unlimited.
func WithRateLimit(perSecond float64) Option {
	return func(c *httpClient) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	country string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a proxy client for apiKey.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		country: "us",
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestURL builds the proxy URL for targetURL.
func RequestURL(baseURL, apiKey, targetURL, country string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", eris.Wrap(err, "scrapeops: parse base url")
	}
	q := u.Query()
	q.Set("api_key", apiKey)
	q.Set("url", targetURL)
	if country != "" {
		q.Set("country", country)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *httpClient) Get(ctx context.Context, targetURL string) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "scrapeops: rate limit wait")
		}
	}

	reqURL, err := RequestURL(c.baseURL, c.apiKey, targetURL, c.country)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "scrapeops: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "scrapeops: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "scrapeops: read response body")
	}

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}
