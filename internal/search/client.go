// Package search queries the people-search site through the scraping proxy
// and returns person-detail links and pages.
package search

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/postal-enrich/internal/resilience"
	"github.com/sells-group/postal-enrich/pkg/scrapeops"
)

// DefaultBaseURL is the people-search site.
const DefaultBaseURL = "https://www.truepeoplesearch.com"

const (
	cardSelector   = "div.card-summary"
	detailLinkAttr = "data-detail-link"
	maxErrorBody   = 512
)

// Client fetches search results and detail pages.
type Client struct {
	proxy   scrapeops.Client
	baseURL string
	policy  resilience.Policy
	log     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the people-search site root.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithPolicy sets the retry policy around each fetch.
func WithPolicy(p resilience.Policy) Option {
	return func(c *Client) { c.policy = p }
}

// NewClient creates a search client that routes every fetch through proxy.
func NewClient(proxy scrapeops.Client, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		proxy:   proxy,
		baseURL: DefaultBaseURL,
		policy:  resilience.NewPolicy(3, 5*time.Second, logger),
		log:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the site root used to qualify detail links.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ResultsURL builds the results listing URL for a name and a synthesized
// "City District ZIP" address. Spaces encode as %20.
func (c *Client) ResultsURL(name, address string) string {
	return c.baseURL + "/results?name=" + escape(name) + "&citystatezip=" + escape(address)
}

func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// Search fetches the results listing and returns fully-qualified detail
// links in page order.
func (c *Client) Search(ctx context.Context, name, address string) ([]string, error) {
	target := c.ResultsURL(name, address)
	log := c.log.With(zap.String("url", target))
	log.Info("searching people")

	body, err := c.fetch(ctx, log, "search: results", target)
	if err != nil {
		return nil, err
	}

	links, err := ParseResultLinks(c.baseURL, body)
	if err != nil {
		return nil, err
	}
	log.Info("got search entries", zap.Int("count", len(links)))
	return links, nil
}

// Detail fetches and parses one person-detail page.
func (c *Client) Detail(ctx context.Context, link string) (*goquery.Document, error) {
	log := c.log.With(zap.String("url", link))
	body, err := c.fetch(ctx, log, "search: detail", link)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "search: parse detail page")
	}
	return doc, nil
}

func (c *Client) fetch(ctx context.Context, log *zap.Logger, op, target string) ([]byte, error) {
	return resilience.DoVal(ctx, c.policy.WithLogger(log), op, func(ctx context.Context) ([]byte, error) {
		resp, err := c.proxy.Get(ctx, target)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, resilience.NewTransientError(
				eris.Errorf("%s: status %d: %s", op, resp.StatusCode, truncate(resp.Body, maxErrorBody)),
				resp.StatusCode,
			)
		}
		return resp.Body, nil
	})
}

// ParseResultLinks extracts the detail link of every result card, resolved
// against baseURL. Cards without a link are skipped.
func ParseResultLinks(baseURL string, body []byte) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, eris.Wrap(err, "search: parse base url")
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "search: parse results page")
	}

	links := []string{}
	doc.Find(cardSelector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr(detailLinkAttr)
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		links = append(links, base.ResolveReference(ref).String())
	})
	return links, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
