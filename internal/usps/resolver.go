// Package usps resolves a ZIP code to candidate "City District" labels by
// driving the USPS lookup page in a headless browser.
package usps

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/postal-enrich/internal/model"
	"github.com/sells-group/postal-enrich/internal/resilience"
	"github.com/sells-group/postal-enrich/pkg/browser"
)

// DefaultLookupURL is the city-by-ZIP lookup page.
const DefaultLookupURL = "https://tools.usps.com/zip-code-lookup.htm?citybyzipcode"

const (
	zipFieldID   = "tZip"
	submitID     = "cities-by-zip-code"
	defaultPanel = 20 * time.Second
)

// CityCache stores successful resolutions.
type CityCache interface {
	// GetCachedCities returns nil when the ZIP is not cached or expired.
	GetCachedCities(ctx context.Context, zip string) (*model.CityCache, error)
	SetCachedCities(ctx context.Context, zip string, cities []string, ttl time.Duration) error
}

// Resolver maps ZIP codes to city labels.
type Resolver struct {
	launcher     browser.Launcher
	lookupURL    string
	panelTimeout time.Duration
	policy       resilience.Policy
	cache        CityCache
	cacheTTL     time.Duration
	log          *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLookupURL overrides the lookup page.
func WithLookupURL(u string) Option {
	return func(r *Resolver) { r.lookupURL = u }
}

// WithPanelTimeout bounds the wait for the results panel.
func WithPanelTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.panelTimeout = d
		}
	}
}

// WithPolicy sets the retry policy around each lookup.
func WithPolicy(p resilience.Policy) Option {
	return func(r *Resolver) { r.policy = p }
}

// WithCache enables read-through caching. A non-positive ttl disables it.
func WithCache(c CityCache, ttl time.Duration) Option {
	return func(r *Resolver) {
		if ttl > 0 {
			r.cache = c
			r.cacheTTL = ttl
		}
	}
}

// NewResolver creates a Resolver that opens one browser session per lookup
// attempt.
func NewResolver(launcher browser.Launcher, logger *zap.Logger, opts ...Option) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Resolver{
		launcher:     launcher,
		lookupURL:    DefaultLookupURL,
		panelTimeout: defaultPanel,
		policy:       resilience.NewPolicy(3, 5*time.Second, logger),
		log:          logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the deduplicated city labels for zip. Exhausted retries
// are returned as a *resilience.ExhaustedError.
func (r *Resolver) Resolve(ctx context.Context, zip string) ([]string, error) {
	zip = model.NormalizeZIP(zip)
	log := r.log.With(zap.String("zip", zip))

	if cities, ok := r.cached(ctx, log, zip); ok {
		return cities, nil
	}

	log.Info("fetching cities for zip")
	cities, err := resilience.DoVal(ctx, r.policy.WithLogger(log), "usps: resolve "+zip,
		func(ctx context.Context) ([]string, error) {
			return r.lookupOnce(ctx, zip)
		})
	if err != nil {
		return nil, err
	}
	log.Info("found cities", zap.Strings("cities", cities))

	if r.cache != nil {
		if err := r.cache.SetCachedCities(ctx, zip, cities, r.cacheTTL); err != nil {
			log.Warn("usps: cache write failed", zap.Error(err))
		}
	}
	return cities, nil
}

func (r *Resolver) cached(ctx context.Context, log *zap.Logger, zip string) ([]string, bool) {
	if r.cache == nil {
		return nil, false
	}
	entry, err := r.cache.GetCachedCities(ctx, zip)
	if err != nil {
		log.Warn("usps: cache read failed", zap.Error(err))
		return nil, false
	}
	if entry == nil || len(entry.Cities) == 0 {
		return nil, false
	}
	log.Info("using cached cities", zap.Strings("cities", entry.Cities))
	return entry.Cities, true
}

func (r *Resolver) lookupOnce(ctx context.Context, zip string) ([]string, error) {
	sess, err := r.launcher.NewSession(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	if err := sess.Navigate(r.lookupURL); err != nil {
		return nil, err
	}
	if err := sess.Fill(zipFieldID, zip); err != nil {
		return nil, err
	}
	if err := sess.Click(submitID); err != nil {
		return nil, err
	}
	if err := sess.WaitVisible(recommendedSelector, r.panelTimeout); err != nil {
		return nil, resilience.NewTransientError(err, 0)
	}

	html, err := sess.PageSource()
	if err != nil {
		return nil, err
	}
	labels, err := ParseCities(html)
	if err != nil {
		return nil, err
	}
	return UniqueCities(labels), nil
}
