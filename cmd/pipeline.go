package main

import (
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/postal-enrich/internal/enrich"
	"github.com/sells-group/postal-enrich/internal/extract"
	"github.com/sells-group/postal-enrich/internal/match"
	"github.com/sells-group/postal-enrich/internal/resilience"
	"github.com/sells-group/postal-enrich/internal/search"
	"github.com/sells-group/postal-enrich/internal/usps"
	"github.com/sells-group/postal-enrich/pkg/browser"
	"github.com/sells-group/postal-enrich/pkg/scrapeops"
)

func retryPolicy(log *zap.Logger) resilience.Policy {
	return resilience.FromRetryConfig(cfg.Retry.MaxAttempts, cfg.Retry.IntervalSecs, log)
}

// newResolver builds the USPS resolver. A nil cache disables caching.
func newResolver(log *zap.Logger, cache usps.CityCache) *usps.Resolver {
	launcher := browser.NewLauncher(browser.Options{
		Headless: cfg.USPS.Headless,
		ExecPath: cfg.USPS.ExecPath,
	})
	opts := []usps.Option{
		usps.WithLookupURL(cfg.USPS.LookupURL),
		usps.WithPanelTimeout(time.Duration(cfg.USPS.PanelTimeoutSecs) * time.Second),
		usps.WithPolicy(retryPolicy(log)),
	}
	if cache != nil {
		opts = append(opts, usps.WithCache(cache, time.Duration(cfg.USPS.CacheTTLHours)*time.Hour))
	}
	return usps.NewResolver(launcher, log, opts...)
}

func newSearchClient(log *zap.Logger) *search.Client {
	proxy := scrapeops.NewClient(cfg.Proxy.Key,
		scrapeops.WithBaseURL(cfg.Proxy.BaseURL),
		scrapeops.WithCountry(cfg.Proxy.Country),
		scrapeops.WithTimeout(time.Duration(cfg.Proxy.TimeoutSecs)*time.Second),
		scrapeops.WithRateLimit(cfg.Proxy.RequestsPerSecond),
	)
	return search.NewClient(proxy, log,
		search.WithBaseURL(cfg.Search.BaseURL),
		search.WithPolicy(retryPolicy(log)),
	)
}

// newProcessor wires resolver, search, matcher and extractor into the
// per-record processor.
func newProcessor(log *zap.Logger, cache usps.CityCache) *enrich.Processor {
	matcher := match.New(cfg.Match.Threshold, log)
	extractor := extract.New(matcher, cfg.Search.AllowedDomains, log)
	manager := enrich.NewManager(newSearchClient(log), extractor, log)
	return enrich.NewProcessor(newResolver(log, cache), manager, log)
}
