// Package enrich turns input records into output rows: ZIP resolution, one
// search per city candidate, address verification and email extraction.
package enrich

import (
	"context"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/sells-group/postal-enrich/internal/model"
)

// Searcher finds detail links for a name and address and fetches them.
type Searcher interface {
	Search(ctx context.Context, name, address string) ([]string, error)
	Detail(ctx context.Context, link string) (*goquery.Document, error)
}

// Verifier runs verify-then-extract on one detail page.
type Verifier interface {
	Extract(doc *goquery.Document, source string) model.Outcome
}

// Manager finds emails for one name and address.
type Manager struct {
	search   Searcher
	verifier Verifier
	log      *zap.Logger
}

// NewManager creates a Manager.
func NewManager(search Searcher, verifier Verifier, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{search: search, verifier: verifier, log: logger}
}

// Enrich searches for name at address and walks the detail links in page
// order, stopping at the first page that verifies and yields emails.
//
// It returns Failed when a fetch exhausts its retries, Matched with emails
// on success, Matched with no emails when some page verified but listed no
// allow-listed address, and NoMatch otherwise.
func (m *Manager) Enrich(ctx context.Context, name, address string) model.Outcome {
	log := m.log.With(zap.String("name", name), zap.String("address", address))

	links, err := m.search.Search(ctx, name, address)
	if err != nil {
		log.Error("search failed", zap.Error(err))
		return model.Failed(err)
	}

	verified := false
	for _, link := range links {
		doc, err := m.search.Detail(ctx, link)
		if err != nil {
			log.Error("detail fetch failed", zap.String("url", link), zap.Error(err))
			return model.Failed(err)
		}

		out := m.verifier.Extract(doc, address)
		if out.HasEmails() {
			log.Info("got emails", zap.String("url", link), zap.Strings("emails", out.Emails))
			return out
		}
		if out.Kind == model.OutcomeMatched {
			verified = true
		}
	}

	log.Error("got no emails", zap.Int("links", len(links)), zap.Bool("verified", verified))
	if verified {
		return model.Matched([]string{})
	}
	return model.NoMatch()
}
