// Package extract verifies a person-detail page against the input address
// and pulls allow-listed emails from it.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/sells-group/postal-enrich/internal/match"
	"github.com/sells-group/postal-enrich/internal/model"
	"github.com/sells-group/postal-enrich/pkg/textnorm"
)

// DefaultAllowedDomains are the consumer email providers whose addresses are
// kept.
var DefaultAllowedDomains = []string{
	"yahoo.com",
	"hotmail.com",
	"gmail.com",
	"aol.com",
	"msn.com",
	"outlook.com",
	"live.com",
}

const (
	addressSelector = `[data-link-to-more="address"]`
	sectionSelector = ".row.pl-md-1"
	emailSelector   = ".col"
	emailHeading    = "Email Addresses"
)

// Extractor runs verify-then-extract over a detail page.
type Extractor struct {
	matcher *match.Matcher
	suffix  []string
	log     *zap.Logger
}

// New creates an Extractor. An empty domain list uses DefaultAllowedDomains.
func New(matcher *match.Matcher, allowedDomains []string, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(allowedDomains) == 0 {
		allowedDomains = DefaultAllowedDomains
	}
	suffix := make([]string, 0, len(allowedDomains))
	for _, d := range allowedDomains {
		d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "@"))
		if d != "" {
			suffix = append(suffix, "@"+d)
		}
	}
	return &Extractor{matcher: matcher, suffix: suffix, log: logger}
}

// Extract checks the listed addresses on doc against source in page order.
// On the first match it returns Matched with the allow-listed emails of the
// page, which may be empty. With no matching address it returns NoMatch and
// never looks at the emails.
func (e *Extractor) Extract(doc *goquery.Document, source string) model.Outcome {
	for _, listed := range ListedAddresses(doc) {
		if _, ok := e.matcher.Match(listed, source); !ok {
			continue
		}
		emails := e.Filter(Emails(doc))
		e.log.Info("address verified", zap.String("listed", listed), zap.Strings("emails", emails))
		return model.Matched(emails)
	}
	return model.NoMatch()
}

// Allowed reports whether email ends in an allow-listed domain.
func (e *Extractor) Allowed(email string) bool {
	email = strings.ToLower(email)
	for _, s := range e.suffix {
		if strings.HasSuffix(email, s) {
			return true
		}
	}
	return false
}

// Filter keeps allow-listed emails in order, dropping repeats.
func (e *Extractor) Filter(emails []string) []string {
	out := []string{}
	seen := map[string]struct{}{}
	for _, email := range emails {
		if !e.Allowed(email) {
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}
	return out
}

// ListedAddresses returns each address block on the page as its spans joined
// by single spaces.
func ListedAddresses(doc *goquery.Document) []string {
	var out []string
	doc.Find(addressSelector).Each(func(_ int, s *goquery.Selection) {
		parts := s.Find("span").Map(func(_ int, span *goquery.Selection) string {
			return span.Text()
		})
		if addr := textnorm.Clean(strings.Join(parts, " ")); addr != "" {
			out = append(out, addr)
		}
	})
	return out
}

// Emails returns every entry of the first section headed "Email Addresses".
func Emails(doc *goquery.Document) []string {
	var out []string
	doc.Find(sectionSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.Contains(s.Text(), emailHeading) {
			return true
		}
		s.Find(emailSelector).Each(func(_ int, col *goquery.Selection) {
			if v := strings.TrimSpace(col.Text()); v != "" {
				out = append(out, v)
			}
		})
		return false
	})
	return out
}
