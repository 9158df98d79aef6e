package usps

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/postal-enrich/internal/resilience"
	"github.com/sells-group/postal-enrich/pkg/textnorm"
)

const (
	recommendedSelector = ".recommended-cities"
	otherSelector       = ".other-city-names"
	labelSelector       = ".row-detail-wrapper"
)

// ParseCities extracts city labels from a rendered lookup page, recommended
// labels first, then the other accepted names. A page without the
// recommended panel is an error; the other-names panel is optional.
func ParseCities(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "usps: parse page")
	}

	recommended := doc.Find(recommendedSelector).First()
	if recommended.Length() == 0 {
		return nil, resilience.NewTransientError(eris.New("usps: recommended cities panel missing"), 0)
	}

	labels := panelLabels(recommended)
	labels = append(labels, panelLabels(doc.Find(otherSelector).First())...)
	return labels, nil
}

func panelLabels(panel *goquery.Selection) []string {
	var out []string
	panel.Find(labelSelector).Each(func(_ int, s *goquery.Selection) {
		if label := textnorm.Clean(s.Text()); label != "" {
			out = append(out, label)
		}
	})
	return out
}

// UniqueCities keeps the first label for each distinct 3-character prefix,
// preserving order. Short or similar city names can over-merge; that is the
// accepted behavior.
func UniqueCities(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		p := prefix(label, 3)
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, label)
	}
	return out
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
