package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/postal-enrich/internal/match"
	"github.com/sells-group/postal-enrich/internal/model"
)

const detailPage = `<html><body>
<div class="row pl-md-1">
  <div class="col">
    <a data-link-to-more="address" href="/find/address/1">
      <span>123 Main St</span>
      <span>Springfield, IL 62701</span>
    </a>
  </div>
</div>
<div class="row pl-md-1">
  <div class="col"><a data-link-to-more="address"><span>9 Elm Rd</span> <span>Austin, TX 78701</span></a></div>
</div>
<div class="row pl-md-1">
  <div class="col"><div class="h5">Email Addresses</div></div>
  <div class="col">jane.doe@gmail.com</div>
  <div class="col">jdoe@corp.example.com</div>
  <div class="col">Jane@Yahoo.COM</div>
  <div class="col">jane.doe@gmail.com</div>
  <div class="col">fake@gmail.com.evil.net</div>
</div>
</body></html>`

func doc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return d
}

func newExtractor() *Extractor {
	return New(match.New(90, zap.NewNop()), nil, zap.NewNop())
}

func TestListedAddresses(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{
		"123 Main St Springfield, IL 62701",
		"9 Elm Rd Austin, TX 78701",
	}, ListedAddresses(doc(t, detailPage)))
}

func TestEmails(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{
		"Email Addresses",
		"jane.doe@gmail.com",
		"jdoe@corp.example.com",
		"Jane@Yahoo.COM",
		"jane.doe@gmail.com",
		"fake@gmail.com.evil.net",
	}, Emails(doc(t, detailPage)))
}

func TestEmails_NoSection(t *testing.T) {
	t.Parallel()
	assert.Empty(t, Emails(doc(t, `<div class="row pl-md-1"><div class="col">Phone Numbers</div></div>`)))
}

func TestExtract_Matched(t *testing.T) {
	t.Parallel()

	out := newExtractor().Extract(doc(t, detailPage), "Springfield IL 62701")
	assert.Equal(t, model.OutcomeMatched, out.Kind)
	assert.Equal(t, []string{"jane.doe@gmail.com", "Jane@Yahoo.COM"}, out.Emails)
}

func TestExtract_MatchedNoAllowedEmail(t *testing.T) {
	t.Parallel()

	html := `<a data-link-to-more="address"><span>Springfield IL 62701</span></a>
<div class="row pl-md-1"><div class="col">Email Addresses</div><div class="col">x@corp.example.com</div></div>`
	out := newExtractor().Extract(doc(t, html), "Springfield IL 62701")

	assert.Equal(t, model.OutcomeMatched, out.Kind)
	assert.NotNil(t, out.Emails)
	assert.Empty(t, out.Emails)
	assert.False(t, out.HasEmails())
}

func TestExtract_WhitespaceCollapsedBeforeMatching(t *testing.T) {
	t.Parallel()

	raw := "123 main st springfield,\n                il 62701"
	html := `<a data-link-to-more="address"><span>` + raw + `</span></a>
<div class="row pl-md-1"><div class="col">Email Addresses</div><div class="col">jane@gmail.com</div></div>`
	d := doc(t, html)

	assert.Equal(t, []string{"123 main st springfield, il 62701"}, ListedAddresses(d))
	// The raw page text would be rejected; the collapsed text is accepted.
	assert.Equal(t, 65, match.PartialRatio(raw, "springfield il 62701"))
	assert.Equal(t, 95, match.PartialRatio("123 main st springfield, il 62701", "springfield il 62701"))

	out := newExtractor().Extract(d, "Springfield IL 62701")
	assert.Equal(t, model.OutcomeMatched, out.Kind)
	assert.Equal(t, []string{"jane@gmail.com"}, out.Emails)
}

func TestExtract_NoMatchNeverReturnsEmails(t *testing.T) {
	t.Parallel()

	out := newExtractor().Extract(doc(t, detailPage), "Portland OR 97201")
	assert.Equal(t, model.OutcomeNoMatch, out.Kind)
	assert.Nil(t, out.Emails)
}

func TestExtract_NoAddresses(t *testing.T) {
	t.Parallel()

	out := newExtractor().Extract(doc(t, `<html><body></body></html>`), "Springfield IL 62701")
	assert.Equal(t, model.OutcomeNoMatch, out.Kind)
}

func TestAllowed(t *testing.T) {
	t.Parallel()

	e := New(match.New(90, nil), []string{"@Gmail.com", " live.com", ""}, nil)
	assert.True(t, e.Allowed("a@gmail.com"))
	assert.True(t, e.Allowed("A@GMAIL.COM"))
	assert.True(t, e.Allowed("b@live.com"))
	assert.False(t, e.Allowed("c@yahoo.com"))
	assert.False(t, e.Allowed("d@notgmail.com"))
	assert.False(t, e.Allowed("gmail.com"))
}
