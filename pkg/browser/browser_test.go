package browser

import (
	"testing"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
)

func TestAllocatorOptions(t *testing.T) {
	t.Parallel()

	base := len(chromedp.DefaultExecAllocatorOptions)

	l := NewLauncher(Options{Headless: true})
	assert.Len(t, l.allocatorOptions(), base+4)

	l = NewLauncher(Options{Headless: true, ExecPath: "/usr/bin/chromium", UserAgent: "postal-enrich"})
	assert.Len(t, l.allocatorOptions(), base+6)
}

func TestAllocatorOptions_DoesNotMutateDefaults(t *testing.T) {
	t.Parallel()

	before := len(chromedp.DefaultExecAllocatorOptions)
	_ = NewLauncher(Options{ExecPath: "/x"}).allocatorOptions()
	assert.Equal(t, before, len(chromedp.DefaultExecAllocatorOptions))
}
