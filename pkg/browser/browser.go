// Package browser drives a headless Chrome instance for pages that only
// render their data after client-side interaction.
package browser

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
)

// Launcher starts browser sessions.
type Launcher interface {
	// NewSession starts a browser bound to ctx. The caller must Close it.
	NewSession(ctx context.Context) (Session, error)
}

// Session is one browser tab. Every call is bound to the context the
// session was created with.
type Session interface {
	Navigate(url string) error
	// Fill types value into the element with the given id.
	Fill(id, value string) error
	// Click clicks the element with the given id.
	Click(id string) error
	// WaitVisible blocks until selector is visible or timeout elapses.
	WaitVisible(selector string, timeout time.Duration) error
	// PageSource returns the rendered document's outer HTML.
	PageSource() (string, error)
	Close()
}

// Options configures the Chrome process.
type Options struct {
	Headless  bool
	ExecPath  string
	UserAgent string
}

// ChromeLauncher starts a fresh Chrome process per session.
type ChromeLauncher struct {
	opts Options
}

var _ Launcher = (*ChromeLauncher)(nil)

// NewLauncher returns a launcher for opts.
func NewLauncher(opts Options) *ChromeLauncher {
	return &ChromeLauncher{opts: opts}
}

func (l *ChromeLauncher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if l.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.opts.ExecPath))
	}
	if l.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(l.opts.UserAgent))
	}
	return opts
}

// NewSession launches Chrome and opens a tab.
func (l *ChromeLauncher) NewSession(ctx context.Context) (Session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, l.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// An empty Run starts the browser so launch failures surface here.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, eris.Wrap(err, "browser: start chrome")
	}

	return &chromeSession{
		ctx: browserCtx,
		cancel: func() {
			browserCancel()
			allocCancel()
		},
	}, nil
}

type chromeSession struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func (s *chromeSession) Navigate(url string) error {
	if err := chromedp.Run(s.ctx, chromedp.Navigate(url)); err != nil {
		return eris.Wrapf(err, "browser: navigate %s", url)
	}
	return nil
}

func (s *chromeSession) Fill(id, value string) error {
	if err := chromedp.Run(s.ctx, chromedp.SendKeys("#"+id, value, chromedp.ByQuery)); err != nil {
		return eris.Wrapf(err, "browser: fill #%s", id)
	}
	return nil
}

func (s *chromeSession) Click(id string) error {
	if err := chromedp.Run(s.ctx, chromedp.Click("#"+id, chromedp.ByQuery)); err != nil {
		return eris.Wrapf(err, "browser: click #%s", id)
	}
	return nil
}

func (s *chromeSession) WaitVisible(selector string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return eris.Wrapf(err, "browser: wait for %s", selector)
	}
	return nil
}

func (s *chromeSession) PageSource() (string, error) {
	var html string
	if err := chromedp.Run(s.ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", eris.Wrap(err, "browser: read page source")
	}
	return html, nil
}

func (s *chromeSession) Close() {
	s.cancel()
}
