// Package browser drives Chrome over the DevTools Protocol with chromedp,
// either against a remote provider session or a locally launched headless
// browser.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// ErrPageClosed is returned by operations on a closed page.
var ErrPageClosed = errors.New("browser: page is closed")

// Page is a single browser tab.
type Page interface {
	// Navigate loads url and waits for the document body.
	Navigate(ctx context.Context, url string) error
	// TypeAndSubmit types text into the element matching selector and presses Enter.
	TypeAndSubmit(ctx context.Context, selector, text string) error
	// URL returns the current location.
	URL(ctx context.Context) (string, error)
	// Title returns the document title.
	Title(ctx context.Context) (string, error)
	// HTML returns the serialized document.
	HTML(ctx context.Context) (string, error)
	// Text returns the visible text of the first element matching selector.
	Text(ctx context.Context, selector string) (string, error)
	// PrintPDF renders the page as an A4 PDF with backgrounds.
	PrintPDF(ctx context.Context) ([]byte, error)
	// BlockResources fails every subsequent request of the given types.
	BlockResources(ctx context.Context, types ...network.ResourceType) error
	// WaitIdle pauses for d so client-side rendering can settle.
	WaitIdle(ctx context.Context, d time.Duration) error
	// Close disconnects from the tab. Remote tabs stay open in their session.
	Close() error
}

// AssetTypes are the subresource types blocked when only the document text
// is needed.
var AssetTypes = []network.ResourceType{
	network.ResourceTypeScript,
	network.ResourceTypeStylesheet,
	network.ResourceTypeImage,
	network.ResourceTypeMedia,
	network.ResourceTypeFont,
}

// A4 paper size in inches.
const (
	a4Width  = 8.27
	a4Height = 11.69
)

type chromePage struct {
	tabCtx  context.Context
	cancel  context.CancelFunc
	timeout time.Duration

	closeOnce sync.Once
}

var _ Page = (*chromePage)(nil)

func newChromePage(tabCtx context.Context, cancel context.CancelFunc, timeout time.Duration) *chromePage {
	return &chromePage{tabCtx: tabCtx, cancel: cancel, timeout: timeout}
}

// run executes actions on the tab, bounded by the page timeout and by ctx.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	if p.tabCtx.Err() != nil {
		return ErrPageClosed
	}
	runCtx, cancel := context.WithTimeout(p.tabCtx, p.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	if err := p.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

func (p *chromePage) TypeAndSubmit(ctx context.Context, selector, text string) error {
	if err := p.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text+kb.Enter, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("type into %s: %w", selector, err)
	}
	return nil
}

func (p *chromePage) URL(ctx context.Context) (string, error) {
	var loc string
	if err := p.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return loc, nil
}

func (p *chromePage) Title(ctx context.Context) (string, error) {
	var title string
	if err := p.run(ctx, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("read title: %w", err)
	}
	return title, nil
}

func (p *chromePage) HTML(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return html, nil
}

func (p *chromePage) Text(ctx context.Context, selector string) (string, error) {
	var text string
	if err := p.run(ctx, chromedp.Text(selector, &text, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read text of %s: %w", selector, err)
	}
	return text, nil
}

func (p *chromePage) PrintPDF(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		data, _, err := page.PrintToPDF().
			WithPrintBackground(true).
			WithPaperWidth(a4Width).
			WithPaperHeight(a4Height).
			Do(ctx)
		if err != nil {
			return err
		}
		buf = data
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("print to pdf: %w", err)
	}
	return buf, nil
}

func (p *chromePage) BlockResources(ctx context.Context, types ...network.ResourceType) error {
	if len(types) == 0 {
		return nil
	}

	blocked := make(map[network.ResourceType]bool, len(types))
	patterns := make([]*fetch.RequestPattern, 0, len(types))
	for _, t := range types {
		blocked[t] = true
		patterns = append(patterns, &fetch.RequestPattern{
			URLPattern:   "*",
			ResourceType: t,
			RequestStage: fetch.RequestStageRequest,
		})
	}

	chromedp.ListenTarget(p.tabCtx, func(ev interface{}) {
		paused, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}
		// Listeners must not block the event loop.
		go func() {
			c := chromedp.FromContext(p.tabCtx)
			if c == nil || c.Target == nil {
				return
			}
			execCtx := cdp.WithExecutor(p.tabCtx, c.Target)
			if blocked[paused.ResourceType] {
				_ = fetch.FailRequest(paused.RequestID, network.ErrorReasonBlockedByClient).Do(execCtx)
				return
			}
			_ = fetch.ContinueRequest(paused.RequestID).Do(execCtx)
		}()
	})

	if err := p.run(ctx, fetch.Enable().WithPatterns(patterns)); err != nil {
		return fmt.Errorf("enable request interception: %w", err)
	}
	return nil
}

func (p *chromePage) WaitIdle(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.tabCtx.Done():
		return ErrPageClosed
	case <-timer.C:
		return nil
	}
}

func (p *chromePage) Close() error {
	p.closeOnce.Do(p.cancel)
	return nil
}
