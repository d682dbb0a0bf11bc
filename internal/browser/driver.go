package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// Config configures the chromedp driver.
type Config struct {
	// Headless runs locally launched browsers without a window.
	Headless bool
	// ExecPath overrides the local Chrome executable.
	ExecPath string
	// ActionTimeout bounds every page operation.
	ActionTimeout time.Duration
	// WindowWidth and WindowHeight size locally launched browsers.
	WindowWidth  int
	WindowHeight int
}

// DefaultConfig returns a Config for headless local browsers.
func DefaultConfig() Config {
	return Config{
		Headless:      true,
		ActionTimeout: 60 * time.Second,
		WindowWidth:   1024,
		WindowHeight:  768,
	}
}

// Connector attaches to a browser listening on a DevTools websocket.
type Connector interface {
	Connect(ctx context.Context, wsURL, targetID string) (Page, error)
}

// Launcher starts a local browser.
type Launcher interface {
	Launch(ctx context.Context) (Page, error)
}

// Driver creates chromedp pages. It implements Connector and Launcher.
type Driver struct {
	cfg    Config
	logger zerolog.Logger
}

var (
	_ Connector = (*Driver)(nil)
	_ Launcher  = (*Driver)(nil)
)

// NewDriver creates a driver, filling unset fields from DefaultConfig.
func NewDriver(cfg Config, logger zerolog.Logger) *Driver {
	def := DefaultConfig()
	if cfg.ActionTimeout <= 0 {
		cfg.ActionTimeout = def.ActionTimeout
	}
	if cfg.WindowWidth <= 0 || cfg.WindowHeight <= 0 {
		cfg.WindowWidth, cfg.WindowHeight = def.WindowWidth, def.WindowHeight
	}
	return &Driver{
		cfg:    cfg,
		logger: logger.With().Str("component", "browser").Logger(),
	}
}

// Connect attaches to the tab targetID of the browser at wsURL. An empty
// targetID opens a new tab. Closing the returned page detaches and drops the
// connection; the remote tab stays open for the next attach.
func (d *Driver) Connect(ctx context.Context, wsURL, targetID string) (Page, error) {
	allocCtx, allocCancel := chromedp.NewRemoteAllocator(ctx, wsURL, chromedp.NoModifyURL)

	var opts []chromedp.ContextOption
	if targetID != "" {
		opts = append(opts, chromedp.WithTargetID(target.ID(targetID)))
	}
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, append(opts, d.logOptions()...)...)

	cancel := func() {
		detachRemote(tabCtx)
		tabCancel()
		allocCancel()
	}
	if err := d.establish(ctx, tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("connect to remote browser: %w", err)
	}

	d.logger.Debug().Str("target_id", attachedTarget(tabCtx)).Msg("attached to remote browser")
	return newChromePage(tabCtx, cancel, d.cfg.ActionTimeout), nil
}

// Launch starts a local Chrome and returns its first tab. Closing the page
// terminates the browser process.
func (d *Driver) Launch(ctx context.Context) (Page, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, d.execOptions()...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, d.logOptions()...)

	cancel := func() {
		tabCancel()
		allocCancel()
	}
	if err := d.establish(ctx, tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("launch local browser: %w", err)
	}

	d.logger.Debug().Bool("headless", d.cfg.Headless).Msg("launched local browser")
	return newChromePage(tabCtx, cancel, d.cfg.ActionTimeout), nil
}

// detachRemote ends the DevTools session on the tab and forgets the target.
// chromedp closes every tab of a remote allocator whose context is cancelled
// while it still holds a target, so this must run before the cancel.
func detachRemote(tabCtx context.Context) {
	c := chromedp.FromContext(tabCtx)
	if c == nil || c.Browser == nil || c.Target == nil {
		return
	}
	if id := c.Target.SessionID; id != "" {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_ = target.DetachFromTarget().WithSessionID(id).Do(cdp.WithExecutor(ctx, c.Browser))
		cancel()
	}
	c.Target = nil
}

func attachedTarget(tabCtx context.Context) string {
	if c := chromedp.FromContext(tabCtx); c != nil && c.Target != nil {
		return string(c.Target.TargetID)
	}
	return ""
}

// establish runs an empty action list, which allocates the browser and
// attaches the tab, bounded by the action timeout.
func (d *Driver) establish(ctx context.Context, tabCtx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(tabCtx) }()

	timer := time.NewTimer(d.cfg.ActionTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("timed out after %s", d.cfg.ActionTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Driver) execOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("headless", d.cfg.Headless),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.WindowSize(d.cfg.WindowWidth, d.cfg.WindowHeight),
	)
	if d.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(d.cfg.ExecPath))
	}
	return opts
}

func (d *Driver) logOptions() []chromedp.ContextOption {
	return []chromedp.ContextOption{
		chromedp.WithLogf(func(format string, args ...interface{}) {
			d.logger.Debug().Msgf(format, args...)
		}),
		chromedp.WithErrorf(func(format string, args ...interface{}) {
			d.logger.Warn().Msgf(format, args...)
		}),
	}
}
