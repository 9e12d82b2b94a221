// Package browser drives a Chromium instance through go-rod.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"bulk-sender/internal/config"
	"bulk-sender/internal/domain"
	"bulk-sender/internal/ports"
)

// Launcher implements ports.BrowserLauncher.
type Launcher struct {
	cfg    config.BrowserConfig
	logger *slog.Logger
}

// NewLauncher creates a new rod launcher.
func NewLauncher(cfg config.BrowserConfig, logger *slog.Logger) *Launcher {
	return &Launcher{
		cfg:    cfg,
		logger: logger,
	}
}

// Launch starts a browser and opens one page. The browser outlives ctx so
// it can still be closed after the run is cancelled.
func (l *Launcher) Launch(ctx context.Context) (ports.BrowserSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lnch := launcher.New().Headless(l.cfg.Headless)
	if l.cfg.Bin != "" {
		lnch = lnch.Bin(l.cfg.Bin)
	}
	if l.cfg.UserDataDir != "" {
		lnch = lnch.UserDataDir(l.cfg.UserDataDir)
	}

	controlURL, err := lnch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		lnch.Kill()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		lnch.Kill()
		return nil, fmt.Errorf("open page: %w", err)
	}

	l.logger.Debug("browser launched", "control_url", controlURL, "headless", l.cfg.Headless)

	return &Session{
		browser:  browser,
		page:     page,
		launcher: lnch,
		logger:   l.logger,
	}, nil
}

// Session implements ports.BrowserSession over a single page.
type Session struct {
	browser  *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher
	logger   *slog.Logger

	closeOnce sync.Once
	closed    atomic.Bool
	closeErr  error
}

func (s *Session) isClosed() bool {
	return s.closed.Load()
}

// Navigate loads url without waiting for the page to settle.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if s.isClosed() {
		return domain.ErrSessionClosed
	}
	return s.mapErr(ctx, s.page.Context(ctx).Navigate(url))
}

// WaitPresent waits for an XPath match to exist in the DOM.
func (s *Session) WaitPresent(ctx context.Context, locator string, timeout time.Duration) error {
	if s.isClosed() {
		return domain.ErrSessionClosed
	}
	page := s.page.Context(ctx).Timeout(timeout)
	defer page.CancelTimeout()

	_, err := page.ElementX(locator)
	return s.mapErr(ctx, err)
}

// WaitClickable waits for an XPath match that is visible and not covered.
func (s *Session) WaitClickable(ctx context.Context, locator string, timeout time.Duration) (ports.Clickable, error) {
	if s.isClosed() {
		return nil, domain.ErrSessionClosed
	}
	page := s.page.Context(ctx).Timeout(timeout)
	defer page.CancelTimeout()

	el, err := page.ElementX(locator)
	if err != nil {
		return nil, s.mapErr(ctx, err)
	}
	if _, err := el.WaitInteractable(); err != nil {
		return nil, s.mapErr(ctx, err)
	}

	return &element{el: el, session: s}, nil
}

// Click clicks an XPath match if one exists right now.
func (s *Session) Click(ctx context.Context, locator string) error {
	if s.isClosed() {
		return domain.ErrSessionClosed
	}
	has, el, err := s.page.Context(ctx).HasX(locator)
	if err != nil {
		return s.mapErr(ctx, err)
	}
	if !has {
		return fmt.Errorf("click %s: %w", locator, domain.ErrNotFound)
	}
	return s.mapErr(ctx, el.Context(ctx).Click(proto.InputMouseButtonLeft, 1))
}

// Close closes the browser. Later calls return the first result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)

		if err := s.browser.Close(); err != nil {
			s.closeErr = fmt.Errorf("close browser: %w", err)
		}
		s.launcher.Kill()
		s.logger.Debug("browser closed")
	})
	return s.closeErr
}

// mapErr turns rod's context errors into the port's error contract.
func (s *Session) mapErr(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if s.isClosed() {
		return fmt.Errorf("%w: %v", domain.ErrSessionClosed, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	return err
}

type element struct {
	el      *rod.Element
	session *Session
}

// Click implements ports.Clickable.
func (e *element) Click(ctx context.Context) error {
	if e.session.isClosed() {
		return domain.ErrSessionClosed
	}
	return e.session.mapErr(ctx, e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1))
}
