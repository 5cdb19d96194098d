// Package browser drives a Chromium session through login and course navigation while the
// credential harvester watches its traffic.
package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ondemand-tools/ondemand-dl/internal/apperrors"
	"github.com/ondemand-tools/ondemand-dl/internal/config"
	"github.com/ondemand-tools/ondemand-dl/internal/credentials"
	"github.com/spf13/afero"
)

const (
	slowMotion   = 25 * time.Millisecond
	viewportSize = 1080
)

// Session is a launched browser with one page whose requests are all routed through a
// credentials.Harvester.
type Session struct {
	launcher  *launcher.Launcher
	browser   *rod.Browser
	page      *rod.Page
	router    *rod.HijackRouter
	harvester *credentials.Harvester
	timeout   time.Duration
}

// Launch starts the browser, opens a page with network interception enabled and starts
// feeding its requests to a new harvester.
func Launch(ctx context.Context, cfg *config.Config) (*Session, error) {
	logger := config.GetLogger()

	bin, err := ResolveExecutable(afero.NewOsFs(), cfg.Browser)
	if err != nil {
		return nil, err
	}

	logger.Info().Str("browser", bin).Bool("headful", cfg.Headful).Msg("Starting browser")
	l := launcher.New().
		Context(ctx).
		Bin(bin).
		Headless(!cfg.Headful).
		Set("enable-features", "NetworkService")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	s := &Session{launcher: l, timeout: cfg.Timeout()}
	s.browser = rod.New().Context(ctx).ControlURL(controlURL).SlowMotion(slowMotion)
	if err := s.browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	if err := s.setupPage(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) setupPage(ctx context.Context) error {
	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}
	s.page = page

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{Width: viewportSize, Height: viewportSize}); err != nil {
		return fmt.Errorf("set viewport: %w", err)
	}
	if err := (proto.NetworkEnable{}).Call(page); err != nil {
		return fmt.Errorf("enable network domain: %w", err)
	}
	if err := (proto.NetworkSetBypassServiceWorker{Bypass: true}).Call(page); err != nil {
		return fmt.Errorf("bypass service worker: %w", err)
	}
	if err := (proto.NetworkSetCacheDisabled{CacheDisabled: true}).Call(page); err != nil {
		return fmt.Errorf("disable cache: %w", err)
	}

	fetchClient := &http.Client{Timeout: s.timeout}
	s.harvester = credentials.NewHarvester(NewBundleFetcher(fetchClient), PatchClientBundle)

	s.router = page.HijackRequests()
	err = s.router.Add("*", "", func(h *rod.Hijack) {
		logger := config.GetLogger()
		req := newHijackedRequest(h, cookieLine(page))
		h.OnError = func(err error) {
			logger.Error().Err(&apperrors.InterceptionError{URL: req.URL(), Err: err}).Msg("Intercepted request left unresolved")
		}
		if err := s.harvester.Handle(ctx, req); err != nil {
			logger.Error().Err(err).Msg("Interception failed")
		}
	})
	if err != nil {
		return fmt.Errorf("install request hijack: %w", err)
	}
	go s.router.Run()
	return nil
}

// Harvester returns the harvester watching this session's traffic.
func (s *Session) Harvester() *credentials.Harvester {
	return s.harvester
}

// step runs fn against the page with the per-request timeout applied.
func (s *Session) step(ctx context.Context, name string, fn func(p *rod.Page) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	logger := config.GetLogger()
	logger.Info().Msg(name)
	if err := fn(s.page.Context(ctx)); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Close stops interception and shuts the browser down.
func (s *Session) Close() error {
	var errs []error
	if s.router != nil {
		errs = append(errs, s.router.Stop())
	}
	if s.browser != nil {
		errs = append(errs, s.browser.Close())
	}
	if s.launcher != nil {
		s.launcher.Kill()
	}
	return errors.Join(errs...)
}
