// Package browser manages the shared headless Chromium engine and the
// per-capture pages opened against it. The engine launches lazily on
// first use and lives for the rest of the process; every capture job
// gets its own page.
package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/anishtr4/screenshuter-sub001/internal/models"
)

// Manager owns the engine handle. Safe for concurrent use; page
// creation from multiple jobs multiplexes onto the one engine.
type Manager struct {
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	started bool
	// Launch failure is latched. Once the engine cannot come up, no
	// capture can ever be served, so later calls fail the same way
	// instead of relaunching.
	launchErr error
}

func New() *Manager {
	return &Manager{}
}

// Engine returns the shared browser, launching it on first call.
func (m *Manager) Engine() (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.launchErr != nil {
		return nil, m.launchErr
	}
	if m.started {
		return m.browser, nil
	}

	l := launcher.New().
		Headless(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("no-sandbox").
		Set("disable-gpu")

	u, err := l.Launch()
	if err != nil {
		m.launchErr = fmt.Errorf("failed to launch browser engine: %w", err)
		return nil, m.launchErr
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		m.launchErr = fmt.Errorf("failed to connect to browser engine: %w", err)
		return nil, m.launchErr
	}

	if err := b.IgnoreCertErrors(true); err != nil {
		log.Printf("Failed to set ignore cert errors: %v", err)
	}

	m.browser = b
	m.lnch = l
	m.started = true
	log.Println("Browser engine launched.")
	return b, nil
}

// NewPage opens a page configured per the capture options: stealth
// masking, cookie prevention, basic auth headers and custom cookies.
// Viewport sizing is left to the render flow because script injection
// may be ordered before or after it.
func (m *Manager) NewPage(ctx context.Context, opts *models.CaptureOptions) (*rod.Page, error) {
	b, err := m.Engine()
	if err != nil {
		return nil, err
	}

	var page *rod.Page
	if opts.StealthMode {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page = page.Context(ctx)

	if opts.CookiePrevention {
		if err := applyCookiePrevention(page); err != nil {
			page.Close()
			return nil, fmt.Errorf("failed to apply cookie prevention: %w", err)
		}
	}

	if opts.BasicAuth != nil {
		cred := base64.StdEncoding.EncodeToString(
			[]byte(opts.BasicAuth.User + ":" + opts.BasicAuth.Pass))
		if _, err := page.SetExtraHeaders([]string{"Authorization", "Basic " + cred}); err != nil {
			page.Close()
			return nil, fmt.Errorf("failed to set auth header: %w", err)
		}
	}

	if len(opts.CustomCookies) > 0 {
		params := make([]*proto.NetworkCookieParam, 0, len(opts.CustomCookies))
		for _, c := range opts.CustomCookies {
			params = append(params, &proto.NetworkCookieParam{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Secure:   c.Secure,
				HTTPOnly: c.HTTPOnly,
			})
		}
		if err := page.SetCookies(params); err != nil {
			page.Close()
			return nil, fmt.Errorf("failed to set cookies: %w", err)
		}
	}

	return page, nil
}

// ClosePage releases a page. Close errors are logged, not propagated;
// the capture result never depends on teardown.
func (m *Manager) ClosePage(page *rod.Page) {
	if page == nil {
		return
	}
	if err := page.Close(); err != nil {
		log.Printf("Failed to close page: %v", err)
	}
}

// SetViewport applies emulated device metrics to a page.
func SetViewport(page *rod.Page, width, height int, deviceScaleFactor float64) error {
	if width <= 0 {
		width = 1920
	}
	if height <= 0 {
		height = 1080
	}
	if deviceScaleFactor <= 0 {
		deviceScaleFactor = 1
	}
	return page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: deviceScaleFactor,
		Mobile:            false,
	})
}

// Close shuts the engine down.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			log.Printf("Failed to close browser engine: %v", err)
		}
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	m.started = false
}
