// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// ErrPDFDisabled is returned when PDF rendering is switched off
var ErrPDFDisabled = errors.New("pdf rendering disabled")

// Renderer turns an HTML document into a PDF
type Renderer interface {
	RenderPDF(ctx context.Context, html []byte) ([]byte, error)
}

// DisabledRenderer always returns ErrPDFDisabled
type DisabledRenderer struct{}

func (DisabledRenderer) RenderPDF(context.Context, []byte) ([]byte, error) {
	return nil, ErrPDFDisabled
}

// RodRenderer prints HTML to PDF in headless Chromium. The browser is
// started on first use and reused; a dead connection is replaced.
type RodRenderer struct {
	// Bin is the Chromium binary. Empty lets the launcher find or download one.
	Bin string
	// ControlURL attaches to an already running browser instead of launching.
	ControlURL string
	Timeout    time.Duration

	mu      sync.Mutex
	browser *rod.Browser
}

func NewRodRenderer(bin string, timeout time.Duration) *RodRenderer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RodRenderer{Bin: bin, Timeout: timeout}
}

func (r *RodRenderer) connect() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		if _, err := r.browser.Version(); err == nil {
			return r.browser, nil
		}
		slog.Warn("stale browser connection, relaunching")
		_ = r.browser.Close()
		r.browser = nil
	}

	controlURL := r.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(true).Leakless(false)
		if r.Bin != "" {
			l = l.Bin(r.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	r.browser = browser
	return browser, nil
}

// RenderPDF loads html into a fresh incognito page and prints it with CSS page size and backgrounds
func (r *RodRenderer) RenderPDF(ctx context.Context, html []byte) ([]byte, error) {
	browser, err := r.connect()
	if err != nil {
		return nil, err
	}

	incognito, err := browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("incognito context: %w", err)
	}
	defer incognito.Close()

	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	defer page.Close()

	page = page.Context(ctx).Timeout(r.Timeout)

	if err := page.SetDocumentContent(string(html)); err != nil {
		return nil, fmt.Errorf("set content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}

	stream, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground:   true,
		PreferCSSPageSize: true,
	})
	if err != nil {
		return nil, fmt.Errorf("print to pdf: %w", err)
	}
	defer stream.Close()

	pdf, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("read pdf stream: %w", err)
	}
	return pdf, nil
}

// Close shuts the browser down if one was started
func (r *RodRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	r.browser = nil
	return err
}
