// Package browser implements the Browser Layer: a typed façade over
// go-rod (headless Chrome via the Chrome DevTools Protocol). It accepts
// only typed commands from the Conduit, returns only typed results, and
// has no decision-making authority of its own.
//
// Grounded on the retrieved corpus's internal/browser/session_manager.go
// for the rod launch/connect/viewport/navigate/click/screenshot idiom,
// and on original_source/server/browser/layer.go for the exact operation
// contracts this package must honor.
package browser

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Layer is a single-run, single-threaded browser session. Crash recovery
// is modeled as RestartContext: close the current page, open a fresh one
// within the same browser process.
type Layer struct {
	cfg     Config
	browser *rod.Browser
	page    *rod.Page
}

// New constructs a Layer bound to cfg. Call Start before issuing any
// command.
func New(cfg Config) *Layer {
	return &Layer{cfg: cfg}
}

// Start launches the driver and creates an isolated incognito page sized
// to the configured viewport.
func (l *Layer) Start(ctx context.Context) error {
	launchURL, err := launcher.New().Headless(l.cfg.Headless).Launch()
	if err != nil {
		return fmt.Errorf("browser: launch: %w", err)
	}

	b := rod.New().ControlURL(launchURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return fmt.Errorf("browser: connect: %w", err)
	}
	l.browser = b

	return l.openFreshPage()
}

func (l *Layer) openFreshPage() error {
	incognito, err := l.browser.Incognito()
	if err != nil {
		return fmt.Errorf("browser: incognito context: %w", err)
	}

	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return fmt.Errorf("browser: open page: %w", err)
	}

	metrics := proto.EmulationSetDeviceMetricsOverride{
		Width:             l.cfg.ViewportWidth,
		Height:            l.cfg.ViewportHeight,
		DeviceScaleFactor: 1,
		Mobile:            false,
	}
	if err := metrics.Call(page); err != nil {
		return fmt.Errorf("browser: set viewport: %w", err)
	}

	l.page = page
	return nil
}

// Stop releases all driver resources.
func (l *Layer) Stop() error {
	if l.browser == nil {
		return nil
	}
	err := l.browser.Close()
	l.browser = nil
	l.page = nil
	return err
}

func (l *Layer) requireStarted() error {
	if l.page == nil {
		return fmt.Errorf("browser not started")
	}
	return nil
}

// Navigate loads url and waits for DOM content to settle.
func (l *Layer) Navigate(ctx context.Context, url string, timeoutMs int) ActionResult {
	if err := l.requireStarted(); err != nil {
		return fail(err.Error())
	}
	p := l.page.Context(ctx).Timeout(time.Duration(timeoutMs) * time.Millisecond)
	if err := p.Navigate(url); err != nil {
		if isTimeout(err) {
			return timeout(err.Error())
		}
		return fail(err.Error())
	}
	if err := p.WaitLoad(); err != nil {
		if isTimeout(err) {
			return timeout(err.Error())
		}
		return fail(err.Error())
	}
	return ok("navigated to " + url)
}

// Click clicks an element by CSS selector, then sleeps the optional
// settle time.
func (l *Layer) Click(ctx context.Context, selector string, waitAfterMs int) ActionResult {
	if err := l.requireStarted(); err != nil {
		return fail(err.Error())
	}
	p := l.page.Context(ctx).Timeout(10 * time.Second)
	el, err := p.Element(selector)
	if err != nil {
		if isTimeout(err) {
			return timeout(err.Error())
		}
		return fail(err.Error())
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fail(err.Error())
	}
	if waitAfterMs > 0 {
		time.Sleep(time.Duration(waitAfterMs) * time.Millisecond)
	}
	return ok("clicked " + selector)
}

// Scroll scrolls the viewport. "end" scrolls to document bottom, "page"
// advances +/-720px, any other value must parse as a pixel count.
func (l *Layer) Scroll(ctx context.Context, direction, amount string) ActionResult {
	if err := l.requireStarted(); err != nil {
		return fail(err.Error())
	}
	if direction != "up" && direction != "down" {
		return fail(fmt.Sprintf("invalid scroll direction: %q", direction))
	}

	p := l.page.Context(ctx)
	switch amount {
	case "end":
		if _, err := p.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`); err != nil {
			return fail(err.Error())
		}
	case "page":
		delta := 720.0
		if direction == "up" {
			delta = -720.0
		}
		if err := p.Mouse.Scroll(0, delta, 1); err != nil {
			return fail(err.Error())
		}
	default:
		pixels, err := strconv.Atoi(amount)
		if err != nil {
			return fail(fmt.Sprintf("invalid scroll amount: %q", amount))
		}
		delta := float64(pixels)
		if direction == "up" {
			delta = -delta
		}
		if err := p.Mouse.Scroll(0, delta, 1); err != nil {
			return fail(err.Error())
		}
	}
	time.Sleep(500 * time.Millisecond)
	return ok(fmt.Sprintf("scrolled %s %s", direction, amount))
}

// FillForm types a value into a form field, replacing any existing
// content.
func (l *Layer) FillForm(ctx context.Context, selector, value string) ActionResult {
	if err := l.requireStarted(); err != nil {
		return fail(err.Error())
	}
	p := l.page.Context(ctx).Timeout(10 * time.Second)
	el, err := p.Element(selector)
	if err != nil {
		if isTimeout(err) {
			return timeout(err.Error())
		}
		return fail(err.Error())
	}
	if err := el.SelectAllText(); err != nil {
		return fail(err.Error())
	}
	if err := el.Input(value); err != nil {
		return fail(err.Error())
	}
	return ok("filled " + selector)
}

// Hover hovers over an element.
func (l *Layer) Hover(ctx context.Context, selector string) ActionResult {
	if err := l.requireStarted(); err != nil {
		return fail(err.Error())
	}
	p := l.page.Context(ctx).Timeout(10 * time.Second)
	el, err := p.Element(selector)
	if err != nil {
		if isTimeout(err) {
			return timeout(err.Error())
		}
		return fail(err.Error())
	}
	if err := el.Hover(); err != nil {
		return fail(err.Error())
	}
	return ok("hovered " + selector)
}

var namedKeys = map[string]input.Key{
	"enter":  input.Enter,
	"escape": input.Escape,
	"tab":    input.Tab,
	"space":  input.Space,
}

// PressKey presses a named keyboard key (Enter, Escape, Tab, Space).
func (l *Layer) PressKey(ctx context.Context, key string) ActionResult {
	if err := l.requireStarted(); err != nil {
		return fail(err.Error())
	}
	k, known := namedKeys[strings.ToLower(key)]
	if !known {
		return fail("unsupported key: " + key)
	}
	if err := l.page.Context(ctx).Keyboard.Press(k); err != nil {
		return fail(err.Error())
	}
	return ok("pressed " + key)
}

// WaitFor waits for an element to appear in the DOM, distinguishing
// TIMEOUT from other failures.
func (l *Layer) WaitFor(ctx context.Context, selector string, timeoutMs int) ActionResult {
	if err := l.requireStarted(); err != nil {
		return fail(err.Error())
	}
	p := l.page.Context(ctx).Timeout(time.Duration(timeoutMs) * time.Millisecond)
	if _, err := p.Element(selector); err != nil {
		if isTimeout(err) {
			return timeout(err.Error())
		}
		return fail(err.Error())
	}
	return ok("element " + selector + " appeared")
}

// captureCleanScript removes scripts, styles, noscript blocks, stylesheet
// links, and hidden elements from a cloned document before serializing
// it, matching original_source/server/browser/layer.go's capture_dom.
const captureCleanScript = `() => {
	const clone = document.documentElement.cloneNode(true);
	clone.querySelectorAll('script, style, noscript, link[rel=stylesheet]')
		.forEach(el => el.remove());
	clone.querySelectorAll('[style*="display: none"], [style*="display:none"], [hidden]')
		.forEach(el => el.remove());
	return clone.outerHTML;
}`

// CaptureDOM captures a cleaned DOM snapshot. Returns nil if the browser
// has not started.
func (l *Layer) CaptureDOM(ctx context.Context) (*Snapshot, error) {
	if l.page == nil {
		return nil, nil
	}
	p := l.page.Context(ctx)
	res, err := p.Eval(captureCleanScript)
	if err != nil {
		return nil, fmt.Errorf("browser: capture dom: %w", err)
	}
	html := res.Value.String()

	info, err := p.Info()
	if err != nil {
		return nil, fmt.Errorf("browser: page info: %w", err)
	}

	return &Snapshot{
		HTML:    html,
		URL:     info.URL,
		Title:   info.Title,
		DOMHash: ComputeHash(html),
	}, nil
}

// Screenshot captures a PNG of the current viewport. Returns nil if the
// browser has not started.
func (l *Layer) Screenshot(ctx context.Context) ([]byte, error) {
	if l.page == nil {
		return nil, nil
	}
	return l.page.Context(ctx).Screenshot(false, nil)
}

// RestartContext closes the current page and opens a fresh one within the
// same browser process. Used for crash recovery.
func (l *Layer) RestartContext() ActionResult {
	if l.browser == nil {
		return fail("no browser to restart context on")
	}
	if l.page != nil {
		_ = l.page.Close()
	}
	if err := l.openFreshPage(); err != nil {
		return fail(err.Error())
	}
	return ok("context restarted")
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout") ||
		strings.Contains(strings.ToLower(err.Error()), "deadline exceeded") ||
		strings.Contains(strings.ToLower(err.Error()), "context canceled")
}
