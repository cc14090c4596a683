package conduit

import (
	"context"
	"net/url"

	"github.com/WhiteDevil-93/hermes-go/internal/browser"
	"github.com/WhiteDevil-93/hermes-go/internal/trust"
)

// hostOf extracts the hostname from a URL string, returning "" if it
// cannot be parsed or has no host.
func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// currentHost returns the host of the DOM snapshot's URL, falling back
// to the run's target host before any navigation has happened.
func (c *Conduit) currentHost() string {
	if c.cachedDOM != nil {
		if h := hostOf(c.cachedDOM.URL); h != "" {
			return h
		}
	}
	return hostOf(c.run.TargetURL)
}

// dispatchAction executes one validated Function Call against the
// Browser Layer. navigate_url's cross-origin check happens here, ahead
// of any browser call, per the spec's EXECUTE_PLAN contract.
func (c *Conduit) dispatchAction(ctx context.Context, call trust.FunctionCall) (result browser.ActionResult, selector string) {
	switch call.Function {
	case "click":
		selector, _ = call.Parameters["selector"].(string)
		waitMs := 0
		if v, ok := call.Parameters["wait_after_ms"].(float64); ok {
			waitMs = int(v)
		}
		return c.browser.Click(ctx, selector, waitMs), selector
	case "scroll":
		direction, _ := call.Parameters["direction"].(string)
		amount, _ := call.Parameters["amount"].(string)
		return c.browser.Scroll(ctx, direction, amount), ""
	case "fill_form":
		selector, _ = call.Parameters["selector"].(string)
		value, _ := call.Parameters["value"].(string)
		return c.browser.FillForm(ctx, selector, value), selector
	case "hover":
		selector, _ = call.Parameters["selector"].(string)
		return c.browser.Hover(ctx, selector), selector
	case "press_key":
		key, _ := call.Parameters["key"].(string)
		return c.browser.PressKey(ctx, key), ""
	case "wait_for":
		selector, _ = call.Parameters["selector"].(string)
		timeoutMs := int(c.run.InteractionTimeout.Milliseconds())
		if v, ok := call.Parameters["timeout_ms"].(float64); ok {
			timeoutMs = int(v)
		}
		return c.browser.WaitFor(ctx, selector, timeoutMs), selector
	case "navigate_url":
		url, _ := call.Parameters["url"].(string)
		if !c.run.AllowCrossOrigin {
			if h := hostOf(url); h != "" && h != c.currentHost() {
				return browser.ActionResult{Status: browser.StatusFailure, Detail: "cross-origin navigation disallowed"}, ""
			}
		}
		return c.browser.Navigate(ctx, url, int(c.run.PageLoadTimeout.Milliseconds())), ""
	default:
		return browser.ActionResult{Status: browser.StatusFailure, Detail: "unsupported action: " + call.Function}, ""
	}
}
