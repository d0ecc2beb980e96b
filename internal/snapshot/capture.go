// Package snapshot captures, converts and loads the page snapshots the
// planner resolves elements against.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/accessibility"
	"github.com/chromedp/chromedp"
	"github.com/rahul/vcaa/internal/observability"
	"github.com/rahul/vcaa/internal/schema"
	"github.com/rahul/vcaa/pkg/config"
	"go.uber.org/zap"
)

// Capturer opens pages in a fresh Chrome instance per capture.
type Capturer struct {
	cfg    config.BrowserConfig
	logger *zap.Logger
}

func NewCapturer(cfg config.BrowserConfig, logger *zap.Logger) *Capturer {
	return &Capturer{cfg: cfg, logger: observability.OrNop(logger)}
}

func (c *Capturer) browser(ctx context.Context) (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("headless", c.cfg.Headless),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	timeout := c.cfg.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	runCtx, runCancel := context.WithTimeout(browserCtx, timeout)
	return runCtx, func() {
		runCancel()
		browserCancel()
		allocCancel()
	}
}

// CaptureAX loads url and returns its accessibility tree.
func (c *Capturer) CaptureAX(ctx context.Context, url string) (schema.AXTree, error) {
	runCtx, cancel := c.browser(ctx)
	defer cancel()

	var (
		nodes    []*accessibility.Node
		location string
	)
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(c.cfg.SettleDelay),
		chromedp.Location(&location),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if err := accessibility.Enable().Do(ctx); err != nil {
				return err
			}
			var err error
			nodes, err = accessibility.GetFullAXTree().Do(ctx)
			return err
		}),
	)
	if err != nil {
		return schema.AXTree{}, fmt.Errorf("failed to capture accessibility tree of %s: %w", url, err)
	}
	tree := FromAXNodes(location, nodes)
	c.logger.Info("Captured accessibility tree",
		zap.String("url", location),
		zap.Int("nodes", len(nodes)),
		zap.Int("elements", len(tree.Elements)))
	return tree, nil
}

// domScript tags every actionable element with data-vcaa-id and describes it
// in the DOM map element shape.
const domScript = `(() => {
  const sel = 'a,button,input,textarea,select,li,td,[role],[aria-label],[data-date]';
  const out = [];
  document.querySelectorAll(sel).forEach((el, i) => {
    if (out.length >= 400) return;
    const id = 'el_' + i;
    el.setAttribute('data-vcaa-id', id);
    const r = el.getBoundingClientRect();
    const style = window.getComputedStyle(el);
    const attrs = {};
    for (const k of ['id', 'class', 'title', 'href', 'type']) {
      const v = el.getAttribute(k);
      if (v) attrs[k] = v;
    }
    out.push({
      element_id: id,
      tag: el.tagName.toLowerCase(),
      type: el.getAttribute('type') || '',
      text: (el.innerText || '').trim().slice(0, 200),
      aria_label: el.getAttribute('aria-label') || '',
      placeholder: el.getAttribute('placeholder') || '',
      name: el.getAttribute('name') || '',
      value: typeof el.value === 'string' ? el.value : '',
      role: el.getAttribute('role') || '',
      attributes: attrs,
      dataset: Object.assign({}, el.dataset),
      css_selector: '[data-vcaa-id="' + id + '"]',
      bounding_rect: {x: r.x, y: r.y + window.scrollY, width: r.width, height: r.height},
      visible: r.width > 0 && r.height > 0 && style.visibility !== 'hidden' && style.display !== 'none',
      enabled: !el.disabled
    });
  });
  return out;
})()`

// CaptureDOM loads url and returns a DOM map of its actionable elements.
func (c *Capturer) CaptureDOM(ctx context.Context, url string) (schema.DOMMap, error) {
	runCtx, cancel := c.browser(ctx)
	defer cancel()

	var (
		raw      []byte
		location string
	)
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(c.cfg.SettleDelay),
		chromedp.Location(&location),
		chromedp.Evaluate(domScript, &raw),
	)
	if err != nil {
		return schema.DOMMap{}, fmt.Errorf("failed to capture DOM of %s: %w", url, err)
	}
	m := schema.DOMMap{
		Version:     schema.VersionDOMMap,
		ID:          schema.NewID(),
		PageURL:     location,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := json.Unmarshal(raw, &m.Elements); err != nil {
		return schema.DOMMap{}, fmt.Errorf("failed to decode DOM map of %s: %w", url, err)
	}
	for i := range m.Elements {
		el := &m.Elements[i]
		el.Text = cleanText(el.Text)
		el.AriaLabel = cleanText(el.AriaLabel)
		el.Placeholder = cleanText(el.Placeholder)
	}
	c.logger.Info("Captured DOM map", zap.String("url", location), zap.Int("elements", len(m.Elements)))
	return m, nil
}
