package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"uicheck/internal/runner"
	"uicheck/internal/scenario"

	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Page is one Chrome tab.
type Page struct {
	ctx      context.Context
	cancel   context.CancelFunc
	timeout  time.Duration
	fullPage bool
	logger   *slog.Logger
	once     sync.Once
}

var _ runner.Page = (*Page)(nil)

// scoped derives a tab context that also ends when ctx ends and never
// outlives the action timeout.
func (p *Page) scoped(ctx context.Context) (context.Context, context.CancelFunc) {
	deadline := time.Now().Add(p.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	c, cancel := context.WithDeadline(p.ctx, deadline)
	stop := context.AfterFunc(ctx, cancel)
	return c, func() {
		stop()
		cancel()
	}
}

func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	c, cancel := p.scoped(ctx)
	defer cancel()
	return chromedp.Run(c, actions...)
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := p.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// SetInputFiles sets the files of the first <input type=file> matching
// selector. Hidden inputs are accepted; styled upload widgets usually
// hide the real input.
func (p *Page) SetInputFiles(ctx context.Context, selector string, files []string) error {
	if err := p.run(ctx, chromedp.SetUploadFiles(selector, files, chromedp.ByQuery, chromedp.NodeReady)); err != nil {
		return fmt.Errorf("set files on %s: %w", selector, err)
	}
	return nil
}

func (p *Page) Click(ctx context.Context, target scenario.Locator) error {
	switch {
	case target.Role != "":
		node, ok, err := p.findRole(ctx, target)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no %s in accessibility tree", target)
		}
		if node.BackendNodeID == 0 {
			return fmt.Errorf("%s has no DOM node", target)
		}
		return p.run(ctx, clickBackendNode(node.BackendNodeID))

	case target.Selector != "":
		if err := p.run(ctx, chromedp.Click(target.Selector, chromedp.ByQuery)); err != nil {
			return fmt.Errorf("click %s: %w", target, err)
		}
		return nil

	default:
		var clicked bool
		if err := p.run(ctx, chromedp.Evaluate(clickExpr(target), &clicked)); err != nil {
			return fmt.Errorf("click %s: %w", target, err)
		}
		if !clicked {
			return fmt.Errorf("no visible element for %s", target)
		}
		return nil
	}
}

func (p *Page) IsVisible(ctx context.Context, loc scenario.Locator) (bool, error) {
	if loc.Role != "" {
		_, ok, err := p.findRole(ctx, loc)
		return ok, err
	}
	var visible bool
	if err := p.run(ctx, chromedp.Evaluate(visibleExpr(loc), &visible)); err != nil {
		return false, fmt.Errorf("probe %s: %w", loc, err)
	}
	return visible, nil
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	var action chromedp.Action
	if p.fullPage {
		action = chromedp.FullScreenshot(&buf, 100)
	} else {
		action = chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, err = cdppage.CaptureScreenshot().
				WithFormat(cdppage.CaptureScreenshotFormatPng).
				Do(ctx)
			return err
		})
	}
	if err := p.run(ctx, action); err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return buf, nil
}

// Close closes the tab. Safe to call more than once.
func (p *Page) Close() error {
	p.once.Do(func() {
		p.cancel()
		p.logger.Debug("tab closed")
	})
	return nil
}

func (p *Page) findRole(ctx context.Context, loc scenario.Locator) (axNode, bool, error) {
	var raw json.RawMessage
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return chromedp.FromContext(ctx).Target.Execute(ctx, "Accessibility.getFullAXTree", nil, &raw)
	}))
	if err != nil {
		return axNode{}, false, fmt.Errorf("a11y tree: %w", err)
	}
	nodes, err := parseAXTree(raw)
	if err != nil {
		return axNode{}, false, err
	}
	node, ok := findAXNode(nodes, loc)
	return node, ok, nil
}

// clickBackendNode resolves a backend DOM node to a JS object and clicks it.
func clickBackendNode(backendNodeID int64) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		target := chromedp.FromContext(ctx).Target
		var resolved json.RawMessage
		if err := target.Execute(ctx, "DOM.resolveNode", map[string]any{"backendNodeId": backendNodeID}, &resolved); err != nil {
			return fmt.Errorf("DOM.resolveNode: %w", err)
		}
		var resp struct {
			Object struct {
				ObjectID string `json:"objectId"`
			} `json:"object"`
		}
		if err := json.Unmarshal(resolved, &resp); err != nil {
			return fmt.Errorf("unmarshal resolveNode: %w", err)
		}
		if resp.Object.ObjectID == "" {
			return fmt.Errorf("no objectId for node %d", backendNodeID)
		}
		call := map[string]any{
			"objectId":            resp.Object.ObjectID,
			"functionDeclaration": "function() { this.scrollIntoView({block: 'center'}); this.click(); }",
			"arguments":           []any{},
		}
		if err := target.Execute(ctx, "Runtime.callFunctionOn", call, nil); err != nil {
			return fmt.Errorf("click callFunctionOn: %w", err)
		}
		return nil
	})
}
