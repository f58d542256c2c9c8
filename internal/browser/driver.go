// Package browser drives a live Teams web tab over the Chrome DevTools
// protocol. It attaches to an already-running browser (started with
// --remote-debugging-port) so the user's signed-in session is reused;
// the tool never handles credentials itself.
package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/catchingknives/teams-webapp-exporter/internal/export"
)

// DOM probes evaluated in the Teams tab. The message pane is a
// virtualized list: only rendered nodes exist in the DOM, which is why
// the controller has to scroll and re-collect.
const (
	readyExpr = `!!document.querySelector('[data-tid="message-pane-list-viewport"]')`

	// Scroll the viewport hard to its top edge. The client reacts by
	// materializing older history above the current window.
	triggerOlderExpr = `(() => {
		const vp = document.querySelector('[data-tid="message-pane-list-viewport"]');
		if (vp) vp.scrollTop = 0;
	})()`

	// One viewport-height step toward the present.
	stepNewerExpr = `(() => {
		const vp = document.querySelector('[data-tid="message-pane-list-viewport"]');
		if (vp) vp.scrollTop = vp.scrollTop + vp.clientHeight;
	})()`

	// Oversized jump toward the present, used when single steps stall.
	jumpNewerExpr = `(() => {
		const vp = document.querySelector('[data-tid="message-pane-list-viewport"]');
		if (vp) vp.scrollTop = vp.scrollTop + vp.clientHeight * 10;
	})()`

	atBottomExpr = `(() => {
		const vp = document.querySelector('[data-tid="message-pane-list-viewport"]');
		if (!vp) return false;
		return vp.scrollTop + vp.clientHeight >= vp.scrollHeight - 2;
	})()`

	// Harvest every rendered message node. Shape matches export.RawNode.
	collectExpr = `(() => {
		const out = [];
		for (const el of document.querySelectorAll('[data-tid="chat-pane-message"]')) {
			const id = Number(el.getAttribute('data-mid') || el.id.replace(/\D/g, ''));
			if (!Number.isFinite(id) || id === 0) continue;
			const authorEl = el.querySelector('[data-tid="message-author-name"]');
			const tsEl = el.querySelector('time[datetime]');
			const bodyEl = el.querySelector('[data-tid="message-body-content"]');
			out.push({
				id: id,
				author: authorEl ? authorEl.textContent : '',
				ts: tsEl ? tsEl.getAttribute('datetime') : '',
				body: bodyEl ? bodyEl.innerHTML : '',
				media: !!el.querySelector('[data-tid="media-gallery-item"], img[itemtype="http://schema.skype.com/AMSImage"]'),
			});
		}
		return out;
	})()`
)

// Driver implements export.View against a real browser tab.
type Driver struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger export.Logger
}

var _ export.View = (*Driver)(nil)

// NewDriver attaches to the browser at devtoolsURL and binds to the
// tab with Teams open. Close must be called to release the connection;
// closing the driver does not close the user's browser.
func NewDriver(ctx context.Context, devtoolsURL string, logger export.Logger) (*Driver, error) {
	allocCtx, allocCancel := chromedp.NewRemoteAllocator(ctx, devtoolsURL)

	tabID, err := findTeamsTab(allocCtx)
	if err != nil {
		allocCancel()
		return nil, err
	}
	logger.Debug("attached to tab", "target", string(tabID))

	taskCtx, taskCancel := chromedp.NewContext(allocCtx, chromedp.WithTargetID(tabID))
	cancel := func() {
		taskCancel()
		allocCancel()
	}

	// Connect now so a bad devtools URL fails fast instead of on the
	// first scroll.
	if err := chromedp.Run(taskCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("connecting to browser at %s: %w", devtoolsURL, err)
	}

	return &Driver{ctx: taskCtx, cancel: cancel, logger: logger}, nil
}

// findTeamsTab scans the browser's open pages for a Teams tab.
func findTeamsTab(allocCtx context.Context) (target.ID, error) {
	listCtx, listCancel := chromedp.NewContext(allocCtx)
	defer listCancel()

	infos, err := chromedp.Targets(listCtx)
	if err != nil {
		return "", fmt.Errorf("listing browser tabs: %w", err)
	}

	for _, info := range infos {
		if info.Type != "page" {
			continue
		}
		if strings.Contains(info.URL, "teams.microsoft.com") || strings.Contains(info.URL, "teams.live.com") {
			return info.TargetID, nil
		}
	}
	return "", fmt.Errorf("no Teams tab found among %d open pages", len(infos))
}

// Close releases the devtools connection.
func (d *Driver) Close() {
	d.cancel()
}

// run executes actions on the attached tab, honoring the caller's
// deadline on top of the driver's own connection context.
func (d *Driver) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx := d.ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(d.ctx, deadline)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return chromedp.Run(runCtx, actions...)
}

// Ready reports whether the message-list viewport exists in the tab.
func (d *Driver) Ready(ctx context.Context) (bool, error) {
	var ready bool
	if err := d.run(ctx, chromedp.Evaluate(readyExpr, &ready)); err != nil {
		return false, fmt.Errorf("probing message pane: %w", err)
	}
	return ready, nil
}

// Prime scrolls to the oldest-loaded edge to establish a stable
// starting point.
func (d *Driver) Prime(ctx context.Context) error {
	if err := d.run(ctx, chromedp.Evaluate(triggerOlderExpr, nil)); err != nil {
		return fmt.Errorf("priming view: %w", err)
	}
	return nil
}

// TriggerOlder nudges the view to materialize earlier history.
func (d *Driver) TriggerOlder(ctx context.Context) error {
	if err := d.run(ctx, chromedp.Evaluate(triggerOlderExpr, nil)); err != nil {
		return fmt.Errorf("triggering older content: %w", err)
	}
	return nil
}

// StepNewer advances one viewport height toward the present.
func (d *Driver) StepNewer(ctx context.Context) error {
	if err := d.run(ctx, chromedp.Evaluate(stepNewerExpr, nil)); err != nil {
		return fmt.Errorf("stepping newer: %w", err)
	}
	return nil
}

// JumpNewer performs one oversized jump toward the present.
func (d *Driver) JumpNewer(ctx context.Context) error {
	if err := d.run(ctx, chromedp.Evaluate(jumpNewerExpr, nil)); err != nil {
		return fmt.Errorf("jumping newer: %w", err)
	}
	return nil
}

// AtBottom reports whether the viewport is scrolled to the end.
func (d *Driver) AtBottom(ctx context.Context) (bool, error) {
	var atBottom bool
	if err := d.run(ctx, chromedp.Evaluate(atBottomExpr, &atBottom)); err != nil {
		return false, fmt.Errorf("checking scroll position: %w", err)
	}
	return atBottom, nil
}

// Collect harvests every message node currently rendered in the tab.
func (d *Driver) Collect(ctx context.Context) ([]export.RawNode, error) {
	var nodes []export.RawNode
	if err := d.run(ctx, chromedp.Evaluate(collectExpr, &nodes)); err != nil {
		return nil, fmt.Errorf("collecting rendered messages: %w", err)
	}
	d.logger.Debug("collected rendered nodes", "count", len(nodes))
	return nodes, nil
}
