package browser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod/lib/proto"
)

const bindingName = "__capsync_signal"

// mutationJS attaches a MutationObserver under the configured root and
// forwards one pulse per batch through the CDP binding. The Go side owns
// all batching policy; the page reports raw activity only.
const mutationJS = `(rootSel) => {
	if (window.__capsync_observer) return;
	const root = (rootSel && document.querySelector(rootSel)) || document.body;
	const obs = new MutationObserver(() => {
		try { window.__capsync_signal(""); } catch (e) {}
	});
	obs.observe(root, {
		childList: true,
		subtree: true,
		characterData: true,
		attributes: true,
	});
	window.__capsync_observer = obs;
}`

// MutationNotifier delivers one pulse per raw mutation batch observed on a
// tab. It satisfies the observation layer's notifier capability.
type MutationNotifier struct {
	tab    *Tab
	ch     chan struct{}
	cancel context.CancelFunc
	logger *slog.Logger
}

// WatchMutations injects a page-side MutationObserver scoped to rootSel
// (empty = document body) and returns a notifier fed by its signals.
func (t *Tab) WatchMutations(ctx context.Context, rootSel string) (*MutationNotifier, error) {
	if err := (proto.RuntimeAddBinding{Name: bindingName}).Call(t.Page); err != nil {
		t.logger.Warn("browser: add binding failed (may already exist)", "error", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	n := &MutationNotifier{
		tab:    t,
		ch:     make(chan struct{}, 1),
		cancel: cancel,
		logger: t.logger,
	}

	go n.listen(ctx)

	if _, err := t.Page.Eval(mutationJS, rootSel); err != nil {
		cancel()
		return nil, fmt.Errorf("browser: inject mutation observer: %w", err)
	}

	t.logger.Debug("browser: mutation observer injected",
		"url", t.PageURL, "root", rootSel)
	return n, nil
}

func (n *MutationNotifier) listen(ctx context.Context) {
	n.tab.Page.Context(ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bindingName {
			return
		}
		select {
		case n.ch <- struct{}{}:
		default:
			// A pulse is already pending; coalescing loses nothing.
		}
	})()
}

// C delivers one pulse per mutation batch.
func (n *MutationNotifier) C() <-chan struct{} { return n.ch }

// Close releases the page event subscription. The channel is left open so
// a consumer mid-select never sees a spurious closed-channel read.
func (n *MutationNotifier) Close() error {
	n.cancel()
	return nil
}
