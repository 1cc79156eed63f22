package worker

import (
	"context"

	"github.com/suteetoe/erpsuite/gomicro/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Group runs background loops that share one lifetime. Stop cancels them
// and blocks until every loop has returned.
type Group struct {
	ctx    context.Context
	cancel context.CancelFunc
	eg     *errgroup.Group
}

// NewGroup creates a group whose loops end when parent is done or Stop is called
func NewGroup(parent context.Context) *Group {
	ctx, cancel := context.WithCancel(parent)
	eg, ctx := errgroup.WithContext(ctx)
	return &Group{ctx: ctx, cancel: cancel, eg: eg}
}

// Go starts fn in its own goroutine. A failing loop is logged and does not
// stop the others.
func (g *Group) Go(name string, fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if err := fn(g.ctx); err != nil && g.ctx.Err() == nil {
			logger.GetLogger().Error("Background loop stopped", zap.String("loop", name), zap.Error(err))
		}
		return nil
	})
}

// Stop cancels the loops and waits for them
func (g *Group) Stop() {
	g.cancel()
	_ = g.eg.Wait()
}
