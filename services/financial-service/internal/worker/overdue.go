package worker

import (
	"context"
	"time"

	"github.com/suteetoe/erpsuite/gomicro/logger"
	"github.com/suteetoe/erpsuite/services/financial-service/prometheus"
	"go.uber.org/zap"
)

// OverdueMarker moves unpaid invoices past their due date to OVERDUE
type OverdueMarker interface {
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
}

// OverdueSweeper periodically runs MarkOverdue
type OverdueSweeper struct {
	invoices OverdueMarker
	period   time.Duration
	now      func() time.Time
}

// NewOverdueSweeper creates a sweeper running every period
func NewOverdueSweeper(invoices OverdueMarker, period time.Duration) *OverdueSweeper {
	if period <= 0 {
		period = 15 * time.Minute
	}
	return &OverdueSweeper{invoices: invoices, period: period, now: time.Now}
}

// Start sweeps once, then on every tick until ctx is done. Blocking call.
func (w *OverdueSweeper) Start(ctx context.Context) {
	log := logger.GetLogger()
	log.Info("Overdue sweeper started", zap.Duration("period", w.period))

	ticker := time.NewTicker(w.period)
	defer ticker.Stop()

	w.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info("Overdue sweeper stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one pass and returns the number of invoices marked
func (w *OverdueSweeper) Sweep(ctx context.Context) int64 {
	n, err := w.invoices.MarkOverdue(ctx, w.now())
	if err != nil {
		logger.GetLogger().Error("Overdue sweep failed", zap.Error(err))
		return 0
	}
	if n > 0 {
		prometheus.RecordOverdueMarked(n)
		logger.GetLogger().Info("Invoices marked overdue", zap.Int64("count", n))
	}
	return n
}
