package worker

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/complytrack/pkg/domain/interfaces"
	"github.com/secmon-lab/complytrack/pkg/domain/model"
	"github.com/secmon-lab/complytrack/pkg/domain/types"
	"github.com/secmon-lab/complytrack/pkg/utils/errutil"
	"github.com/secmon-lab/complytrack/pkg/utils/logging"
	"github.com/secmon-lab/complytrack/pkg/utils/metrics"
)

// RiskSnapshotWorker periodically publishes the number of risks per status and
// the number of overdue reviews as gauges.
//
// Every instance computes the snapshot from the shared store, so replicas
// report the same values.
type RiskSnapshotWorker struct {
	risks    interfaces.RiskRepository
	metrics  *metrics.Metrics
	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// RiskSnapshotOption configures a RiskSnapshotWorker
type RiskSnapshotOption func(*RiskSnapshotWorker)

// WithClock replaces the clock used to decide whether a review is overdue
func WithClock(now func() time.Time) RiskSnapshotOption {
	return func(w *RiskSnapshotWorker) {
		w.now = now
	}
}

// NewRiskSnapshotWorker creates a new worker for publishing risk gauges
func NewRiskSnapshotWorker(risks interfaces.RiskRepository, m *metrics.Metrics, interval time.Duration, opts ...RiskSnapshotOption) *RiskSnapshotWorker {
	w := &RiskSnapshotWorker{
		risks:    risks,
		metrics:  m,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins the background refresh loop. The first snapshot is taken in the
// background goroutine and does not block server startup.
func (w *RiskSnapshotWorker) Start(ctx context.Context) error {
	if w.interval <= 0 {
		return goerr.New("snapshot interval must be positive", goerr.V("interval", w.interval))
	}

	logging.Default().Info("Risk snapshot worker starting",
		"interval", w.interval.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *RiskSnapshotWorker) Stop() {
	logging.Default().Info("Risk snapshot worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("Risk snapshot worker stopped")
}

func (w *RiskSnapshotWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	_ = errutil.Handle(ctx, w.refresh(ctx), "Initial risk snapshot failed (will retry next interval)")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = errutil.Handle(ctx, w.refresh(ctx), "Risk snapshot failed (will retry next interval)")

		case <-w.stopCh:
			return

		case <-ctx.Done():
			logging.Default().Info("Risk snapshot worker context cancelled")
			return
		}
	}
}

// isOverdue reports whether the review date has passed without the risk being finished
func isOverdue(s *model.RiskSummary, today time.Time) bool {
	return s.ReviewDate.Before(today) && s.Progress.Percent() < 100
}

func (w *RiskSnapshotWorker) refresh(ctx context.Context) error {
	startTime := time.Now()

	summaries, err := w.risks.List(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to list risks")
	}

	today := model.DateOf(w.now())
	counts := make(map[string]int, len(types.AllRiskStatuses()))
	overdue := 0
	for _, s := range summaries {
		counts[s.Progress.Status().String()]++
		if isOverdue(s, today) {
			overdue++
		}
	}

	statuses := make([]string, 0, len(types.AllRiskStatuses()))
	for _, s := range types.AllRiskStatuses() {
		statuses = append(statuses, s.String())
	}
	w.metrics.SetRiskSnapshot(counts, statuses, overdue)

	logging.Default().Debug("Risk snapshot completed",
		"risks", len(summaries),
		"overdue", overdue,
		"duration", time.Since(startTime).String())

	return nil
}
