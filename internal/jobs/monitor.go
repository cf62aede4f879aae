package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Listings validated more than this long ago count as overdue for review.
const overdueAfter = 7 * 24 * time.Hour

// StatsSource reports the vetting queue depth and how many entries were
// validated before the given cutoff.
type StatsSource interface {
	QueueStats(ctx context.Context, overdueBefore time.Time) (depth, overdue int64, err error)
}

// QueueMonitor periodically reports vetting queue depth and overdue entries.
type QueueMonitor struct {
	stats  StatsSource
	logger *zap.Logger
	cron   *cron.Cron
	wg     sync.WaitGroup
}

// NewQueueMonitor creates a queue monitor; call Start to begin reporting.
func NewQueueMonitor(stats StatsSource, logger *zap.Logger) *QueueMonitor {
	return &QueueMonitor{
		stats:  stats,
		logger: logger,
		cron:   cron.New(),
	}
}

// Start schedules the hourly check and runs one immediately so a fresh
// deployment logs the queue state right away.
func (m *QueueMonitor) Start() error {
	if _, err := m.cron.AddFunc("@hourly", m.check); err != nil {
		return err
	}
	m.cron.Start()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.check()
	}()
	return nil
}

// Stop halts the schedule and waits for any running check, including the
// startup one, to finish.
func (m *QueueMonitor) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.wg.Wait()
}

func (m *QueueMonitor) check() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	depth, overdue, err := m.stats.QueueStats(ctx, time.Now().Add(-overdueAfter))
	if err != nil {
		m.logger.Error("Failed to read vetting queue stats", zap.Error(err))
		return
	}

	if overdue > 0 {
		m.logger.Warn("Vetting queue has overdue listings",
			zap.Int64("depth", depth), zap.Int64("overdue", overdue))
		return
	}
	m.logger.Info("Vetting queue checked", zap.Int64("depth", depth))
}
