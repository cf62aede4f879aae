package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// MockStatsSource is a mock implementation of the StatsSource interface
type MockStatsSource struct {
	mock.Mock
}

func (m *MockStatsSource) QueueStats(ctx context.Context, overdueBefore time.Time) (int64, int64, error) {
	args := m.Called(ctx, overdueBefore)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func TestMonitorRunsStartupCheckBeforeStopReturns(t *testing.T) {
	mockStats := new(MockStatsSource)
	monitor := NewQueueMonitor(mockStats, zap.NewNop())

	mockStats.On("QueueStats", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
		// The overdue cutoff sits roughly a week in the past.
		return time.Since(cutoff) > 6*24*time.Hour
	})).Return(int64(3), int64(1), nil)

	assert.NoError(t, monitor.Start())
	monitor.Stop()

	// Stop waits on the startup check, so by now it must have run.
	mockStats.AssertExpectations(t)
}
