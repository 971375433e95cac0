package scheduler

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"lokalfakta/server/internal/queue"
)

type MockSource struct {
	mock.Mock
}

func (m *MockSource) ListingIDsNeedingArea(ctx context.Context, staleBefore time.Time, limit int) ([]int64, error) {
	args := m.Called(staleBefore, limit)
	ids, _ := args.Get(0).([]int64)
	return ids, args.Error(1)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestRunOnce(t *testing.T) {
	now := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		staleAfter  time.Duration
		wantBefore  time.Time
		ids         []int64
		err         error
		queueSize   int
		wantQueued  int
		wantBatches int
	}{
		{
			name:        "Stale listings are queued in batches",
			staleAfter:  24 * time.Hour,
			wantBefore:  now.Add(-24 * time.Hour),
			ids:         []int64{1, 2, 3, 4, 5},
			queueSize:   10,
			wantQueued:  5,
			wantBatches: 3,
		},
		{
			name:        "Zero stale age only picks never-refreshed listings",
			ids:         []int64{9},
			queueSize:   10,
			wantQueued:  1,
			wantBatches: 1,
		},
		{
			name:       "Nothing to refresh",
			staleAfter: time.Hour,
			wantBefore: now.Add(-time.Hour),
			queueSize:  10,
		},
		{
			name:       "Store error queues nothing",
			staleAfter: time.Hour,
			wantBefore: now.Add(-time.Hour),
			err:        errors.New("disk I/O error"),
			queueSize:  10,
		},
		{
			name:        "Full queue reports a partial sweep",
			staleAfter:  time.Hour,
			wantBefore:  now.Add(-time.Hour),
			ids:         []int64{1, 2, 3, 4, 5},
			queueSize:   1,
			wantQueued:  2,
			wantBatches: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &MockSource{}
			source.On("ListingIDsNeedingArea", tt.wantBefore, 100).Return(tt.ids, tt.err).Once()
			refreshQueue := queue.NewRefreshQueue(tt.queueSize, quietLogger())

			s := NewScheduler(source, refreshQueue, Options{StaleAfter: tt.staleAfter, BatchSize: 2, Limit: 100}, quietLogger())
			s.now = func() time.Time { return now }

			queued := s.RunOnce(context.Background())
			assert.Equal(t, tt.wantQueued, queued)
			assert.Equal(t, tt.wantBatches, refreshQueue.Len())
			source.AssertExpectations(t)
		})
	}
}

func TestScheduler_StartupSweep(t *testing.T) {
	source := &MockSource{}
	source.On("ListingIDsNeedingArea", mock.Anything, 0).Return([]int64{4, 5}, nil)
	refreshQueue := queue.NewRefreshQueue(10, quietLogger())

	s := NewScheduler(source, refreshQueue, Options{Interval: time.Hour, BatchSize: 10}, quietLogger())
	s.Start()

	assert.Eventually(t, func() bool { return refreshQueue.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	s.Stop()
}

func TestScheduler_Disabled(t *testing.T) {
	source := &MockSource{}
	s := NewScheduler(source, queue.NewRefreshQueue(1, quietLogger()), Options{}, quietLogger())

	s.Start()
	s.Stop()
	source.AssertNotCalled(t, "ListingIDsNeedingArea", mock.Anything, mock.Anything)
}
