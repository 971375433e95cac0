package scheduler

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ListingSource finds listings whose area data is missing or stale
type ListingSource interface {
	ListingIDsNeedingArea(ctx context.Context, staleBefore time.Time, limit int) ([]int64, error)
}

// Enqueuer accepts listing IDs for refresh in batches
type Enqueuer interface {
	PushAll(ids []int64, batchSize int) (int, error)
}

// Options controls the refresh sweep
type Options struct {
	Interval   time.Duration
	StaleAfter time.Duration
	BatchSize  int

	// Limit caps the listings queued per sweep so one sweep cannot
	// overflow the queue
	Limit int
}

// Scheduler periodically queues listings for an area refresh
type Scheduler struct {
	source   ListingSource
	queue    Enqueuer
	options  Options
	logger   *logrus.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
	jobMutex sync.Mutex // Ensures sequential sweeps
	now      func() time.Time
}

// NewScheduler creates a new scheduler
func NewScheduler(source ListingSource, queue Enqueuer, options Options, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Scheduler{
		source:   source,
		queue:    queue,
		options:  options,
		logger:   logger,
		stopChan: make(chan struct{}),
		now:      time.Now,
	}
}

// Start runs one sweep immediately and then one per interval. A zero
// interval disables the scheduler.
func (s *Scheduler) Start() {
	if s.options.Interval <= 0 {
		s.logger.Info("Area refresh scheduler disabled")
		return
	}
	s.wg.Add(1)
	go s.runScheduler()
}

func (s *Scheduler) runScheduler() {
	defer s.wg.Done()

	s.logger.Info("Running startup area refresh sweep")
	s.RunOnce(context.Background())

	ticker := time.NewTicker(s.options.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.RunOnce(context.Background())
		}
	}
}

// RunOnce queues every listing needing an area refresh and returns how
// many were accepted
func (s *Scheduler) RunOnce(ctx context.Context) int {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	var staleBefore time.Time
	if s.options.StaleAfter > 0 {
		staleBefore = s.now().Add(-s.options.StaleAfter)
	}

	ids, err := s.source.ListingIDsNeedingArea(ctx, staleBefore, s.options.Limit)
	if err != nil {
		s.logger.WithError(err).Error("Failed to find listings needing area data")
		return 0
	}
	if len(ids) == 0 {
		s.logger.Debug("No listings need an area refresh")
		return 0
	}

	accepted, err := s.queue.PushAll(ids, s.options.BatchSize)
	log := s.logger.WithFields(logrus.Fields{
		"found":    len(ids),
		"accepted": accepted,
	})
	if err != nil {
		log.WithError(err).Warn("Area refresh sweep only partly queued")
		return accepted
	}
	log.Info("Queued listings for area refresh")
	return accepted
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	if s.options.Interval <= 0 {
		return
	}
	close(s.stopChan)
	s.wg.Wait()
}
