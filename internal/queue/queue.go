package queue

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// RefreshQueue is an in-memory queue of listing ID batches awaiting an area refresh
type RefreshQueue struct {
	items    chan []int64
	done     chan struct{}
	maxSize  int
	closed   bool
	mu       sync.RWMutex
	wg       sync.WaitGroup
	logger   *logrus.Logger
	handlers []func([]int64) error
}

// NewRefreshQueue creates a new refresh queue with the specified buffer size
func NewRefreshQueue(bufferSize int, logger *logrus.Logger) *RefreshQueue {
	if logger == nil {
		logger = logrus.New()
	}
	return &RefreshQueue{
		items:    make(chan []int64, bufferSize),
		done:     make(chan struct{}),
		maxSize:  bufferSize,
		logger:   logger,
		handlers: make([]func([]int64) error, 0),
	}
}

// Push adds a batch of listing IDs to the queue
func (q *RefreshQueue) Push(ids []int64) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	// Non-blocking send so a full queue is reported to the caller
	select {
	case q.items <- ids:
		q.logger.WithField("batch_size", len(ids)).Debug("Pushed batch to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// PushAll splits ids into batches of batchSize and pushes each of them.
// It returns the number of IDs accepted before the first error.
func (q *RefreshQueue) PushAll(ids []int64, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = len(ids)
	}
	accepted := 0
	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		if err := q.Push(ids[start:end]); err != nil {
			return accepted, err
		}
		accepted += end - start
	}
	return accepted, nil
}

// Subscribe adds a handler function that will be called for each batch
func (q *RefreshQueue) Subscribe(handler func([]int64) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start begins processing items with the given number of consumers
func (q *RefreshQueue) Start(consumers int) {
	if consumers < 1 {
		consumers = 1
	}
	for i := 0; i < consumers; i++ {
		q.wg.Add(1)
		go q.process()
	}
}

// process handles the queue processing loop
func (q *RefreshQueue) process() {
	defer q.wg.Done()
	for {
		select {
		case <-q.done:
			return
		case batch, ok := <-q.items:
			if !ok {
				return
			}
			q.processBatch(batch)
		}
	}
}

// processBatch sends the batch to all subscribed handlers
func (q *RefreshQueue) processBatch(batch []int64) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(batch); err != nil {
			q.logger.WithError(err).Error("Handler failed to process batch")
		}
	}
}

// Close stops the queue and prevents new items from being added. Batches
// still buffered are dropped.
func (q *RefreshQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.done)
	close(q.items)
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}

// Len returns the current number of batches in the queue
func (q *RefreshQueue) Len() int {
	return len(q.items)
}

// IsClosed returns whether the queue has been closed
func (q *RefreshQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
