package processor

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"lokalfakta/server/config"
	"lokalfakta/server/internal/models"
	"lokalfakta/server/internal/queue"
)

// MockDB is a mock implementation of Transactor
type MockDB struct {
	mock.Mock
}

func (m *MockDB) Transaction(fc func(*gorm.DB) error, opts ...*sql.TxOptions) error {
	args := m.Called(fc)
	return args.Error(0)
}

// fakeAreas answers geocoding from a fixed table and records refreshes.
// Cities in empty get the zero area every failed source returns.
type fakeAreas struct {
	mu        sync.Mutex
	geocodes  map[string]*models.GeocodeResult
	empty     map[string]bool
	onFetch   func()
	refreshed []string
}

func (f *fakeAreas) Geocode(ctx context.Context, address string) *models.GeocodeResult {
	return f.geocodes[address]
}

func (f *fakeAreas) FetchAreaData(ctx context.Context, city string, lat, lng float64, address string) models.AreaData {
	f.mu.Lock()
	f.refreshed = append(f.refreshed, city)
	f.mu.Unlock()
	if f.onFetch != nil {
		f.onFetch()
	}
	if f.empty[city] {
		return models.AreaData{Walkability: models.WalkabilityData{WalkLabel: "Car-dependent", BikeLabel: "Car-dependent"}}
	}
	return models.AreaData{
		Nearby:      models.NearbyData{Restaurants: 3},
		Walkability: models.WalkabilityData{WalkScore: 40, WalkLabel: "Car-dependent"},
	}
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Refresh.WorkerCount = 2
	cfg.Refresh.MaxRetries = 3
	cfg.Refresh.RetryDelay = time.Millisecond
	cfg.Refresh.BatchSize = 10
	return cfg
}

func TestNewRefreshProcessor(t *testing.T) {
	mockDB := &MockDB{}
	areas := &fakeAreas{}
	refreshQueue := queue.NewRefreshQueue(10, quietLogger())
	cfg := testConfig()
	logger := quietLogger()

	processor := NewRefreshProcessor(mockDB, areas, refreshQueue, cfg, logger)

	assert.NotNil(t, processor)
	assert.Equal(t, mockDB, processor.db)
	assert.Equal(t, refreshQueue, processor.queue)
	assert.Equal(t, cfg, processor.config)
	assert.Equal(t, logger, processor.logger)
}

func TestRefreshProcessor_ProcessBatch(t *testing.T) {
	mockDB := &MockDB{}
	processor := NewRefreshProcessor(mockDB, &fakeAreas{}, queue.NewRefreshQueue(10, quietLogger()), testConfig(), quietLogger())

	batch := []int64{1, 2}

	// Successful processing
	mockDB.On("Transaction", mock.Anything).Return(nil).Once()
	err := processor.processBatch(batch)
	assert.NoError(t, err)

	// Every attempt fails
	mockDB.On("Transaction", mock.Anything).Return(errors.New("db error")).Times(4)
	err = processor.processBatch(batch)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to process batch after 4 attempts")
	mockDB.AssertNumberOfCalls(t, "Transaction", 5)
}

func TestRefreshProcessor_ErrorRecovery(t *testing.T) {
	mockDB := &MockDB{}
	processor := NewRefreshProcessor(mockDB, &fakeAreas{}, queue.NewRefreshQueue(10, quietLogger()), testConfig(), quietLogger())

	// Fail twice then succeed
	mockDB.On("Transaction", mock.Anything).Return(errors.New("database is locked")).Twice()
	mockDB.On("Transaction", mock.Anything).Return(nil).Once()

	err := processor.processBatch([]int64{1})
	assert.NoError(t, err)
	mockDB.AssertNumberOfCalls(t, "Transaction", 3)
	mockDB.AssertExpectations(t)
}

func TestRefreshProcessor_StopAbortsRetries(t *testing.T) {
	mockDB := &MockDB{}
	cfg := testConfig()
	cfg.Refresh.RetryDelay = time.Hour
	processor := NewRefreshProcessor(mockDB, &fakeAreas{}, queue.NewRefreshQueue(10, quietLogger()), cfg, quietLogger())

	mockDB.On("Transaction", mock.Anything).Return(errors.New("db error"))

	done := make(chan error, 1)
	go func() { done <- processor.processBatch([]int64{1}) }()

	time.Sleep(20 * time.Millisecond)
	processor.Stop()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("retry loop did not observe cancellation")
	}
}

func TestRefreshProcessor_StartStop(t *testing.T) {
	mockDB := &MockDB{}
	refreshQueue := queue.NewRefreshQueue(10, quietLogger())
	processor := NewRefreshProcessor(mockDB, &fakeAreas{}, refreshQueue, testConfig(), quietLogger())

	processor.Start()
	processor.Stop()

	assert.True(t, refreshQueue.IsClosed())
	assert.Equal(t, queue.ErrQueueClosed, refreshQueue.Push([]int64{1}))
}
