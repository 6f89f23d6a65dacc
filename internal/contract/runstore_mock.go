package contract

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/qualitytrend/sonarscrape/schema"
)

// MockRunStore is a mock implementation of RunStore for testing.
type MockRunStore struct {
	mock.Mock
}

var _ RunStore = &MockRunStore{} // Compile-time check

// BeginRun mocks the BeginRun method.
func (m *MockRunStore) BeginRun(startTime time.Time, kind schema.ExportKind, projectKey, outputFile string) (int64, error) {
	args := m.Called(startTime, kind, projectKey, outputFile)
	return args.Get(0).(int64), args.Error(1)
}

// EndRun mocks the EndRun method.
func (m *MockRunStore) EndRun(runID int64, outcome schema.RunOutcome) error {
	args := m.Called(runID, outcome)
	return args.Error(0)
}

// GetStatus mocks the GetStatus method.
func (m *MockRunStore) GetStatus() (schema.RunStoreStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.RunStoreStatus), args.Error(1)
}

// GetAllRuns mocks the GetAllRuns method.
func (m *MockRunStore) GetAllRuns() ([]schema.RunRecord, error) {
	args := m.Called()
	if runs := args.Get(0); runs != nil {
		return runs.([]schema.RunRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

// Close mocks the Close method.
func (m *MockRunStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
