package contract

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockFetcher is a mock implementation of Fetcher for testing.
type MockFetcher struct {
	mock.Mock
}

var _ Fetcher = &MockFetcher{} // Compile-time check

// Get mocks the Get method.
func (m *MockFetcher) Get(ctx context.Context, url string) ([]byte, error) {
	args := m.Called(ctx, url)
	if body := args.Get(0); body != nil {
		return body.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}
