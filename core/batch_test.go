package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/qualitytrend/sonarscrape/internal/contract"
)

func testJoiner(keys []string) string {
	return "http://sonar.test/api/measures/component?componentKey=p&metricKeys=" + strings.Join(keys, ",")
}

func makeKeys(n int, prefix string) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = fmt.Sprintf("%s%03d", prefix, i)
	}
	return keys
}

func TestBatcher_CountSplit(t *testing.T) {
	batches := CountBatcher(3).Split(makeKeys(7, "r"), nil)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 3)
	assert.Len(t, batches[1], 3)
	assert.Equal(t, []string{"r006"}, batches[2])
}

func TestBatcher_LengthSplit(t *testing.T) {
	keys := makeKeys(200, "metric_key_")
	limits := []int{80, 120, 500, 2000}

	for _, limit := range limits {
		t.Run(fmt.Sprintf("limit %d", limit), func(t *testing.T) {
			batches := LengthBatcher(limit).Split(keys, testJoiner)

			var flattened []string
			for _, b := range batches {
				require.NotEmpty(t, b)
				if len(b) > 1 {
					assert.LessOrEqual(t, len(testJoiner(b)), limit)
				}
				flattened = append(flattened, b...)
			}
			// Concatenation gives back the input in order
			assert.Equal(t, keys, flattened)

			// Greedy: adding the next key to any batch would exceed the limit
			for i := 0; i < len(batches)-1; i++ {
				next := append(append([]string(nil), batches[i]...), batches[i+1][0])
				assert.Greater(t, len(testJoiner(next)), limit)
			}
		})
	}
}

func TestBatcher_OversizedKeyGetsOwnBatch(t *testing.T) {
	long := strings.Repeat("x", 300)
	batches := LengthBatcher(100).Split([]string{"a", long, "b"}, testJoiner)
	assert.Equal(t, [][]string{{"a"}, {long}, {"b"}}, batches)
}

func TestBatcher_NoLimit(t *testing.T) {
	keys := makeKeys(50, "k")
	assert.Equal(t, [][]string{keys}, Batcher{}.Split(keys, testJoiner))
}

func TestBatcher_FetchEmpty(t *testing.T) {
	fetcher := &contract.MockFetcher{}
	bodies, err := LengthBatcher(100).Fetch(context.Background(), fetcher, nil, testJoiner)
	require.NoError(t, err)
	assert.Nil(t, bodies)
	fetcher.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestBatcher_FetchInOrder(t *testing.T) {
	fetcher := &contract.MockFetcher{}
	fetcher.On("Get", mock.Anything, testJoiner([]string{"a", "b"})).Return([]byte("first"), nil).Once()
	fetcher.On("Get", mock.Anything, testJoiner([]string{"c"})).Return([]byte("second"), nil).Once()

	bodies, err := CountBatcher(2).Fetch(context.Background(), fetcher, []string{"a", "b", "c"}, testJoiner)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("first"), []byte("second")}, bodies)
	fetcher.AssertExpectations(t)
}

func TestBatcher_FetchStopsAtFirstError(t *testing.T) {
	boom := errors.New("boom")
	fetcher := &contract.MockFetcher{}
	fetcher.On("Get", mock.Anything, testJoiner([]string{"a"})).Return([]byte("{}"), nil).Once()
	fetcher.On("Get", mock.Anything, testJoiner([]string{"b"})).Return(nil, boom).Once()

	_, err := CountBatcher(1).Fetch(context.Background(), fetcher, []string{"a", "b", "c"}, testJoiner)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "batch 2 of 3")
	fetcher.AssertNumberOfCalls(t, "Get", 2)
}
