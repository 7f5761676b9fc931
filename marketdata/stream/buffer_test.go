package stream

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryCapacityInvariant(t *testing.T) {
	h := newHistory(5)

	for i := 0; i < 17; i++ {
		h.append(Sample{Timestamp: float64(i), Price: float64(100 + i)})
		ts, prices := h.snapshot()
		require.LessOrEqual(t, len(ts), 5)
		require.Equal(t, len(ts), len(prices))
	}

	// the retained samples are exactly the last 5 appended, oldest first
	ts, prices := h.snapshot()
	require.Equal(t, []float64{12, 13, 14, 15, 16}, ts)
	require.Equal(t, []float64{112, 113, 114, 115, 116}, prices)
}

func TestHistoryLatest(t *testing.T) {
	h := newHistory(3)

	_, ok := h.latest()
	require.False(t, ok)

	h.append(Sample{Timestamp: 1, Price: 10})
	h.append(Sample{Timestamp: 2, Price: 20})
	s, ok := h.latest()
	require.True(t, ok)
	assert.Equal(t, 2.0, s.Timestamp)
	assert.Equal(t, 20.0, s.Price)
}

func TestHistoryClear(t *testing.T) {
	h := newHistory(3)
	h.append(Sample{Timestamp: 1, Price: 10})
	h.append(Sample{Timestamp: 2, Price: 20})

	h.clear()

	require.Equal(t, 0, h.len())
	ts, prices := h.snapshot()
	assert.Empty(t, ts)
	assert.Empty(t, prices)
	_, ok := h.latest()
	assert.False(t, ok)

	// reusable after clear
	h.append(Sample{Timestamp: 3, Price: 30})
	s, ok := h.latest()
	require.True(t, ok)
	assert.Equal(t, 30.0, s.Price)
}

func TestHistoryChangeOver(t *testing.T) {
	h := newHistory(10)

	// fewer than two samples
	_, ok := h.changeOver(60)
	require.False(t, ok)
	h.append(Sample{Timestamp: 0, Price: 100})
	_, ok = h.changeOver(60)
	require.False(t, ok)

	h.append(Sample{Timestamp: 30, Price: 110})
	h.append(Sample{Timestamp: 61, Price: 121})

	// reference is the most recent sample at least window older than the
	// newest one: 30s window -> (30, 110), 60s window -> (0, 100)
	change, ok := h.changeOver(30)
	require.True(t, ok)
	assert.InDelta(t, 10.0, change, 1e-9)

	change, ok = h.changeOver(60)
	require.True(t, ok)
	assert.InDelta(t, 21.0, change, 1e-9)

	// no sample old enough
	_, ok = h.changeOver(120)
	assert.False(t, ok)
}

func TestHistorySnapshotConsistencyUnderConcurrency(t *testing.T) {
	h := newHistory(64)
	done := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		i := 0
		for {
			select {
			case <-done:
				return
			default:
				h.append(Sample{Timestamp: float64(i), Price: float64(i)})
				i++
			}
		}
	}()

	for i := 0; i < 2000; i++ {
		ts, prices := h.snapshot()
		require.Equal(t, len(ts), len(prices), "torn snapshot")
		require.LessOrEqual(t, len(ts), 64)
		for j := 1; j < len(ts); j++ {
			require.LessOrEqual(t, ts[j-1], ts[j], "out of order snapshot")
		}
	}
	close(done)
	wg.Wait()
}
