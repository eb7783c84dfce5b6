package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryPushAndOrder(t *testing.T) {
	h := NewHistory(3)

	h.Push(FrameMetrics{MetricFrameIdx: 0})
	h.Push(FrameMetrics{MetricFrameIdx: 1})

	require.Equal(t, 2, h.Len())
	assert.Equal(t, 0, h.At(0).FrameIdx())
	assert.Equal(t, 1, h.At(1).FrameIdx())
	assert.Equal(t, 1, h.Last().FrameIdx())
}

func TestHistoryEvictsOldest(t *testing.T) {
	h := NewHistory(3)

	for i := 0; i < 5; i++ {
		h.Push(FrameMetrics{MetricFrameIdx: float64(i)})
	}

	require.Equal(t, 3, h.Len())
	assert.Equal(t, 2, h.At(0).FrameIdx())
	assert.Equal(t, 4, h.Last().FrameIdx())
}

func TestHistoryOutOfRange(t *testing.T) {
	h := NewHistory(3)
	h.Push(FrameMetrics{})

	assert.Nil(t, h.At(-1))
	assert.Nil(t, h.At(1))
}

func TestHistoryReset(t *testing.T) {
	h := NewHistory(3)
	h.Push(FrameMetrics{})
	h.Push(FrameMetrics{})

	h.Reset()

	assert.Equal(t, 0, h.Len())
	assert.Nil(t, h.Last())
}

func TestHistoryZeroCapacityDefaults(t *testing.T) {
	h := NewHistory(0)

	for i := 0; i < HistorySize+5; i++ {
		h.Push(FrameMetrics{MetricFrameIdx: float64(i)})
	}

	assert.Equal(t, HistorySize, h.Len())
}
