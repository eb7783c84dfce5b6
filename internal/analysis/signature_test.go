package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrokeSignatureDimensionAndStats(t *testing.T) {
	seg := Segment{StartFrame: 10, EndFrame: 12, Type: StrokeServe, Confidence: 0.9, PeakVelocity: 0.08}
	metrics := []FrameMetrics{
		{MetricFrameIdx: 10, MetricElbowFlexion: 100, MetricWristVelocityY: 0.02, MetricWristAboveWaist: 1},
		{MetricFrameIdx: 11, MetricElbowFlexion: 120, MetricWristVelocityY: 0.08, MetricWristAboveWaist: 1},
		{MetricFrameIdx: 12, MetricElbowFlexion: 110, MetricWristVelocityY: 0.04, MetricWristAboveWaist: 0},
		{MetricFrameIdx: 99, MetricElbowFlexion: 999, MetricWristVelocityY: 9},
	}

	sig := StrokeSignature(seg, metrics)
	require.Len(t, sig, SignatureDim)

	assert.InDelta(t, 110, sig[0], 1e-4)  // mean elbow, frame 99 excluded
	assert.InDelta(t, 120, sig[6], 1e-4)  // max elbow
	assert.InDelta(t, 0.08, sig[10], 1e-4)
	assert.InDelta(t, 0.03, sig[12], 1e-4) // length 3 / 100
	assert.InDelta(t, 0.9, sig[13], 1e-4)
	assert.InDelta(t, 0.08, sig[14], 1e-4)
	assert.InDelta(t, 2.0/3.0, sig[15], 1e-4)
}

func TestStrokeSignatureNoFrames(t *testing.T) {
	seg := Segment{StartFrame: 0, EndFrame: 4, Confidence: 0.5, PeakVelocity: 0.01}
	sig := StrokeSignature(seg, nil)
	require.Len(t, sig, SignatureDim)

	for i := 0; i < 12; i++ {
		assert.Zero(t, sig[i])
	}
	assert.InDelta(t, 0.05, sig[12], 1e-4)
	assert.InDelta(t, 0.5, sig[13], 1e-4)
}
