package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func streamOf(start int, typ StrokeType, conf float64, n int) []FrameClass {
	out := make([]FrameClass, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, FrameClass{
			FrameIdx: start + i,
			TrackID:  7,
			Class:    Classification{Type: typ, Confidence: conf},
		})
	}
	return out
}

func TestEncodeRunsKeepsLiteralFrameIndices(t *testing.T) {
	// Frames 0, 3, 6: a skipped-frame stream. The run must span literal
	// indices, not positions.
	stream := []FrameClass{
		{FrameIdx: 0, Class: Classification{Type: StrokeDink, Confidence: 0.8}},
		{FrameIdx: 3, Class: Classification{Type: StrokeDink, Confidence: 0.9}},
		{FrameIdx: 6, Class: Classification{Type: StrokeDink, Confidence: 0.7}},
	}

	runs := EncodeRuns(stream)

	require.Len(t, runs, 1)
	assert.Equal(t, 0, runs[0].StartFrame)
	assert.Equal(t, 6, runs[0].EndFrame)
	assert.InDelta(t, 0.9, runs[0].Confidence, 1e-9)
}

func TestEncodeRunsSplitsOnTypeChange(t *testing.T) {
	stream := append(streamOf(0, StrokeDink, 0.8, 3), streamOf(3, StrokeVolley, 0.85, 2)...)

	runs := EncodeRuns(stream)

	require.Len(t, runs, 2)
	assert.Equal(t, StrokeDink, runs[0].Type)
	assert.Equal(t, StrokeVolley, runs[1].Type)
}

func TestDetectDropsShortAndUnknownRuns(t *testing.T) {
	d := NewSegmentDetector(DefaultSegmentConfig(), nil)

	stream := streamOf(0, StrokeUnknown, 0.4, 5)
	stream = append(stream, streamOf(5, StrokeServe, 0.9, 2)...)  // below 3-frame floor
	stream = append(stream, streamOf(20, StrokeDink, 0.9, 4)...)

	segs := d.Detect(stream, nil)

	require.Len(t, segs, 1)
	assert.Equal(t, StrokeDink, segs[0].Type)
	assert.Equal(t, 20, segs[0].StartFrame)
	assert.Equal(t, 23, segs[0].EndFrame)
}

func TestDetectMergesAcrossSmallGap(t *testing.T) {
	d := NewSegmentDetector(DefaultSegmentConfig(), nil)

	// 17 analyzed frames: dink 0-6, unknown 7-8, dink 9-16. The unknown
	// gap of 2 frames must fold into one dink segment with max confidence.
	stream := streamOf(0, StrokeDink, 0.80, 7)
	stream = append(stream, streamOf(7, StrokeUnknown, 0.40, 2)...)
	stream = append(stream, streamOf(9, StrokeDink, 0.92, 8)...)

	segs := d.Detect(stream, nil)

	require.Len(t, segs, 1)
	assert.Equal(t, 0, segs[0].StartFrame)
	assert.Equal(t, 16, segs[0].EndFrame)
	assert.InDelta(t, 0.92, segs[0].Confidence, 1e-9)
}

func TestMergeSegmentsIdempotent(t *testing.T) {
	segs := []Segment{
		{StartFrame: 0, EndFrame: 5, Type: StrokeServe, Confidence: 0.8},
		{StartFrame: 8, EndFrame: 12, Type: StrokeServe, Confidence: 0.9},
		{StartFrame: 40, EndFrame: 45, Type: StrokeServe, Confidence: 0.7},
	}

	once := MergeSegments(segs, 3)
	twice := MergeSegments(once, 3)

	require.Len(t, once, 2)
	assert.Equal(t, once, twice)
}

func TestMergeSegmentsRespectsGapLimit(t *testing.T) {
	segs := []Segment{
		{StartFrame: 0, EndFrame: 5, Type: StrokeServe, Confidence: 0.8},
		{StartFrame: 10, EndFrame: 14, Type: StrokeServe, Confidence: 0.9},
	}

	merged := MergeSegments(segs, 3)

	require.Len(t, merged, 2, "gap of 4 frames must not merge")
}

func TestDetectAnnotatesPeakVelocity(t *testing.T) {
	d := NewSegmentDetector(DefaultSegmentConfig(), nil)

	stream := streamOf(0, StrokeServe, 0.9, 5)
	metrics := []FrameMetrics{
		{MetricFrameIdx: 0, MetricWristVelocityY: 0.01},
		{MetricFrameIdx: 1, MetricWristVelocityY: 0.03},
		{MetricFrameIdx: 2, MetricWristVelocityY: 0.08},
		{MetricFrameIdx: 3, MetricWristVelocityY: 0.02},
		{MetricFrameIdx: 4, MetricWristVelocityY: 0.01},
	}

	segs := d.Detect(stream, metrics)

	require.Len(t, segs, 1)
	assert.InDelta(t, 0.08, segs[0].PeakVelocity, 1e-9)
	assert.Equal(t, 2, segs[0].PeakFrame)
}

func TestDetectCooldownSuppressesDuplicates(t *testing.T) {
	d := NewSegmentDetector(DefaultSegmentConfig(), nil)

	// Two serve runs 6 frames apart: inside the 10-frame cooldown, the
	// second is a duplicate of the same physical hit.
	stream := streamOf(0, StrokeServe, 0.9, 5)
	stream = append(stream, streamOf(11, StrokeServe, 0.9, 5)...)

	segs := d.Detect(stream, nil)

	require.Len(t, segs, 1)
	assert.Equal(t, 0, segs[0].StartFrame)
}

func TestDetectGateRejectsLowConfidence(t *testing.T) {
	d := NewSegmentDetector(DefaultSegmentConfig(), nil)

	stream := streamOf(0, StrokeVolley, 0.45, 6)

	segs := d.Detect(stream, nil)

	assert.Empty(t, segs)
}

func TestDetectResolvesIdentityByMajority(t *testing.T) {
	d := NewSegmentDetector(DefaultSegmentConfig(), nil)

	stream := streamOf(0, StrokeDink, 0.9, 5)
	stream[3].TrackID = 9 // one stray identity inside the run

	segs := d.Detect(stream, nil)

	require.Len(t, segs, 1)
	assert.Equal(t, 7, segs[0].TrackID)
}
