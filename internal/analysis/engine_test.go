package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineTracksAndRecordsFrames(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.Step = 3
	e := NewEngine(cfg, Hints{}, nil)

	// Subject walks right 10 px per frame; the box is 550 px tall.
	for i := 0; i < 9; i++ {
		in := frameInput(i, trackAt(1, float64(600+i*10), 500, float64(900+i*10), 1050, 0.9))
		sel, ok := e.Track(in)
		require.True(t, ok)
		require.True(t, sel.Found)

		if e.IsAnalysisFrame(i) {
			e.AnalyzeFrame(i, sel, nil)
		}
	}

	res := e.Finalize(9)

	// Analysis frames 0, 3, 6 only.
	require.Len(t, res.Frames, 3)
	assert.Equal(t, 0, res.Frames[0].FrameIdx)
	assert.Equal(t, 3, res.Frames[1].FrameIdx)
	assert.Equal(t, 6, res.Frames[2].FrameIdx)
	assert.Equal(t, res.Frames[1].FrameIdx, res.Frames[1].FrameIdxAlt)
	assert.Equal(t, 1, res.Frames[0].TrackID)

	// 8 moves of 10 px at 1.75/550 m per px.
	assert.InDelta(t, 80*1.75/550, res.Summary.TotalDistanceM, 0.01)
	assert.InDelta(t, 0.3, res.Summary.TrackedDurationSec, 0.001)
	assert.Equal(t, StrokeUnknown, res.Summary.DominantStroke)
	assert.Equal(t, "unknown", res.InjuryRiskSummary.OverallRisk)
}

func TestEngineTimestampsFollowFPS(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.FPS = 60
	e := NewEngine(cfg, Hints{}, nil)

	sel, ok := e.Track(frameInput(0, trackAt(1, 600, 500, 900, 1050, 0.9)))
	require.True(t, ok)
	e.AnalyzeFrame(0, sel, nil)

	sel, ok = e.Track(frameInput(30, trackAt(1, 600, 500, 900, 1050, 0.9)))
	require.True(t, ok)
	e.AnalyzeFrame(30, sel, nil)

	res := e.Finalize(31)

	require.Len(t, res.Frames, 2)
	assert.InDelta(t, 0.5, res.Frames[1].TimestampSec, 0.001)
}

func TestEngineTargetFilterDropsOtherStrokes(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.TargetStroke = StrokeDink
	e := NewEngine(cfg, Hints{}, nil)

	// Inject a foreign-typed stream directly: the filter runs at Finalize.
	e.stream = streamOf(0, StrokeDink, 0.9, 5)
	e.stream = append(e.stream, streamOf(30, StrokeVolley, 0.9, 5)...)

	res := e.Finalize(40)

	require.Len(t, res.Strokes, 1)
	assert.Equal(t, StrokeDink, res.Strokes[0].Type)
	assert.Equal(t, StrokeDink, res.Summary.DominantStroke)
}

func TestEngineStrokeEventTiming(t *testing.T) {
	cfg := DefaultEngineConfig()
	e := NewEngine(cfg, Hints{}, nil)

	e.stream = streamOf(30, StrokeServe, 0.9, 6)
	e.allMetrics = []FrameMetrics{
		{MetricFrameIdx: 32, MetricWristVelocityY: 0.05},
	}

	res := e.Finalize(60)

	require.Len(t, res.Strokes, 1)
	ev := res.Strokes[0]
	assert.Equal(t, 30, ev.StartFrame)
	assert.Equal(t, 35, ev.EndFrame)
	assert.InDelta(t, 1.0, ev.StartSec, 0.001)
	assert.InDelta(t, 1.17, ev.EndSec, 0.001)
	assert.Equal(t, 32, ev.PeakFrame)
	assert.InDelta(t, 0.05, ev.PeakVelocity, 1e-9)
}
