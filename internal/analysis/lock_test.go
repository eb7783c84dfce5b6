package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trackAt(id int, x1, y1, x2, y2, conf float64) TrackCandidate {
	return TrackCandidate{ID: id, Box: Box{X1: x1, Y1: y1, X2: x2, Y2: y2}, Confidence: conf}
}

func frameInput(idx int, tracks ...TrackCandidate) FrameInput {
	return FrameInput{FrameIdx: idx, Width: 1920, Height: 1080, Tracks: tracks}
}

func TestLockSelectsByROI(t *testing.T) {
	roi := &Box{X1: 0.25, Y1: 0.25, X2: 0.75, Y2: 0.95}
	tr := NewIdentityTracker(DefaultLockConfig(), Hints{ROI: roi}, nil)

	inside := trackAt(1, 800, 400, 1100, 1000, 0.9)
	outside := trackAt(2, 50, 50, 350, 950, 0.9)

	sel, ok := tr.Step(frameInput(0, inside, outside))

	require.True(t, ok)
	assert.True(t, sel.Found)
	assert.Equal(t, 1, tr.Lock().LockedID)
}

func TestLockROIWaitsThenFallsBack(t *testing.T) {
	roi := &Box{X1: 0.0, Y1: 0.0, X2: 0.1, Y2: 0.1}
	cfg := DefaultLockConfig()
	tr := NewIdentityTracker(cfg, Hints{ROI: roi}, nil)

	// Large near-court candidate far outside the tiny ROI.
	candidate := trackAt(3, 700, 400, 1100, 1050, 0.9)

	// During the lock-wait window nothing is selected.
	for i := 0; i < cfg.LockWaitFrames; i++ {
		_, ok := tr.Step(frameInput(i, candidate))
		require.False(t, ok, "frame %d must stay unlocked", i)
	}

	// Window expired: auto selection takes over.
	sel, ok := tr.Step(frameInput(cfg.LockWaitFrames, candidate))
	require.True(t, ok)
	assert.True(t, sel.Found)
	assert.Equal(t, 3, tr.Lock().LockedID)
}

func TestLockSelectsByPoint(t *testing.T) {
	pt := &Point{X: 0.5, Y: 0.5}
	tr := NewIdentityTracker(DefaultLockConfig(), Hints{Point: pt}, nil)

	containing := trackAt(1, 900, 450, 1020, 650, 0.9)
	other := trackAt(2, 100, 100, 300, 400, 0.9)

	_, ok := tr.Step(frameInput(0, containing, other))

	require.True(t, ok)
	assert.Equal(t, 1, tr.Lock().LockedID)
}

func TestLockAutoSelectsLargestNearCourt(t *testing.T) {
	tr := NewIdentityTracker(DefaultLockConfig(), Hints{}, nil)

	// Far-court candidate is large but high in frame; near-court wins.
	farCourt := trackAt(1, 800, 100, 1100, 500, 0.9)
	nearCourt := trackAt(2, 600, 500, 900, 1050, 0.9)

	_, ok := tr.Step(frameInput(0, farCourt, nearCourt))

	require.True(t, ok)
	assert.Equal(t, 2, tr.Lock().LockedID)
}

func TestLockIsSticky(t *testing.T) {
	tr := NewIdentityTracker(DefaultLockConfig(), Hints{}, nil)

	target := trackAt(1, 600, 500, 900, 1050, 0.9)
	_, ok := tr.Step(frameInput(0, target))
	require.True(t, ok)
	require.Equal(t, 1, tr.Lock().LockedID)

	// A bigger candidate appears: the lock must not move.
	bigger := trackAt(2, 400, 400, 1000, 1070, 0.95)
	sel, ok := tr.Step(frameInput(1, target, bigger))

	require.True(t, ok)
	assert.True(t, sel.Found)
	assert.Equal(t, 1, tr.Lock().LockedID)
}

func TestLockSurfacesLastBoxWhileLost(t *testing.T) {
	tr := NewIdentityTracker(DefaultLockConfig(), Hints{}, nil)

	target := trackAt(1, 600, 500, 900, 1050, 0.9)
	_, ok := tr.Step(frameInput(0, target))
	require.True(t, ok)

	// Target vanishes entirely.
	sel, ok := tr.Step(frameInput(1))

	require.True(t, ok)
	assert.False(t, sel.Found)
	assert.Equal(t, target.Box, sel.Box)
	assert.Equal(t, 1, tr.Lock().LostFrames)
}

func TestLockRecoversFromNearbyDetection(t *testing.T) {
	tr := NewIdentityTracker(DefaultLockConfig(), Hints{}, nil)

	target := trackAt(1, 600, 500, 900, 1050, 0.9)
	_, ok := tr.Step(frameInput(0, target))
	require.True(t, ok)

	// Track gone, but a raw detection sits a few pixels from the last
	// known center.
	in := frameInput(1)
	in.Detections = []DetectionCandidate{
		{Box: Box{X1: 610, Y1: 505, X2: 910, Y2: 1055}, Confidence: 0.8},
	}

	sel, ok := tr.Step(in)

	require.True(t, ok)
	assert.True(t, sel.Found)
	assert.Equal(t, 0, tr.Lock().LostFrames)
}

func TestLockRelocksToNearbyTrack(t *testing.T) {
	tr := NewIdentityTracker(DefaultLockConfig(), Hints{}, nil)

	target := trackAt(1, 600, 500, 900, 1050, 0.9)
	_, ok := tr.Step(frameInput(0, target))
	require.True(t, ok)

	// The tracker reassigned the subject a new identifier at nearly the
	// same position.
	reborn := trackAt(5, 605, 505, 905, 1055, 0.9)
	sel, ok := tr.Step(frameInput(1, reborn))

	require.True(t, ok)
	assert.True(t, sel.Found)
	assert.Equal(t, 5, tr.Lock().LockedID)
}

func TestLockTimeoutNeverClearsLockedID(t *testing.T) {
	cfg := DefaultLockConfig()
	tr := NewIdentityTracker(cfg, Hints{}, nil)

	target := trackAt(1, 600, 500, 900, 1050, 0.9)
	_, ok := tr.Step(frameInput(0, target))
	require.True(t, ok)

	// Lose the target far past the loss timeout.
	for i := 1; i <= cfg.LossTimeoutFrames+5; i++ {
		sel, ok := tr.Step(frameInput(i))
		require.True(t, ok)
		require.False(t, sel.Found)
	}

	assert.Equal(t, 1, tr.Lock().LockedID, "identity must survive the timeout")
	assert.LessOrEqual(t, tr.Lock().LostFrames, cfg.LossTimeoutFrames, "counter resets at timeout")
}

func TestLockNoCandidates(t *testing.T) {
	tr := NewIdentityTracker(DefaultLockConfig(), Hints{}, nil)

	_, ok := tr.Step(frameInput(0))

	assert.False(t, ok)
	assert.Equal(t, -1, tr.Lock().LockedID)
}
