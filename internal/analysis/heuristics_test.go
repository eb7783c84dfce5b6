package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func historyOf(frames ...FrameMetrics) *History {
	h := NewHistory(HistorySize)
	for _, m := range frames {
		h.Push(m)
	}
	return h
}

func TestClassifyServeSwing(t *testing.T) {
	th := DefaultHeuristicThresholds()

	// Wrist sweeping upward at 0.02 per frame through the contact zone,
	// mid-range shoulder, hips rotated: the serve signature.
	mk := func(wristY float64) FrameMetrics {
		return FrameMetrics{
			MetricRightWristY:       wristY,
			MetricRightHipY:         0.60,
			MetricShoulderAbduction: 60,
			MetricHipRotation:       5,
		}
	}
	history := historyOf(mk(0.60), mk(0.58), mk(0.56))

	cls := th.Classify(mk(0.54), history, nil, "")

	assert.Equal(t, StrokeServe, cls.Type)
	assert.Equal(t, "underhand", cls.SubType)
	assert.GreaterOrEqual(t, cls.Confidence, 0.75)
}

func TestClassifyServeTargetBoost(t *testing.T) {
	th := DefaultHeuristicThresholds()

	mk := func(wristY float64) FrameMetrics {
		return FrameMetrics{
			MetricRightWristY:       wristY,
			MetricRightHipY:         0.60,
			MetricShoulderAbduction: 60,
			MetricHipRotation:       5,
		}
	}
	history := historyOf(mk(0.60), mk(0.58), mk(0.56))

	cls := th.Classify(mk(0.54), history, nil, StrokeServe)

	assert.Equal(t, StrokeServe, cls.Type)
	assert.GreaterOrEqual(t, cls.Confidence, 0.85)
}

func TestClassifyServeTargetSuppressesOthers(t *testing.T) {
	th := DefaultHeuristicThresholds()

	// A clear dink pose. With a serve hint it must come back unknown, never
	// mislabeled as a different stroke.
	m := FrameMetrics{
		MetricRightWristY:       0.70,
		MetricRightHipY:         0.50,
		MetricShoulderAbduction: 40,
		MetricKneeFlexion:       40,
	}
	history := historyOf(FrameMetrics{MetricRightWristY: 0.705})

	unbiased := th.Classify(m, history, nil, "")
	require.Equal(t, StrokeDink, unbiased.Type)

	biased := th.Classify(m, history, nil, StrokeServe)
	assert.Equal(t, StrokeUnknown, biased.Type)
	assert.Equal(t, "unclassified", biased.SubType)
}

func TestClassifyOverhead(t *testing.T) {
	th := DefaultHeuristicThresholds()

	m := FrameMetrics{
		MetricRightWristY:       0.20,
		MetricNoseY:             0.30,
		MetricShoulderAbduction: 140,
	}

	cls := th.Classify(m, NewHistory(HistorySize), nil, "")

	assert.Equal(t, StrokeOverhead, cls.Type)
	assert.Equal(t, "smash", cls.SubType)
	assert.InDelta(t, 0.95, cls.Confidence, 0.001)
}

func TestClassifyDink(t *testing.T) {
	th := DefaultHeuristicThresholds()

	m := FrameMetrics{
		MetricRightWristY:       0.70,
		MetricRightHipY:         0.50,
		MetricShoulderAbduction: 40,
		MetricKneeFlexion:       40,
	}
	history := historyOf(FrameMetrics{MetricRightWristY: 0.705})

	cls := th.Classify(m, history, nil, "")

	assert.Equal(t, StrokeDink, cls.Type)
	assert.Equal(t, "soft_game", cls.SubType)
	assert.GreaterOrEqual(t, cls.Confidence, 0.75)
}

func TestClassifyVolleyPunchAndBlock(t *testing.T) {
	th := DefaultHeuristicThresholds()

	mk := func(shoulder float64) FrameMetrics {
		return FrameMetrics{
			MetricRightWristY:       0.45,
			MetricRightHipY:         0.50,
			MetricShoulderAbduction: shoulder,
		}
	}
	history := historyOf(FrameMetrics{MetricRightWristY: 0.452})

	punch := th.Classify(mk(60), history, nil, "")
	require.Equal(t, StrokeVolley, punch.Type)
	assert.Equal(t, "punch", punch.SubType)
	assert.InDelta(t, 0.85, punch.Confidence, 0.001)

	block := th.Classify(mk(40), history, nil, "")
	require.Equal(t, StrokeVolley, block.Type)
	assert.Equal(t, "block", block.SubType)
	assert.InDelta(t, 0.80, block.Confidence, 0.001)
}

func TestClassifyVolleyKitchenLineBonus(t *testing.T) {
	th := DefaultHeuristicThresholds()

	m := FrameMetrics{
		MetricRightWristY:       0.45,
		MetricRightHipY:         0.50,
		MetricShoulderAbduction: 60,
	}
	history := historyOf(FrameMetrics{MetricRightWristY: 0.452})

	cls := th.Classify(m, history, &CourtPosition{AtKitchenLine: true}, "")

	require.Equal(t, StrokeVolley, cls.Type)
	assert.InDelta(t, 0.90, cls.Confidence, 0.001)
}

func TestClassifyGroundstrokeSubTypes(t *testing.T) {
	th := DefaultHeuristicThresholds()

	// Shoulder at 100 sits above the volley band, inside the groundstroke
	// band, with enough hip rotation for the drive bonus.
	m := FrameMetrics{
		MetricShoulderAbduction: 100,
		MetricHipRotation:       15,
		MetricRightShoulderX:    0.60,
		MetricLeftShoulderX:     0.40,
		MetricRightWristY:       0.45,
		MetricRightHipY:         0.50,
	}

	cls := th.Classify(m, NewHistory(HistorySize), nil, "")

	require.Equal(t, StrokeGroundstroke, cls.Type)
	assert.Equal(t, "forehand_drive", cls.SubType)
	assert.InDelta(t, 0.85, cls.Confidence, 0.001)

	// Mirrored shoulders flip the sub-type.
	m[MetricRightShoulderX] = 0.40
	m[MetricLeftShoulderX] = 0.60
	cls = th.Classify(m, NewHistory(HistorySize), nil, "")
	require.Equal(t, StrokeGroundstroke, cls.Type)
	assert.Equal(t, "backhand_drive", cls.SubType)
}

func TestClassifyUnknownOnEmptyMetrics(t *testing.T) {
	th := DefaultHeuristicThresholds()

	cls := th.Classify(FrameMetrics{}, NewHistory(HistorySize), nil, "")

	assert.Equal(t, StrokeUnknown, cls.Type)
	assert.InDelta(t, 0.40, cls.Confidence, 0.001)
}

func TestWristVelocityNoHistory(t *testing.T) {
	velY, mag := WristVelocity(FrameMetrics{MetricRightWristY: 0.5}, NewHistory(HistorySize))
	assert.Equal(t, 0.0, velY)
	assert.Equal(t, 0.0, mag)
}

func TestWristVelocityDelta(t *testing.T) {
	history := historyOf(FrameMetrics{MetricRightWristY: 0.50})

	velY, mag := WristVelocity(FrameMetrics{MetricRightWristY: 0.47}, history)
	assert.InDelta(t, -0.03, velY, 1e-9)
	assert.InDelta(t, 0.03, mag, 1e-9)
}

func TestClassifySequenceMajorityVote(t *testing.T) {
	c := NewStrokeClassifier(DefaultHeuristicThresholds())

	dink := FrameMetrics{
		MetricRightWristY:       0.70,
		MetricRightHipY:         0.50,
		MetricShoulderAbduction: 40,
		MetricKneeFlexion:       40,
	}
	empty := FrameMetrics{}

	res := c.ClassifySequence([]FrameMetrics{dink, dink, dink, empty}, "")

	assert.Equal(t, StrokeDink, res.Type)
	assert.InDelta(t, 0.75, res.Confidence, 0.001)
	assert.Equal(t, 3, res.Votes[StrokeDink])
}

func TestClassifySequenceEmpty(t *testing.T) {
	c := NewStrokeClassifier(DefaultHeuristicThresholds())

	res := c.ClassifySequence(nil, "")

	assert.Equal(t, StrokeUnknown, res.Type)
	assert.Equal(t, 0.0, res.Confidence)
}
