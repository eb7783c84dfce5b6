package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lm(x, y float64) *Landmark {
	return &Landmark{X: x, Y: y, Visibility: 1}
}

func TestAngleColinear(t *testing.T) {
	a := lm(0, 0)
	b := lm(1, 0)
	c := lm(2, 0)

	assert.InDelta(t, 180.0, Angle(a, b, c), 0.1)
}

func TestAngleRightAngle(t *testing.T) {
	a := lm(1, 0)
	b := lm(0, 0)
	c := lm(0, 1)

	assert.InDelta(t, 90.0, Angle(a, b, c), 0.1)
}

func TestAngleMissingPoint(t *testing.T) {
	assert.Equal(t, 0.0, Angle(nil, lm(0, 0), lm(1, 1)))
	assert.Equal(t, 0.0, Angle(lm(0, 0), nil, lm(1, 1)))
	assert.Equal(t, 0.0, Angle(lm(0, 0), lm(1, 1), nil))
}

func TestAngleDegeneratePoints(t *testing.T) {
	// Coincident points must not panic or produce NaN.
	p := lm(0.5, 0.5)
	got := Angle(p, p, p)
	assert.False(t, math.IsNaN(got))
}

func TestHipRotation(t *testing.T) {
	// Level hips: no rotation signal.
	assert.Equal(t, 0.0, HipRotation(lm(0.4, 0.5), lm(0.6, 0.5)))

	// 45 degree tilt.
	assert.InDelta(t, 45.0, HipRotation(lm(0.4, 0.4), lm(0.6, 0.6)), 0.1)

	// Vertically stacked hips degenerate to zero rather than 90.
	assert.Equal(t, 0.0, HipRotation(lm(0.5, 0.4), lm(0.5, 0.6)))

	assert.Equal(t, 0.0, HipRotation(nil, lm(0.5, 0.5)))
}

// angleFixture returns (a, b, c) landmarks forming the given angle at b.
func angleFixture(deg float64) (*Landmark, *Landmark, *Landmark) {
	rad := deg * math.Pi / 180
	return lm(1, 0), lm(0, 0), lm(math.Cos(rad), math.Sin(rad))
}

func TestShoulderAbductionTiers(t *testing.T) {
	th := DefaultAngleThresholds()

	cases := []struct {
		angle  float64
		stroke StrokeType
		risk   RiskTier
	}{
		{100, StrokeGroundstroke, RiskSafe},
		{130, StrokeGroundstroke, RiskCaution},
		{150, StrokeGroundstroke, RiskHigh},
		{170, StrokeGroundstroke, RiskCritical},
		// Overhead exception: 120-160 is expected mechanics.
		{150, StrokeOverhead, RiskSafe},
		{170, StrokeOverhead, RiskCritical},
	}

	for _, tc := range cases {
		hip, shoulder, elbow := angleFixture(tc.angle)
		v := th.ShoulderAbduction(shoulder, elbow, hip, tc.stroke)
		assert.Equal(t, tc.risk, v.Risk, "angle %.0f stroke %s", tc.angle, tc.stroke)
		assert.InDelta(t, tc.angle, v.Angle, 0.1)
	}
}

func TestElbowFlexionPerStroke(t *testing.T) {
	th := DefaultAngleThresholds()

	shoulder, elbow, wrist := angleFixture(100)

	v := th.ElbowFlexion(shoulder, elbow, wrist, StrokeServe)
	assert.True(t, v.WithinOptimal, "100 in serve band 90-120")

	v = th.ElbowFlexion(shoulder, elbow, wrist, StrokeGroundstroke)
	assert.False(t, v.WithinOptimal, "100 below groundstroke band 120-160")
	assert.Contains(t, v.Feedback, "too bent")

	// Unknown stroke falls back to the default band.
	v = th.ElbowFlexion(shoulder, elbow, wrist, StrokeUnknown)
	assert.True(t, v.WithinOptimal)
}

func TestKneeFlexionStress(t *testing.T) {
	th := DefaultAngleThresholds()

	hip, knee, ankle := angleFixture(120)
	v := th.KneeFlexion(hip, knee, ankle)
	assert.Equal(t, "high", v.StressLevel)

	hip, knee, ankle = angleFixture(10)
	v = th.KneeFlexion(hip, knee, ankle)
	assert.Equal(t, "low", v.StressLevel)

	hip, knee, ankle = angleFixture(25)
	v = th.KneeFlexion(hip, knee, ankle)
	assert.Equal(t, "normal", v.StressLevel)
	assert.True(t, v.InReadyPosition)
}

func TestHipRotationPowerGrading(t *testing.T) {
	th := DefaultAngleThresholds()

	// 50 degree tilt meets the groundstroke optimal minimum of 45.
	v := th.HipRotationVerdict(lm(0.4, 0.4), lm(0.5, 0.519), StrokeGroundstroke)
	assert.Equal(t, "good", v.PowerGeneration)

	// 35 degrees: below optimal but above the 30 degree power floor.
	v = th.HipRotationVerdict(lm(0.4, 0.4), lm(0.5, 0.47), StrokeGroundstroke)
	assert.Equal(t, "moderate", v.PowerGeneration)

	// Level hips: arm-only swing.
	v = th.HipRotationVerdict(lm(0.4, 0.5), lm(0.6, 0.5), StrokeGroundstroke)
	assert.Equal(t, "poor", v.PowerGeneration)
}

func TestValidateBundlesPresentJoints(t *testing.T) {
	pose := make(Pose, NumJoints)
	for i := range pose {
		pose[i] = Landmark{Name: JointNames[i], X: 0.5, Y: 0.5, Visibility: 1}
	}
	// Spread the arm joints so the angles are non-degenerate.
	pose[JointRightShoulder] = Landmark{X: 0.6, Y: 0.3}
	pose[JointRightElbow] = Landmark{X: 0.7, Y: 0.45}
	pose[JointRightWrist] = Landmark{X: 0.75, Y: 0.6}
	pose[JointRightHip] = Landmark{X: 0.55, Y: 0.55}
	pose[JointLeftHip] = Landmark{X: 0.45, Y: 0.55}
	pose[JointRightKnee] = Landmark{X: 0.56, Y: 0.75}
	pose[JointRightAnkle] = Landmark{X: 0.57, Y: 0.95}

	th := DefaultAngleThresholds()
	bio := th.Validate(pose, StrokeGroundstroke)

	require.NotNil(t, bio.Shoulder)
	require.NotNil(t, bio.Elbow)
	require.NotNil(t, bio.Knee)
	require.NotNil(t, bio.Hip)
}

func TestValidateEmptyPose(t *testing.T) {
	th := DefaultAngleThresholds()
	bio := th.Validate(Pose{}, StrokeServe)

	assert.Nil(t, bio.Shoulder)
	assert.Nil(t, bio.Elbow)
	assert.Nil(t, bio.Knee)
	assert.Nil(t, bio.Hip)
}
