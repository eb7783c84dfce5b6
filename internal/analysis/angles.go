package analysis

import (
	"fmt"
	"math"
)

// RiskTier grades a joint angle against its safe ranges.
type RiskTier string

const (
	RiskSafe     RiskTier = "safe"
	RiskCaution  RiskTier = "caution"
	RiskHigh     RiskTier = "high"
	RiskCritical RiskTier = "critical"
)

// Range is an inclusive angle interval in degrees.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// In reports whether v lies inside the range.
func (r Range) In(v float64) bool { return v >= r.Min && v <= r.Max }

// AngleThresholds holds the per-stroke safe-range tables used by the
// validators. Loaded once at startup; the scoring functions carry no
// embedded magic numbers.
type AngleThresholds struct {
	ShoulderSafeMax    float64
	ShoulderCautionMax float64
	ShoulderHighMax    float64
	ShoulderOverheadOK Range
	ElbowOptimal       map[StrokeType]Range
	ElbowDefault       Range
	KneeReady          Range
	KneeSafeMax        float64
	HipOptimal         map[StrokeType]Range
	HipDefault         Range
	HipPowerThreshold  float64
}

// DefaultAngleThresholds returns the validated threshold tables.
func DefaultAngleThresholds() AngleThresholds {
	return AngleThresholds{
		ShoulderSafeMax:    120,
		ShoulderCautionMax: 140,
		ShoulderHighMax:    160,
		ShoulderOverheadOK: Range{120, 160},
		ElbowOptimal: map[StrokeType]Range{
			StrokeServe:        {90, 120},
			StrokeGroundstroke: {120, 160},
			StrokeDink:         {90, 110},
			StrokeVolley:       {90, 120},
			StrokeOverhead:     {90, 170},
		},
		ElbowDefault: Range{90, 160},
		KneeReady:    Range{20, 30},
		KneeSafeMax:  90,
		HipOptimal: map[StrokeType]Range{
			StrokeServe:        {10, 20},
			StrokeGroundstroke: {45, 90},
			StrokeDink:         {0, 15},
			StrokeVolley:       {10, 30},
			StrokeOverhead:     {60, 120},
		},
		HipDefault:        Range{0, 45},
		HipPowerThreshold: 30,
	}
}

// Angle computes the angle at b formed by points a-b-c, in degrees [0,180].
// Vectors b→a and b→c are taken in 3D (z defaults to 0 on 2D input). The
// cosine is clamped to [-1,1] before arccos so floating-point noise never
// produces a domain error. Any absent point yields 0.
func Angle(a, b, c *Landmark) float64 {
	if a == nil || b == nil || c == nil {
		return 0.0
	}

	bax, bay, baz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	bcx, bcy, bcz := c.X-b.X, c.Y-b.Y, c.Z-b.Z

	dot := bax*bcx + bay*bcy + baz*bcz
	normBA := math.Sqrt(bax*bax + bay*bay + baz*baz)
	normBC := math.Sqrt(bcx*bcx + bcy*bcy + bcz*bcz)

	cos := dot / (normBA*normBC + 1e-6)
	cos = math.Max(-1.0, math.Min(1.0, cos))

	return math.Acos(cos) * 180 / math.Pi
}

// HipRotation approximates torso rotation from the hip line tilt:
// atan(|Δy|/|Δx|) between the two hips, in degrees. This is a proxy, not a
// true 3D rotation: it degenerates to 0 when the hips are horizontally
// aligned (Δx = 0). The downstream power thresholds were tuned against this
// exact formula, so it is kept as-is.
func HipRotation(left, right *Landmark) float64 {
	if left == nil || right == nil {
		return 0.0
	}

	dx := math.Abs(right.X - left.X)
	dy := math.Abs(right.Y - left.Y)
	if dx <= 0 {
		return 0.0
	}
	return math.Atan(dy/dx) * 180 / math.Pi
}

// WristOffset returns the wrist position relative to the body center as
// (dx, dy, distance) in normalized coordinates.
func WristOffset(centerX, centerY float64, wrist *Landmark) (float64, float64, float64) {
	if wrist == nil {
		return 0, 0, 0
	}
	dx := wrist.X - centerX
	dy := wrist.Y - centerY
	return dx, dy, math.Sqrt(dx*dx + dy*dy)
}

// ShoulderVerdict is the validated shoulder-abduction assessment.
type ShoulderVerdict struct {
	Angle           float64  `json:"angle"`
	Risk            RiskTier `json:"risk_level"`
	WithinSafeRange bool     `json:"within_safe_range"`
}

// ShoulderAbduction computes hip-shoulder-elbow abduction and grades it.
// The overhead smash gets an exception band where high abduction is
// biomechanically expected.
func (t AngleThresholds) ShoulderAbduction(shoulder, elbow, hip *Landmark, stroke StrokeType) ShoulderVerdict {
	angle := Angle(hip, shoulder, elbow)

	var risk RiskTier
	switch {
	case angle < t.ShoulderSafeMax:
		risk = RiskSafe
	case angle < t.ShoulderCautionMax:
		risk = RiskCaution
	case angle < t.ShoulderHighMax:
		risk = RiskHigh
	default:
		risk = RiskCritical
	}

	withinSafe := angle < t.ShoulderSafeMax
	if stroke == StrokeOverhead {
		if t.ShoulderOverheadOK.In(angle) {
			risk = RiskSafe
			withinSafe = true
		} else {
			withinSafe = false
		}
	}

	return ShoulderVerdict{
		Angle:           round1(angle),
		Risk:            risk,
		WithinSafeRange: withinSafe,
	}
}

// ElbowVerdict is the validated elbow-flexion assessment.
type ElbowVerdict struct {
	Angle         float64 `json:"angle"`
	OptimalRange  Range   `json:"optimal_range"`
	WithinOptimal bool    `json:"within_optimal"`
	Feedback      string  `json:"feedback"`
}

// ElbowFlexion computes shoulder-elbow-wrist flexion against the
// stroke-specific optimal band.
func (t AngleThresholds) ElbowFlexion(shoulder, elbow, wrist *Landmark, stroke StrokeType) ElbowVerdict {
	angle := Angle(shoulder, elbow, wrist)

	optimal, ok := t.ElbowOptimal[stroke]
	if !ok {
		optimal = t.ElbowDefault
	}

	var feedback string
	switch {
	case angle < optimal.Min:
		feedback = fmt.Sprintf("Elbow too bent (< %.0f°)", optimal.Min)
	case angle > optimal.Max:
		feedback = fmt.Sprintf("Elbow over-extended (> %.0f°)", optimal.Max)
	default:
		feedback = "Optimal elbow angle"
	}

	return ElbowVerdict{
		Angle:         round1(angle),
		OptimalRange:  optimal,
		WithinOptimal: optimal.In(angle),
		Feedback:      feedback,
	}
}

// KneeVerdict is the validated knee-flexion assessment.
type KneeVerdict struct {
	Angle           float64 `json:"angle"`
	StressLevel     string  `json:"stress_level"`
	InReadyPosition bool    `json:"in_ready_position"`
	Feedback        string  `json:"feedback"`
}

// KneeFlexion computes hip-knee-ankle flexion with patellar stress grading.
func (t AngleThresholds) KneeFlexion(hip, knee, ankle *Landmark) KneeVerdict {
	angle := Angle(hip, knee, ankle)

	var stress, feedback string
	switch {
	case angle > t.KneeSafeMax:
		stress = "high"
		feedback = fmt.Sprintf("Deep knee flexion (>%.0f°) - patellar stress risk", t.KneeSafeMax)
	case angle < 20:
		stress = "low"
		feedback = "Legs too straight - poor athletic stance"
	default:
		stress = "normal"
		feedback = "Good athletic stance"
	}

	return KneeVerdict{
		Angle:           round1(angle),
		StressLevel:     stress,
		InReadyPosition: t.KneeReady.In(angle),
		Feedback:        feedback,
	}
}

// HipVerdict is the validated hip-rotation assessment.
type HipVerdict struct {
	Angle           float64 `json:"angle"`
	OptimalRange    Range   `json:"optimal_range"`
	WithinOptimal   bool    `json:"within_optimal"`
	PowerGeneration string  `json:"power_generation"`
	Feedback        string  `json:"feedback"`
}

// HipRotationVerdict grades the hip-rotation proxy for power generation.
func (t AngleThresholds) HipRotationVerdict(left, right *Landmark, stroke StrokeType) HipVerdict {
	rotation := HipRotation(left, right)

	optimal, ok := t.HipOptimal[stroke]
	if !ok {
		optimal = t.HipDefault
	}

	var power, feedback string
	switch {
	case rotation >= optimal.Min:
		power = "good"
		feedback = "Good hip rotation for power"
	case rotation >= t.HipPowerThreshold:
		power = "moderate"
		feedback = "Moderate hip rotation"
	default:
		power = "poor"
		feedback = "Insufficient hip rotation - using arm only"
	}

	return HipVerdict{
		Angle:           round1(rotation),
		OptimalRange:    optimal,
		WithinOptimal:   optimal.In(rotation),
		PowerGeneration: power,
		Feedback:        feedback,
	}
}

// Biomechanics bundles all validated joint verdicts for a frame.
type Biomechanics struct {
	Shoulder *ShoulderVerdict `json:"shoulder_abduction,omitempty"`
	Elbow    *ElbowVerdict    `json:"elbow_flexion,omitempty"`
	Knee     *KneeVerdict     `json:"knee_flexion,omitempty"`
	Hip      *HipVerdict      `json:"hip_rotation,omitempty"`
}

// Validate runs every validator that has its joints present and returns the
// bundled verdicts for injury-risk analysis.
func (t AngleThresholds) Validate(pose Pose, stroke StrokeType) Biomechanics {
	var bio Biomechanics

	rShoulder := pose.Joint(JointRightShoulder)
	rElbow := pose.Joint(JointRightElbow)
	rWrist := pose.Joint(JointRightWrist)
	rHip := pose.Joint(JointRightHip)
	rKnee := pose.Joint(JointRightKnee)
	rAnkle := pose.Joint(JointRightAnkle)
	lHip := pose.Joint(JointLeftHip)

	if rShoulder != nil && rElbow != nil && rHip != nil {
		v := t.ShoulderAbduction(rShoulder, rElbow, rHip, stroke)
		bio.Shoulder = &v
	}
	if rShoulder != nil && rElbow != nil && rWrist != nil {
		v := t.ElbowFlexion(rShoulder, rElbow, rWrist, stroke)
		bio.Elbow = &v
	}
	if rHip != nil && rKnee != nil && rAnkle != nil {
		v := t.KneeFlexion(rHip, rKnee, rAnkle)
		bio.Knee = &v
	}
	if lHip != nil && rHip != nil {
		v := t.HipRotationVerdict(lHip, rHip, stroke)
		bio.Hip = &v
	}

	return bio
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
