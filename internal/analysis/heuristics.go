package analysis

import "math"

// Strokes are distinguished by MOTION (wrist velocity) as much as by
// position: a serve and a ready stance can share a pose but never a swing.
// Each rule below combines position bands with velocity signals from the
// bounded frame history, and the classifier tries them in a fixed priority
// order, most distinctive first.

// OverheadThresholds gates the overhead smash rule.
type OverheadThresholds struct {
	MinShoulderAbduction float64 `yaml:"min_shoulder_abduction"`
	MinWristAboveNose    float64 `yaml:"min_wrist_above_nose"`
	ConfidenceHigh       float64 `yaml:"confidence_high"`
}

// ServeThresholds gates the serve rule (point-scored).
type ServeThresholds struct {
	MaxWristAboveHip      float64 `yaml:"max_wrist_above_hip"`
	MinShoulderAbduction  float64 `yaml:"min_shoulder_abduction"`
	MaxShoulderAbduction  float64 `yaml:"max_shoulder_abduction"`
	MinHipRotation        float64 `yaml:"min_hip_rotation"`
	MinWristVelocity      float64 `yaml:"min_wrist_velocity"`
	PeakVelocityThreshold float64 `yaml:"peak_velocity_threshold"`
	MinUpwardFrames       int     `yaml:"min_upward_frames"`
}

// GroundstrokeThresholds gates the groundstroke rule.
type GroundstrokeThresholds struct {
	MinShoulderAbduction float64 `yaml:"min_shoulder_abduction"`
	MaxShoulderAbduction float64 `yaml:"max_shoulder_abduction"`
	MinHipRotation       float64 `yaml:"min_hip_rotation"`
}

// VolleyThresholds gates the volley rule.
type VolleyThresholds struct {
	MinShoulderAbduction float64 `yaml:"min_shoulder_abduction"`
	MaxShoulderAbduction float64 `yaml:"max_shoulder_abduction"`
	MaxWristVelocity     float64 `yaml:"max_wrist_velocity"`
	PunchMinShoulder     float64 `yaml:"punch_min_shoulder"`
}

// DinkThresholds gates the dink rule (point-scored).
type DinkThresholds struct {
	MaxShoulderAbduction float64 `yaml:"max_shoulder_abduction"`
	MaxWristVelocity     float64 `yaml:"max_wrist_velocity"`
	MinKneeFlexion       float64 `yaml:"min_knee_flexion"`
	MaxKneeFlexion       float64 `yaml:"max_knee_flexion"`
}

// HeuristicThresholds is the full per-stroke rule configuration, loaded once
// at startup.
type HeuristicThresholds struct {
	Overhead     OverheadThresholds     `yaml:"overhead"`
	Serve        ServeThresholds        `yaml:"serve"`
	Groundstroke GroundstrokeThresholds `yaml:"groundstroke"`
	Volley       VolleyThresholds       `yaml:"volley"`
	Dink         DinkThresholds         `yaml:"dink"`
}

// DefaultHeuristicThresholds returns the tuned rule tables. Velocity values
// are per-frame deltas in normalized [0,1] coordinate space.
func DefaultHeuristicThresholds() HeuristicThresholds {
	return HeuristicThresholds{
		Overhead: OverheadThresholds{
			MinShoulderAbduction: 110,
			MinWristAboveNose:    0.05,
			ConfidenceHigh:       130,
		},
		Serve: ServeThresholds{
			MaxWristAboveHip:      0.20,
			MinShoulderAbduction:  20,
			MaxShoulderAbduction:  100,
			MinHipRotation:        3,
			MinWristVelocity:      0.008,
			PeakVelocityThreshold: 0.02,
			MinUpwardFrames:       2,
		},
		Groundstroke: GroundstrokeThresholds{
			MinShoulderAbduction: 45,
			MaxShoulderAbduction: 110,
			MinHipRotation:       10,
		},
		Volley: VolleyThresholds{
			MinShoulderAbduction: 30,
			MaxShoulderAbduction: 85,
			MaxWristVelocity:     0.015,
			PunchMinShoulder:     55,
		},
		Dink: DinkThresholds{
			MaxShoulderAbduction: 55,
			MaxWristVelocity:     0.012,
			MinKneeFlexion:       15,
			MaxKneeFlexion:       70,
		},
	}
}

// CourtPosition is optional external context about where the subject stands.
type CourtPosition struct {
	AtKitchenLine bool
}

// WristVelocity computes the first difference of the wrist y position
// between the current metrics and the newest history entry. velY < 0 means
// the wrist is moving up (y grows downward in image coordinates); the
// magnitude is the absolute per-frame delta.
func WristVelocity(current FrameMetrics, history *History) (velY, magnitude float64) {
	if history == nil || history.Len() == 0 {
		return 0, 0
	}
	prev := history.Last()

	currY := current.Get(MetricRightWristY, 0.5)
	prevY := prev.Get(MetricRightWristY, currY)
	velY = currY - prevY

	return velY, math.Abs(velY)
}

// countUpwardFrames counts consecutive upward wrist moves ending at the
// current frame.
func countUpwardFrames(current FrameMetrics, history *History) int {
	if history.Len() == 0 {
		return 0
	}

	count := 0
	currY := current.Get(MetricRightWristY, 0.5)
	prevY := history.Last().Get(MetricRightWristY, 0.5)
	if currY < prevY {
		count++
	} else {
		return 0
	}

	for i := history.Len() - 1; i > 0; i-- {
		y := history.At(i).Get(MetricRightWristY, 0.5)
		prev := history.At(i - 1).Get(MetricRightWristY, 0.5)
		if y < prev {
			count++
		} else {
			break
		}
	}
	return count
}

// recentVelocitySpike reports whether any of the last 5 history pairs showed
// wrist velocity at serve-swing magnitude. Used for the sticky
// follow-through boost.
func recentVelocitySpike(history *History) bool {
	if history.Len() < 2 {
		return false
	}
	start := history.Len() - 5
	if start < 1 {
		start = 1
	}
	for i := start; i < history.Len(); i++ {
		y := history.At(i).Get(MetricRightWristY, 0.5)
		prev := history.At(i - 1).Get(MetricRightWristY, y)
		if math.Abs(y-prev) >= 0.015 {
			return true
		}
	}
	return false
}

// isOverhead detects the overhead smash: wrist clearly above the head with
// high shoulder abduction.
func (t HeuristicThresholds) isOverhead(m FrameMetrics) (bool, float64) {
	wristY := m.Get(MetricRightWristY, 1.0)
	noseY := m.Get(MetricNoseY, 0.5)
	shoulderAbd := m.Get(MetricShoulderAbduction, 0)

	wristAboveHead := (noseY - wristY) >= t.Overhead.MinWristAboveNose
	highShoulder := shoulderAbd >= t.Overhead.MinShoulderAbduction

	if wristAboveHead && highShoulder {
		confidence := 0.85
		if shoulderAbd >= t.Overhead.ConfidenceHigh {
			confidence = 0.95
		}
		return true, confidence
	}
	return false, 0
}

// isServe scores the serve signature: wrist at/below waist, mid-range
// shoulder, hip rotation, and above all UPWARD wrist velocity (double
// weighted). A recent velocity spike keeps the follow-through phase
// classified as serve.
func (t HeuristicThresholds) isServe(m FrameMetrics, history *History) (bool, float64) {
	wristY := m.Get(MetricRightWristY, 0.5)
	hipY := m.Get(MetricRightHipY, 0.5)
	shoulderAbd := m.Get(MetricShoulderAbduction, 0)
	hipRotation := math.Abs(m.Get(MetricHipRotation, 0))

	wristAtWaist := (hipY - wristY) <= t.Serve.MaxWristAboveHip
	wristInFollowThrough := wristY < hipY

	shoulderInRange := shoulderAbd >= t.Serve.MinShoulderAbduction &&
		shoulderAbd <= t.Serve.MaxShoulderAbduction
	hasHipRotation := hipRotation >= t.Serve.MinHipRotation

	velY, velMag := WristVelocity(m, history)
	movingUp := velY < -0.005
	hasVelocity := velMag >= t.Serve.MinWristVelocity
	hasStrongVelocity := velMag >= t.Serve.PeakVelocityThreshold

	sustainedUpward := countUpwardFrames(m, history) >= t.Serve.MinUpwardFrames

	score := 0
	if wristAtWaist {
		score++
	}
	if shoulderInRange {
		score++
	}
	if hasHipRotation {
		score++
	}
	if movingUp {
		score += 2 // the key serve signature
	}
	if hasVelocity {
		score++
	}
	if sustainedUpward {
		score++
	}
	if hasStrongVelocity {
		score += 2
	}
	if recentVelocitySpike(history) && wristInFollowThrough && shoulderInRange {
		score += 2 // follow-through boost
	}

	if score >= 3 {
		confidence := math.Min(0.55+float64(score-3)*0.06, 0.95)
		return true, confidence
	}
	return false, 0
}

// isGroundstroke detects the baseline drive, sub-typed forehand/backhand by
// shoulder x-ordering and drive/control by abduction.
func (t HeuristicThresholds) isGroundstroke(m FrameMetrics) (bool, float64, string) {
	shoulderAbd := m.Get(MetricShoulderAbduction, 0)
	hipRotation := math.Abs(m.Get(MetricHipRotation, 0))

	if shoulderAbd < t.Groundstroke.MinShoulderAbduction ||
		shoulderAbd > t.Groundstroke.MaxShoulderAbduction {
		return false, 0, ""
	}

	confidence := 0.75
	if hipRotation >= t.Groundstroke.MinHipRotation {
		confidence += 0.10
	}

	subType := "backhand"
	if m.Get(MetricRightShoulderX, 0.5) > m.Get(MetricLeftShoulderX, 0.5) {
		subType = "forehand"
	}
	if shoulderAbd >= 70 {
		subType += "_drive"
	} else {
		subType += "_control"
	}

	return true, math.Min(confidence, 0.95), subType
}

// isVolley detects the compact punch/block at the net.
func (t HeuristicThresholds) isVolley(m FrameMetrics, history *History, position *CourtPosition) (bool, float64, string) {
	shoulderAbd := m.Get(MetricShoulderAbduction, 0)

	if shoulderAbd < t.Volley.MinShoulderAbduction ||
		shoulderAbd > t.Volley.MaxShoulderAbduction {
		return false, 0, ""
	}

	_, velMag := WristVelocity(m, history)
	if velMag > t.Volley.MaxWristVelocity && history.Len() > 0 {
		return false, 0, ""
	}

	var subType string
	var confidence float64
	if shoulderAbd >= t.Volley.PunchMinShoulder {
		subType = "punch"
		confidence = 0.85
	} else {
		subType = "block"
		confidence = 0.80
	}

	if position != nil && position.AtKitchenLine {
		confidence += 0.05
	}

	return true, math.Min(confidence, 0.95), subType
}

// isDink scores the soft-game dink: low shoulder, soft touch (double
// weighted), ready-stance knees, wrist below waist.
func (t HeuristicThresholds) isDink(m FrameMetrics, history *History) (bool, float64, string) {
	shoulderAbd := m.Get(MetricShoulderAbduction, 0)
	kneeFlexion := m.Get(MetricKneeFlexion, 180)
	wristY := m.Get(MetricRightWristY, 0.5)
	hipY := m.Get(MetricRightHipY, 0.5)

	_, velMag := WristVelocity(m, history)

	score := 0
	if shoulderAbd <= t.Dink.MaxShoulderAbduction {
		score++
	}
	if velMag <= t.Dink.MaxWristVelocity {
		score += 2 // soft touch is the dink signature
	}
	if kneeFlexion >= t.Dink.MinKneeFlexion && kneeFlexion <= t.Dink.MaxKneeFlexion {
		score++
	}
	if wristY >= hipY {
		score++
	}

	if score >= 3 {
		confidence := math.Min(0.70+float64(score-3)*0.08, 0.95)
		return true, confidence, "soft_game"
	}
	return false, 0, ""
}

// Classify runs the priority-ordered stroke rules over one frame. targetType
// narrows which categories are attempted when the operator already knows the
// expected stroke; it never fabricates a positive. Returns unknown with low
// confidence when no rule fires.
func (t HeuristicThresholds) Classify(m FrameMetrics, history *History, position *CourtPosition, targetType StrokeType) Classification {
	// 1. Overhead - most distinctive.
	if ok, conf := t.isOverhead(m); ok && conf >= 0.80 {
		return Classification{Type: StrokeOverhead, Confidence: conf, SubType: "smash"}
	}

	// 2. Serve - velocity driven.
	if ok, conf := t.isServe(m, history); ok && conf >= 0.75 {
		if targetType == StrokeServe {
			// Serve clips must stay strict so ready stances and walking
			// never register, but a confirmed serve gets the hint boost.
			conf = math.Max(conf, 0.85)
		}
		return Classification{Type: StrokeServe, Confidence: conf, SubType: "underhand"}
	}

	// A serve hint suppresses all remaining categories: they are the usual
	// false positives on serve footage.
	if targetType == StrokeServe {
		return Classification{Type: StrokeUnknown, Confidence: 0.40, SubType: "unclassified"}
	}

	// 3. Dink - soft game.
	if ok, conf, sub := t.isDink(m, history); ok {
		if targetType == StrokeDink && conf >= 0.70 {
			return Classification{Type: StrokeDink, Confidence: math.Max(conf, 0.80), SubType: sub}
		}
		if conf >= 0.75 {
			return Classification{Type: StrokeDink, Confidence: conf, SubType: sub}
		}
	}

	// 4. Volley - compact punch.
	if ok, conf, sub := t.isVolley(m, history, position); ok && conf >= 0.75 {
		return Classification{Type: StrokeVolley, Confidence: conf, SubType: sub}
	}

	// 5. Groundstroke - baseline default.
	if ok, conf, sub := t.isGroundstroke(m); ok {
		if targetType == StrokeGroundstroke {
			conf = math.Max(conf, 0.80)
		}
		return Classification{Type: StrokeGroundstroke, Confidence: conf, SubType: sub}
	}

	return Classification{Type: StrokeUnknown, Confidence: 0.40, SubType: "unclassified"}
}
