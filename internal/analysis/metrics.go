package analysis

import "math"

// FrameMetrics is the per-frame set of biomechanical measurements keyed by
// semantic name. Angles are degrees, raw coordinates are region-normalized,
// booleans are stored as 0/1. Immutable once produced.
type FrameMetrics map[string]float64

// Metric keys.
const (
	MetricFrameIdx          = "frame_idx"
	MetricElbowFlexion      = "right_elbow_flexion"
	MetricShoulderAbduction = "right_shoulder_abduction"
	MetricKneeFlexion       = "right_knee_flexion"
	MetricLeftKneeFlexion   = "left_knee_flexion"
	MetricHipRotation       = "hip_rotation_deg"
	MetricWristBodyDist     = "wrist_to_body_distance_norm"
	MetricWristVecX         = "wrist_vector_x"
	MetricWristVecY         = "wrist_vector_y"
	MetricWristAboveWaist   = "wrist_above_waist"
	MetricWristAboveHead    = "wrist_above_head"
	MetricRightShoulderX    = "right_shoulder_x"
	MetricLeftShoulderX     = "left_shoulder_x"
	MetricRightWristY       = "right_wrist_y"
	MetricRightHipY         = "right_hip_y"
	MetricNoseY             = "nose_y"
	MetricWristVelocityY    = "wrist_velocity_y"
)

// Get returns the named metric or def when absent. The heuristics rely on
// these defaults to stay total over partial poses.
func (m FrameMetrics) Get(key string, def float64) float64 {
	if m == nil {
		return def
	}
	if v, ok := m[key]; ok {
		return v
	}
	return def
}

// FrameIdx returns the literal frame index the metrics were computed for.
func (m FrameMetrics) FrameIdx() int {
	return int(m.Get(MetricFrameIdx, 0))
}

// ComputeMetrics derives the frame metrics from a pose. The right side is
// treated as the racquet arm. Returns an empty map (not nil) for a nil pose
// so downstream lookups keep their defaults.
func ComputeMetrics(frameIdx int, pose Pose) FrameMetrics {
	m := FrameMetrics{MetricFrameIdx: float64(frameIdx)}
	if pose == nil {
		return m
	}

	rShoulder := pose.Joint(JointRightShoulder)
	rElbow := pose.Joint(JointRightElbow)
	rWrist := pose.Joint(JointRightWrist)
	rHip := pose.Joint(JointRightHip)
	rKnee := pose.Joint(JointRightKnee)
	rAnkle := pose.Joint(JointRightAnkle)
	lShoulder := pose.Joint(JointLeftShoulder)
	lHip := pose.Joint(JointLeftHip)
	lKnee := pose.Joint(JointLeftKnee)
	lAnkle := pose.Joint(JointLeftAnkle)
	nose := pose.Joint(JointNose)

	if rShoulder != nil && rElbow != nil && rWrist != nil {
		m[MetricElbowFlexion] = round1(Angle(rShoulder, rElbow, rWrist))
	}
	if rHip != nil && rShoulder != nil && rElbow != nil {
		m[MetricShoulderAbduction] = round1(Angle(rHip, rShoulder, rElbow))
	}
	if rHip != nil && rKnee != nil && rAnkle != nil {
		m[MetricKneeFlexion] = round1(Angle(rHip, rKnee, rAnkle))
	}
	if lHip != nil && lKnee != nil && lAnkle != nil {
		m[MetricLeftKneeFlexion] = round1(Angle(lHip, lKnee, lAnkle))
	}
	if rHip != nil && lHip != nil {
		m[MetricHipRotation] = round1(HipRotation(lHip, rHip))
	}

	if rWrist != nil && rHip != nil && lHip != nil {
		midX := (rHip.X + lHip.X) / 2
		midY := (rHip.Y + lHip.Y) / 2
		dx, dy, dist := WristOffset(midX, midY, rWrist)
		m[MetricWristBodyDist] = round3(dist)
		m[MetricWristVecX] = round3(dx)
		m[MetricWristVecY] = round3(dy)

		// y grows downward: wrist above the waist means wrist.y < mid-hip.y.
		m[MetricWristAboveWaist] = boolMetric(rWrist.Y < midY)
		if nose != nil {
			m[MetricWristAboveHead] = boolMetric(rWrist.Y < nose.Y)
		}
	}

	if rShoulder != nil && lShoulder != nil {
		m[MetricRightShoulderX] = rShoulder.X
		m[MetricLeftShoulderX] = lShoulder.X
	}
	if rWrist != nil {
		m[MetricRightWristY] = rWrist.Y
	}
	if rHip != nil {
		m[MetricRightHipY] = rHip.Y
	}
	if nose != nil {
		m[MetricNoseY] = nose.Y
	}

	return m
}

// StrokeFeedback returns coaching feedback lines for the frame given the
// operator's stroke hint. Empty when nothing is flagged.
func StrokeFeedback(m FrameMetrics, stroke StrokeType) []string {
	var feedback []string

	switch stroke {
	case StrokeServe:
		// Legal serve contact is below the waist; y grows downward.
		if wristY, ok := m[MetricRightWristY]; ok {
			if hipY, ok := m[MetricRightHipY]; ok && wristY < hipY {
				feedback = append(feedback, "FAULT: Contact point too high (Above waist)")
			}
		}
		if m.Get(MetricHipRotation, 0) < 10 {
			feedback = append(feedback, "Power: Rotate hips more before contact")
		}
	case StrokeDink:
		if m.Get(MetricKneeFlexion, 180) > 150 {
			feedback = append(feedback, "Form: Get Lower! Bend your knees, not just your back.")
		}
	case StrokeOverhead:
		if m.Get(MetricElbowFlexion, 0) < 150 {
			feedback = append(feedback, "Power: Extend arm fully at contact")
		}
	}

	return feedback
}

func boolMetric(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
