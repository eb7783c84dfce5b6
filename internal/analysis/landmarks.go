package analysis

// Landmark is a single body joint in region-normalized coordinates.
// x and y are in [0,1] relative to the pose crop, z is depth relative to the
// hip midpoint, visibility is the estimator's confidence that the joint is
// visible. All upstream pose API variants are adapted to this type at the
// vision boundary; nothing below it branches on the concrete estimator.
type Landmark struct {
	Name       string  `json:"name"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Joint indices in the 33-landmark pose topology.
const (
	JointNose = iota
	JointLeftEyeInner
	JointLeftEye
	JointLeftEyeOuter
	JointRightEyeInner
	JointRightEye
	JointRightEyeOuter
	JointLeftEar
	JointRightEar
	JointMouthLeft
	JointMouthRight
	JointLeftShoulder
	JointRightShoulder
	JointLeftElbow
	JointRightElbow
	JointLeftWrist
	JointRightWrist
	JointLeftPinky
	JointRightPinky
	JointLeftIndex
	JointRightIndex
	JointLeftThumb
	JointRightThumb
	JointLeftHip
	JointRightHip
	JointLeftKnee
	JointRightKnee
	JointLeftAnkle
	JointRightAnkle
	JointLeftHeel
	JointRightHeel
	JointLeftFootIndex
	JointRightFootIndex

	NumJoints
)

// JointNames maps joint index to its semantic name, in topology order.
var JointNames = [NumJoints]string{
	"nose", "left_eye_inner", "left_eye", "left_eye_outer",
	"right_eye_inner", "right_eye", "right_eye_outer",
	"left_ear", "right_ear", "mouth_left", "mouth_right",
	"left_shoulder", "right_shoulder", "left_elbow", "right_elbow",
	"left_wrist", "right_wrist", "left_pinky", "right_pinky",
	"left_index", "right_index", "left_thumb", "right_thumb",
	"left_hip", "right_hip", "left_knee", "right_knee",
	"left_ankle", "right_ankle", "left_heel", "right_heel",
	"left_foot_index", "right_foot_index",
}

// Pose is one detected pose: exactly NumJoints landmarks in topology order.
type Pose []Landmark

// Joint returns the landmark at the given index, or nil when the pose is
// incomplete. Callers treat nil as "joint absent this frame".
func (p Pose) Joint(idx int) *Landmark {
	if idx < 0 || idx >= len(p) {
		return nil
	}
	return &p[idx]
}
