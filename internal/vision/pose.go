package vision

import (
	"fmt"
	"math"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/courtvision/internal/analysis"
)

// PoseEstimator runs 33-landmark full-body pose estimation on a cropped
// subject region using ONNX Runtime.
type PoseEstimator struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	minPresence  float32
	inputW       int
	inputH       int
}

// Landmark head layout: 33 joints x (x, y, z, visibility, presence), with
// x/y/z in input-pixel scale and visibility/presence as logits.
const poseValuesPerJoint = 5

// NewPoseEstimator loads the pose landmark ONNX model.
// opts may be nil (ORT defaults) or a pre-configured *ort.SessionOptions.
func NewPoseEstimator(modelPath string, minPresence float32, opts *ort.SessionOptions) (*PoseEstimator, error) {
	inputW, inputH := 256, 256

	inputShape := ort.NewShape(1, 3, int64(inputH), int64(inputW))
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	outputShape := ort.NewShape(1, int64(analysis.NumJoints*poseValuesPerJoint))
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"},
		[]string{"landmarks"},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		opts,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("create pose session: %w", err)
	}

	return &PoseEstimator{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		minPresence:  minPresence,
		inputW:       inputW,
		inputH:       inputH,
	}, nil
}

// Estimate runs pose estimation on a preprocessed subject crop.
// imgData should be CHW format [3, inputH, inputW], normalized to [0,1].
// Returns nil (no error) when no pose is present in the region.
func (p *PoseEstimator) Estimate(imgData []float32) (analysis.Pose, error) {
	inputSlice := p.inputTensor.GetData()
	copy(inputSlice, imgData)

	if err := p.session.Run(); err != nil {
		return nil, fmt.Errorf("run pose estimation: %w", err)
	}

	out := p.outputTensor.GetData()

	// Gate on mean joint presence: a crop without a person produces noise
	// across all 33 joints, not a few weak ones.
	var presenceSum float32
	for j := 0; j < analysis.NumJoints; j++ {
		presenceSum += sigmoid(out[j*poseValuesPerJoint+4])
	}
	if presenceSum/float32(analysis.NumJoints) < p.minPresence {
		return nil, nil
	}

	pose := make(analysis.Pose, analysis.NumJoints)
	for j := 0; j < analysis.NumJoints; j++ {
		base := j * poseValuesPerJoint
		pose[j] = analysis.Landmark{
			Name:       analysis.JointNames[j],
			X:          float64(out[base+0] / float32(p.inputW)),
			Y:          float64(out[base+1] / float32(p.inputH)),
			Z:          float64(out[base+2] / float32(p.inputW)),
			Visibility: float64(sigmoid(out[base+3])),
		}
	}

	return pose, nil
}

// InputSize returns the model's expected input dimensions.
func (p *PoseEstimator) InputSize() (int, int) {
	return p.inputW, p.inputH
}

func (p *PoseEstimator) Close() {
	if p.session != nil {
		p.session.Destroy()
	}
	if p.inputTensor != nil {
		p.inputTensor.Destroy()
	}
	if p.outputTensor != nil {
		p.outputTensor.Destroy()
	}
}

func sigmoid(v float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(v))))
}
