package analysis

import "math"

// FrameResult is one analyzed frame in the output payload. FrameIdx is
// emitted under both key styles for consumer compatibility.
type FrameResult struct {
	FrameIdx     int             `json:"frameIdx"`
	FrameIdxAlt  int             `json:"frame_idx"`
	TimestampSec float64         `json:"timestampSec"`
	BBox         [4]float64      `json:"bbox"`
	Confidence   float64         `json:"confidence"`
	TrackID      int             `json:"track_id"`
	Metrics      FrameMetrics    `json:"metrics,omitempty"`
	Landmarks    []Landmark      `json:"landmarks,omitempty"`
	Stroke       *Classification `json:"stroke,omitempty"`
	Biomechanics *Biomechanics   `json:"biomechanics,omitempty"`
	Feedback     []string        `json:"feedback,omitempty"`
	Risks        []FrameRisk     `json:"risks,omitempty"`
}

// StrokeEvent is an accepted stroke segment with timing resolved against
// the video frame rate.
type StrokeEvent struct {
	StartFrame    int        `json:"start_frame"`
	EndFrame      int        `json:"end_frame"`
	Type          StrokeType `json:"stroke_type"`
	Confidence    float64    `json:"confidence"`
	PeakVelocity  float64    `json:"peak_velocity"`
	PeakFrame     int        `json:"peak_frame_idx"`
	PeakTimestamp float64    `json:"peak_timestamp"`
	StartSec      float64    `json:"startSec"`
	EndSec        float64    `json:"endSec"`
	TrackID       int        `json:"track_id"`
}

// SessionSummary aggregates movement statistics over the whole video.
type SessionSummary struct {
	TotalDistanceM     float64    `json:"total_distance_m"`
	AvgSpeedKmh        float64    `json:"avg_speed_kmh"`
	TrackedDurationSec float64    `json:"tracked_duration_sec"`
	DominantStroke     StrokeType `json:"dominant_stroke"`
}

// Result is the complete analysis payload for one video.
type Result struct {
	Frames            []FrameResult  `json:"frames"`
	Strokes           []StrokeEvent  `json:"strokes"`
	Summary           SessionSummary `json:"summary"`
	InjuryRiskSummary RiskSummary    `json:"injury_risk_summary"`
}

func strokeEvent(seg Segment, fps float64) StrokeEvent {
	return StrokeEvent{
		StartFrame:    seg.StartFrame,
		EndFrame:      seg.EndFrame,
		Type:          seg.Type,
		Confidence:    round2(seg.Confidence),
		PeakVelocity:  round2(seg.PeakVelocity),
		PeakFrame:     seg.PeakFrame,
		PeakTimestamp: round3(float64(seg.PeakFrame) / fps),
		StartSec:      round2(float64(seg.StartFrame) / fps),
		EndSec:        round2(float64(seg.EndFrame) / fps),
		TrackID:       seg.TrackID,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
