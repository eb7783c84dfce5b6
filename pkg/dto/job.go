package dto

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/your-org/courtvision/internal/analysis"
)

type CreateJobRequest struct {
	VideoURL   string `json:"video_url" binding:"required"`
	StrokeType string `json:"stroke_type" binding:"omitempty,oneof=serve groundstroke volley dink overhead"`
	// CropRegion is a normalized "x1,y1,x2,y2" region where the subject
	// plays; TargetPoint a normalized "x,y" point on the subject.
	CropRegion  string `json:"crop_region,omitempty"`
	TargetPoint string `json:"target_point,omitempty"`
	Step        int    `json:"step"`
}

type JobResponse struct {
	ID          uuid.UUID `json:"id"`
	VideoURL    string    `json:"video_url"`
	Status      string    `json:"status"`
	StrokeType  string    `json:"stroke_type,omitempty"`
	CropRegion  string    `json:"crop_region,omitempty"`
	TargetPoint string    `json:"target_point,omitempty"`
	Step        int       `json:"step"`
	FPS         float64   `json:"fps,omitempty"`
	FrameCount  int       `json:"frame_count,omitempty"`
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   string    `json:"created_at"`
	UpdatedAt   string    `json:"updated_at"`
}

type JobListResponse struct {
	Jobs  []JobResponse `json:"jobs"`
	Total int           `json:"total"`
}

type StrokeResponse struct {
	ID        uuid.UUID            `json:"id"`
	JobID     uuid.UUID            `json:"job_id"`
	Event     analysis.StrokeEvent `json:"event"`
	CreatedAt string               `json:"created_at"`
}

type StrokeListResponse struct {
	Strokes []StrokeResponse `json:"strokes"`
	Total   int              `json:"total"`
}

type SimilarStrokeResponse struct {
	StrokeID   uuid.UUID `json:"stroke_id"`
	JobID      uuid.UUID `json:"job_id"`
	StrokeType string    `json:"stroke_type"`
	Confidence float64   `json:"confidence"`
	Score      float32   `json:"score"`
}

type SimilarStrokesResponse struct {
	Matches []SimilarStrokeResponse `json:"matches"`
	Total   int                     `json:"total"`
}

// WSEvent is the JSON frame pushed to WebSocket subscribers when a job
// changes state. Mirrors the queue event payload.
type WSEvent struct {
	JobID       uuid.UUID       `json:"job_id"`
	Status      string          `json:"status"`
	Error       string          `json:"error,omitempty"`
	StrokeCount int             `json:"stroke_count"`
	Summary     json.RawMessage `json:"summary,omitempty"`
	OverallRisk string          `json:"overall_risk,omitempty"`
	FinishedAt  string          `json:"finished_at"`
}
