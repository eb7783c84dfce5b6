package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/your-org/courtvision/internal/analysis"
)

// JobStatus tracks an analysis job through its lifecycle.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobIngesting  JobStatus = "ingesting"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Job is one video analysis request as stored in the database.
type Job struct {
	ID          uuid.UUID           `json:"id" db:"id"`
	VideoURL    string              `json:"video_url" db:"video_url"`
	VideoKey    string              `json:"video_key,omitempty" db:"video_key"`
	Status      JobStatus           `json:"status" db:"status"`
	StrokeType  analysis.StrokeType `json:"stroke_type,omitempty" db:"stroke_type"`
	CropRegion  string              `json:"crop_region,omitempty" db:"crop_region"`   // "x1,y1,x2,y2" normalized
	TargetPoint string              `json:"target_point,omitempty" db:"target_point"` // "x,y" normalized
	Step        int                 `json:"step" db:"step"`
	FPS         float64             `json:"fps" db:"fps"`
	FrameCount  int                 `json:"frame_count" db:"frame_count"`
	Width       int                 `json:"width" db:"width"`
	Height      int                 `json:"height" db:"height"`
	Error       string              `json:"error,omitempty" db:"error"`
	CreatedAt   time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at" db:"updated_at"`
}

// AnalysisTask is the message published to NATS for worker processing:
// the video has been ingested and its frames sit under FramesPrefix.
type AnalysisTask struct {
	JobID        uuid.UUID           `json:"job_id"`
	FramesPrefix string              `json:"frames_prefix"` // MinIO key prefix
	FrameCount   int                 `json:"frame_count"`
	FPS          float64             `json:"fps"`
	Width        int                 `json:"width"`
	Height       int                 `json:"height"`
	StrokeType   analysis.StrokeType `json:"stroke_type,omitempty"`
	CropRegion   string              `json:"crop_region,omitempty"`
	TargetPoint  string              `json:"target_point,omitempty"`
	Step         int                 `json:"step"`
}

// AnalysisEvent is published when a job finishes, for live subscribers.
type AnalysisEvent struct {
	JobID       uuid.UUID                `json:"job_id"`
	Status      JobStatus                `json:"status"`
	Error       string                   `json:"error,omitempty"`
	StrokeCount int                      `json:"stroke_count"`
	Summary     *analysis.SessionSummary `json:"summary,omitempty"`
	OverallRisk string                   `json:"overall_risk,omitempty"`
	FinishedAt  time.Time                `json:"finished_at"`
}

// StrokeRecord is one persisted stroke segment, with its aggregate motion
// signature used for similarity search.
type StrokeRecord struct {
	ID        uuid.UUID            `json:"id" db:"id"`
	JobID     uuid.UUID            `json:"job_id" db:"job_id"`
	Event     analysis.StrokeEvent `json:"event"`
	Signature []float32            `json:"-" db:"signature"`
	CreatedAt time.Time            `json:"created_at" db:"created_at"`
}
