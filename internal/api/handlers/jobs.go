package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/courtvision/internal/analysis"
	"github.com/your-org/courtvision/internal/models"
	"github.com/your-org/courtvision/internal/queue"
	"github.com/your-org/courtvision/internal/storage"
	"github.com/your-org/courtvision/pkg/dto"
)

type JobHandler struct {
	db       *storage.PostgresStore
	producer *queue.Producer
}

func NewJobHandler(db *storage.PostgresStore, producer *queue.Producer) *JobHandler {
	return &JobHandler{db: db, producer: producer}
}

func (h *JobHandler) Create(c *gin.Context) {
	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	step := req.Step
	if step <= 0 {
		step = 3
	}

	job := &models.Job{
		VideoURL:    req.VideoURL,
		StrokeType:  analysis.StrokeType(req.StrokeType),
		CropRegion:  req.CropRegion,
		TargetPoint: req.TargetPoint,
		Step:        step,
	}

	if err := h.db.CreateJob(c.Request.Context(), job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Hand the job to the ingestor
	cmd, _ := json.Marshal(map[string]string{"job_id": job.ID.String()})
	if err := h.producer.PublishIngest(cmd); err != nil {
		_ = h.db.UpdateJobStatus(c.Request.Context(), job.ID, models.JobFailed, "failed to notify ingestor")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start ingestion"})
		return
	}

	c.JSON(http.StatusCreated, jobToResponse(job))
}

func (h *JobHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	job, err := h.db.GetJob(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	c.JSON(http.StatusOK, jobToResponse(job))
}

func (h *JobHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	jobs, err := h.db.ListJobs(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.JobResponse, 0, len(jobs))
	for i := range jobs {
		resp = append(resp, jobToResponse(&jobs[i]))
	}

	c.JSON(http.StatusOK, dto.JobListResponse{Jobs: resp, Total: len(resp)})
}

func jobToResponse(j *models.Job) dto.JobResponse {
	return dto.JobResponse{
		ID:          j.ID,
		VideoURL:    j.VideoURL,
		Status:      string(j.Status),
		StrokeType:  string(j.StrokeType),
		CropRegion:  j.CropRegion,
		TargetPoint: j.TargetPoint,
		Step:        j.Step,
		FPS:         j.FPS,
		FrameCount:  j.FrameCount,
		Width:       j.Width,
		Height:      j.Height,
		Error:       j.Error,
		CreatedAt:   j.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:   j.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
