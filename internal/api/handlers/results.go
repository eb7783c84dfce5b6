package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/courtvision/internal/storage"
	"github.com/your-org/courtvision/pkg/dto"
)

type ResultHandler struct {
	db *storage.PostgresStore
}

func NewResultHandler(db *storage.PostgresStore) *ResultHandler {
	return &ResultHandler{db: db}
}

// Get returns the stored analysis payload verbatim: per-frame metrics,
// stroke segments, session summary and injury risk report.
func (h *ResultHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	payload, err := h.db.GetResult(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if payload == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "result not available"})
		return
	}

	c.Data(http.StatusOK, "application/json", payload)
}

// Strokes lists the persisted stroke segments for a job.
func (h *ResultHandler) Strokes(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	recs, err := h.db.ListStrokes(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.StrokeResponse, 0, len(recs))
	for _, r := range recs {
		resp = append(resp, dto.StrokeResponse{
			ID:        r.ID,
			JobID:     r.JobID,
			Event:     r.Event,
			CreatedAt: r.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}

	c.JSON(http.StatusOK, dto.StrokeListResponse{Strokes: resp, Total: len(resp)})
}
