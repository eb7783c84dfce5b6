package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/courtvision/internal/storage"
	"github.com/your-org/courtvision/pkg/dto"
)

type StrokeHandler struct {
	db *storage.PostgresStore
}

func NewStrokeHandler(db *storage.PostgresStore) *StrokeHandler {
	return &StrokeHandler{db: db}
}

// Similar finds strokes across all sessions whose motion signature is close
// to the given stroke's. Same-type matches only, unless any_type=true.
func (h *StrokeHandler) Similar(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid stroke id"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))
	threshold, err := strconv.ParseFloat(c.DefaultQuery("threshold", "0.8"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid threshold"})
		return
	}

	rec, err := h.db.GetStroke(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "stroke not found"})
		return
	}

	strokeType := rec.Event.Type
	if c.Query("any_type") == "true" {
		strokeType = ""
	}

	matches, err := h.db.SearchSimilarStrokes(c.Request.Context(), rec.Signature, strokeType, threshold, limit+1)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.SimilarStrokeResponse, 0, len(matches))
	for _, m := range matches {
		if m.StrokeID == id {
			continue // the query stroke always matches itself
		}
		if len(resp) == limit {
			break
		}
		resp = append(resp, dto.SimilarStrokeResponse{
			StrokeID:   m.StrokeID,
			JobID:      m.JobID,
			StrokeType: string(m.StrokeType),
			Confidence: m.Confidence,
			Score:      m.Score,
		})
	}

	c.JSON(http.StatusOK, dto.SimilarStrokesResponse{Matches: resp, Total: len(resp)})
}
