package api

import (
	"errors"
	"net/http"

	"moodcast/service"
	"moodcast/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RegisterGenerateRoutes registers job submission.
func (s *Server) RegisterGenerateRoutes(r *gin.Engine) {
	r.POST("/api/generate", s.handleGenerate)
}

// handleGenerate accepts a GenerateRequest and returns 202 with the job id.
// The job runs asynchronously.
func (s *Server) handleGenerate(c *gin.Context) {
	var req types.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.GenerateResponse{
			Success: false,
			Message: "Invalid JSON payload",
			Error:   err.Error(),
		})
		return
	}

	jobID, err := s.submitter.Submit(c.Request.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrInvalidJob) {
			status = http.StatusBadRequest
		}
		s.logger.Warn("job rejected", zap.Error(err))
		c.JSON(status, types.GenerateResponse{
			Success: false,
			Message: "Job rejected",
			Error:   err.Error(),
		})
		return
	}

	s.logger.Info("job accepted", zap.String("job", jobID))
	c.JSON(http.StatusAccepted, types.GenerateResponse{
		Success: true,
		Message: "Video generation started",
		JobID:   jobID,
	})
}
