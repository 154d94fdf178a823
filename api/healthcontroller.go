package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RegisterHealthRoutes registers the health check.
func (s *Server) RegisterHealthRoutes(r *gin.Engine) {
	r.GET("/health", s.handleHealth)
}

// handleHealth reports liveness and which compositing paths are usable
func (s *Server) handleHealth(c *gin.Context) {
	status := "healthy"
	if !s.caps.PrimaryAvailable && !s.caps.FallbackAvailable {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status": status,
		"uptime": time.Since(s.started).Round(time.Second).String(),
		"compositor": gin.H{
			"primary":   s.caps.PrimaryAvailable,
			"fallback":  s.caps.FallbackAvailable,
			"subtitles": s.caps.SubtitlesAvailable,
			"codec":     s.caps.VideoCodec,
		},
	})
}
