// Package api exposes job submission and status over HTTP
package api

import (
	"context"
	"time"

	"moodcast/compositor"
	"moodcast/progress"
	"moodcast/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Submitter accepts a job and runs it in the background
type Submitter interface {
	Submit(ctx context.Context, req types.GenerateRequest) (string, error)
}

// StatusSource returns in-process job snapshots
type StatusSource interface {
	Get(jobID string) (types.JobStatus, error)
	List() []types.JobStatus
}

// ProgressStore is the shared progress backend (Redis). It lets any
// replica answer for jobs started elsewhere.
type ProgressStore interface {
	Latest(ctx context.Context, jobID string) (*progress.Event, error)
	Subscribe(ctx context.Context, jobID string) <-chan progress.Event
}

// Server holds the handler dependencies
type Server struct {
	submitter Submitter
	status    StatusSource
	store     ProgressStore // optional
	caps      compositor.Capabilities
	logger    *zap.Logger
	started   time.Time
}

// NewServer creates a server; store may be nil
func NewServer(submitter Submitter, status StatusSource, store ProgressStore, caps compositor.Capabilities, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		submitter: submitter,
		status:    status,
		store:     store,
		caps:      caps,
		logger:    logger,
		started:   time.Now(),
	}
}

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(s *Server) *gin.Engine {
	r := gin.New()
	// Minimal middleware: recovery plus one structured line per request
	r.Use(gin.Recovery(), requestLogger(s.logger))

	s.RegisterGenerateRoutes(r)
	s.RegisterJobRoutes(r)
	s.RegisterHealthRoutes(r)
	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}
