package api

import (
	"errors"
	"net/http"

	"moodcast/jobs"
	"moodcast/progress"
	"moodcast/types"

	"github.com/gin-gonic/gin"
)

// RegisterJobRoutes registers job status endpoints.
func (s *Server) RegisterJobRoutes(r *gin.Engine) {
	g := r.Group("/api/jobs")
	g.GET("", s.handleListJobs)
	g.GET("/:id", s.handleGetJob)
	g.GET("/:id/events", s.handleJobEvents)
}

func (s *Server) handleListJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": s.status.List()})
}

// handleGetJob answers from the local registry, then from the shared
// progress store for jobs this replica never saw.
func (s *Server) handleGetJob(c *gin.Context) {
	id := c.Param("id")

	st, err := s.status.Get(id)
	if err == nil {
		c.JSON(http.StatusOK, st)
		return
	}
	if !errors.Is(err, jobs.ErrUnknownJob) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if s.store != nil {
		ev, err := s.store.Latest(c.Request.Context(), id)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, statusFromEvent(ev))
			return
		case !errors.Is(err, progress.ErrNoProgress):
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
}

// handleJobEvents streams progress as server-sent events until the job
// reaches a terminal stage or the client goes away.
func (s *Server) handleJobEvents(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "progress streaming requires redis"})
		return
	}
	ctx := c.Request.Context()
	events := s.store.Subscribe(ctx, c.Param("id"))
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.SSEvent("progress", ev)
			c.Writer.Flush()
			if ev.Stage.Terminal() {
				return
			}
		}
	}
}

func statusFromEvent(ev *progress.Event) types.JobStatus {
	st := types.JobStatus{
		JobID:     ev.JobID,
		Stage:     string(ev.Stage),
		Percent:   ev.Percent,
		Error:     ev.Err,
		UpdatedAt: ev.Time,
		Logs:      []types.LogEntry{{Timestamp: ev.Time, Message: ev.Message}},
	}
	switch ev.Stage {
	case progress.StageDone:
		st.State = types.JobComplete
	case progress.StageError:
		st.State = types.JobFailed
	case progress.StageQueued:
		st.State = types.JobQueued
	default:
		st.State = types.JobRunning
	}
	return st
}
