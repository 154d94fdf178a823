// Package jobs keeps the in-memory status of every job this process has
// accepted. The registry is also a progress.Sink so the pipeline updates it
// without knowing it exists.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"moodcast/config"
	"moodcast/progress"
	"moodcast/types"
)

// ErrUnknownJob is returned for ids the registry has never seen
var ErrUnknownJob = errors.New("unknown job")

// ErrDuplicateJob is returned when an id is registered twice
var ErrDuplicateJob = errors.New("job already registered")

type entry struct {
	status types.JobStatus
	logs   []types.LogEntry
}

// Registry holds job status with thread-safe access
type Registry struct {
	mu      sync.RWMutex
	jobs    map[string]*entry
	maxLogs int
	now     func() time.Time
}

// NewRegistry creates a registry keeping the last maxLogs log lines per job
func NewRegistry(maxLogs int) *Registry {
	if maxLogs <= 0 {
		maxLogs = config.MaxJobLogs
	}
	return &Registry{
		jobs:    make(map[string]*entry),
		maxLogs: maxLogs,
		now:     time.Now,
	}
}

// Register adds a queued job
func (r *Registry) Register(jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[jobID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, jobID)
	}
	now := r.now()
	r.jobs[jobID] = &entry{status: types.JobStatus{
		JobID:     jobID,
		State:     types.JobQueued,
		Stage:     string(progress.StageQueued),
		UpdatedAt: now,
	}}
	r.appendLog(r.jobs[jobID], "job queued")
	return nil
}

// Emit applies a progress event; events for unknown jobs register them
func (r *Registry) Emit(_ context.Context, ev progress.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[ev.JobID]
	if !ok {
		e = &entry{status: types.JobStatus{JobID: ev.JobID}}
		r.jobs[ev.JobID] = e
	}

	// terminal states are final
	if e.status.State == types.JobComplete || e.status.State == types.JobFailed {
		return
	}

	e.status.Stage = string(ev.Stage)
	if ev.Percent > e.status.Percent {
		e.status.Percent = ev.Percent
	}
	switch ev.Stage {
	case progress.StageDone:
		e.status.State = types.JobComplete
	case progress.StageError:
		e.status.State = types.JobFailed
		e.status.Error = ev.Err
	case progress.StageQueued:
		e.status.State = types.JobQueued
	default:
		e.status.State = types.JobRunning
	}
	e.status.UpdatedAt = r.now()

	msg := fmt.Sprintf("[%s %d%%] %s", ev.Stage, e.status.Percent, ev.Message)
	if ev.Err != "" {
		msg += ": " + ev.Err
	}
	r.appendLog(e, msg)
}

// SetEmotion records the inferred emotion response
func (r *Registry) SetEmotion(jobID string, resp *types.EmotionResponse) {
	r.update(jobID, func(e *entry) {
		e.status.Emotion = resp
	})
}

// SetOutput records where the video was written
func (r *Registry) SetOutput(jobID, path string) {
	r.update(jobID, func(e *entry) {
		e.status.OutputPath = path
	})
}

// SetPublishURL records where the video was published
func (r *Registry) SetPublishURL(jobID, url string) {
	r.update(jobID, func(e *entry) {
		e.status.PublishURL = url
		r.appendLog(e, "published to "+url)
	})
}

// AddLog appends a free-form log line to a job
func (r *Registry) AddLog(jobID, message string) {
	r.update(jobID, func(e *entry) {
		r.appendLog(e, message)
	})
}

// Get returns a snapshot of one job
func (r *Registry) Get(jobID string) (types.JobStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.jobs[jobID]
	if !ok {
		return types.JobStatus{}, fmt.Errorf("%w: %s", ErrUnknownJob, jobID)
	}
	return snapshot(e), nil
}

// List returns snapshots of every job, most recently updated first
func (r *Registry) List() []types.JobStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.JobStatus, 0, len(r.jobs))
	for _, e := range r.jobs {
		out = append(out, snapshot(e))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].JobID < out[j].JobID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

func (r *Registry) update(jobID string, fn func(e *entry)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.jobs[jobID]
	if !ok {
		return
	}
	fn(e)
	e.status.UpdatedAt = r.now()
}

// appendLog must be called with the lock held
func (r *Registry) appendLog(e *entry, message string) {
	e.logs = append(e.logs, types.LogEntry{Timestamp: r.now(), Message: message})
	if len(e.logs) > r.maxLogs {
		e.logs = e.logs[len(e.logs)-r.maxLogs:]
	}
}

func snapshot(e *entry) types.JobStatus {
	s := e.status
	s.Logs = append([]types.LogEntry{}, e.logs...)
	if e.status.Emotion != nil {
		em := *e.status.Emotion
		s.Emotion = &em
	}
	return s
}
