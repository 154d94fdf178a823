// Package progress carries job progress from the pipeline to observers.
//
// The pipeline emits Events through an injected Sink; fanning them out to
// HTTP clients, Redis or Kafka is the sink's business.
package progress

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Stage is a short status token
type Stage string

const (
	StageQueued       Stage = "queued"
	StageEmotion      Stage = "emotion"
	StageImages       Stage = "image-generation"
	StageSpeech       Stage = "speech-generation"
	StageMusic        Stage = "music-generation"
	StageVerification Stage = "verification"
	StageCompositing  Stage = "compositing"
	StagePublishing   Stage = "publishing"
	StageDone         Stage = "done"
	StageError        Stage = "error"
)

// Terminal reports whether no further events follow s
func (s Stage) Terminal() bool { return s == StageDone || s == StageError }

// Event is one progress notification
type Event struct {
	JobID   string    `json:"job_id"`
	Stage   Stage     `json:"stage"`
	Percent int       `json:"percent"`
	Message string    `json:"message,omitempty"`
	Err     string    `json:"error,omitempty"`
	Time    time.Time `json:"time"`
}

// Sink receives events. Implementations must be safe for concurrent use and
// must not block the pipeline for long; delivery failures are theirs to log.
type Sink interface {
	Emit(ctx context.Context, ev Event)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(ctx context.Context, ev Event)

func (f SinkFunc) Emit(ctx context.Context, ev Event) { f(ctx, ev) }

// Nop discards events
var Nop Sink = SinkFunc(func(context.Context, Event) {})

// Multi fans an event out to every sink in order
type Multi []Sink

func (m Multi) Emit(ctx context.Context, ev Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, ev)
		}
	}
}

// LogSink writes every event to a zap logger
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (l *LogSink) Emit(_ context.Context, ev Event) {
	fields := []zap.Field{
		zap.String("job", ev.JobID),
		zap.String("stage", string(ev.Stage)),
		zap.Int("percent", ev.Percent),
	}
	if ev.Err != "" {
		l.logger.Error(ev.Message, append(fields, zap.String("error", ev.Err))...)
		return
	}
	l.logger.Info(ev.Message, fields...)
}

// Tracker stamps events for one job and keeps the percentage non-decreasing
// even when stages report concurrently
type Tracker struct {
	mu      sync.Mutex
	jobID   string
	percent int
	done    bool
	sink    Sink
	now     func() time.Time
}

// NewTracker creates a tracker; a nil sink discards events
func NewTracker(jobID string, sink Sink) *Tracker {
	if sink == nil {
		sink = Nop
	}
	return &Tracker{jobID: jobID, sink: sink, now: time.Now}
}

// JobID returns the tracked job
func (t *Tracker) JobID() string { return t.jobID }

// Percent returns the highest percentage reported so far
func (t *Tracker) Percent() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.percent
}

// Report emits stage at percent, raised to the previous maximum if lower
func (t *Tracker) Report(ctx context.Context, stage Stage, percent int, message string) {
	t.emit(ctx, stage, percent, message, "")
}

// Done emits the terminal success event at 100%
func (t *Tracker) Done(ctx context.Context, message string) {
	t.emit(ctx, StageDone, 100, message, "")
}

// Fail emits the terminal error event without moving the percentage
func (t *Tracker) Fail(ctx context.Context, err error) {
	msg := "job failed"
	t.emit(ctx, StageError, 0, msg, err.Error())
}

func (t *Tracker) emit(ctx context.Context, stage Stage, percent int, message, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}

	percent = max(0, min(100, percent))
	if percent < t.percent {
		percent = t.percent
	}
	t.percent = percent
	if stage.Terminal() {
		t.done = true
	}

	// emitted under the lock so observers see percentages in order
	t.sink.Emit(ctx, Event{
		JobID:   t.jobID,
		Stage:   stage,
		Percent: percent,
		Message: message,
		Err:     errMsg,
		Time:    t.now(),
	})
}
