package types

import "time"

// GenerateRequest is the payload accepted by the HTTP API, the Kafka consumer
// and batch input files
type GenerateRequest struct {
	JobID      string  `json:"job_id,omitempty"`
	Text       string  `json:"text"`
	Duration   float64 `json:"duration,omitempty"`
	ImageCount int     `json:"image_count,omitempty"`
	Subtitles  *bool   `json:"subtitles,omitempty"`

	// Emotion skips the language model when the caller already has prompts
	Emotion *EmotionResponse `json:"emotion,omitempty"`
}

// GenerateResponse is returned when a job is accepted
type GenerateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	JobID   string `json:"job_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// JobState is the coarse lifecycle of a job as seen by clients
type JobState string

const (
	JobQueued   JobState = "queued"
	JobRunning  JobState = "running"
	JobComplete JobState = "complete"
	JobFailed   JobState = "failed"
)

// LogEntry represents a single log line with timestamp
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// JobStatus is the JSON response for GET /api/jobs/:id
type JobStatus struct {
	JobID      string           `json:"job_id"`
	State      JobState         `json:"state"`
	Stage      string           `json:"stage"`
	Percent    int              `json:"percent"`
	Emotion    *EmotionResponse `json:"emotion,omitempty"`
	OutputPath string           `json:"output_path,omitempty"`
	PublishURL string           `json:"publish_url,omitempty"`
	Logs       []LogEntry       `json:"logs"`
	Error      string           `json:"error,omitempty"`
	UpdatedAt  time.Time        `json:"updated_at"`
}
