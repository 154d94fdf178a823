package tui

import (
	"time"

	"moodcast/types"
)

// Messages for the tea program (polling-based)

// SubmittedMsg is sent once the API accepted or rejected the job
type SubmittedMsg struct {
	JobID string
	Err   error
}

// StatusUpdateMsg carries one polled job status
type StatusUpdateMsg struct {
	Status *types.JobStatus
	Err    error
}

// TickMsg is sent periodically to trigger polling
type TickMsg struct {
	Time time.Time
}
