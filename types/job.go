package types

import "time"

// ArtifactKind identifies which adapter produced a MediaArtifact
type ArtifactKind string

const (
	ArtifactImage  ArtifactKind = "image"
	ArtifactSpeech ArtifactKind = "speech"
	ArtifactMusic  ArtifactKind = "music"
)

// GenerationJob is one user request. It lives for the duration of a single
// GenerateAndSynthesize call; only the artifact directory and the final video outlive it.
type GenerationJob struct {
	ID             string    `json:"id"` // job base name, unique per concurrent run
	TargetDuration float64   `json:"target_duration"`
	ImageCount     int       `json:"image_count"`
	SubtitleText   string    `json:"subtitle_text,omitempty"`
	OutputPath     string    `json:"output_path"`
	CreatedAt      time.Time `json:"created_at"`
}

// MediaArtifact is one generated asset on disk
type MediaArtifact struct {
	Kind       ArtifactKind `json:"kind"`
	Path       string       `json:"path"`
	Duration   float64      `json:"duration,omitempty"`    // audio only
	SampleRate int          `json:"sample_rate,omitempty"` // audio only
	Width      int          `json:"width,omitempty"`       // image only
	Height     int          `json:"height,omitempty"`      // image only
}
