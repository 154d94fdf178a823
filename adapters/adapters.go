// Package adapters wraps the image, speech and music generation back ends
// behind one load/generate/save contract. The Director only sees these
// interfaces; concrete back ends are chosen at construction time.
package adapters

import (
	"context"
	"image"
)

// ImageGenerator renders still images from a text prompt
type ImageGenerator interface {
	Name() string
	Load(ctx context.Context) error
	GenerateImage(ctx context.Context, prompt string, params ImageParams) (*ImageResult, error)
	SaveImage(img image.Image, path string) error
}

// SpeechGenerator synthesizes narration audio from text
type SpeechGenerator interface {
	Name() string
	Load(ctx context.Context) error
	GenerateSpeech(ctx context.Context, text string, params SpeechParams) (*AudioResult, error)
	SaveAudio(res *AudioResult, path string) error
}

// MusicGenerator composes a background music bed from a prompt
type MusicGenerator interface {
	Name() string
	Load(ctx context.Context) error
	GenerateMusic(ctx context.Context, prompt string, params MusicParams) (*AudioResult, error)
	SaveAudio(res *AudioResult, path string) error
}

// ImageParams are forwarded to image back ends; zero values select back end defaults
type ImageParams struct {
	Width          int     `json:"width,omitempty"`
	Height         int     `json:"height,omitempty"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	Steps          int     `json:"num_inference_steps,omitempty"`
	GuidanceScale  float64 `json:"guidance_scale,omitempty"`
	Seed           *int64  `json:"seed,omitempty"`
}

// SpeechParams are forwarded to speech back ends. The remote back end reads
// Voice as a preset name plus Language and Temperature; espeak reads Voice,
// WordsPerMinute and Pitch.
type SpeechParams struct {
	Voice          string  `json:"voice_preset,omitempty"`
	Language       string  `json:"language,omitempty"`
	Temperature    float64 `json:"temperature,omitempty"`
	WordsPerMinute int     `json:"-"`
	Pitch          int     `json:"-"`
}

// MusicParams are forwarded to music back ends
type MusicParams struct {
	DurationSecs  float64 `json:"duration_secs"`
	Lyrics        string  `json:"lyrics,omitempty"`
	Steps         int     `json:"infer_step,omitempty"`
	GuidanceScale float64 `json:"guidance_scale,omitempty"`
	Seed          *int64  `json:"seed,omitempty"`
}

// ImageResult echoes the inputs alongside the rendered images
type ImageResult struct {
	Images []image.Image
	Prompt string
	Params ImageParams
}
