package config

import "time"

// Video Output Constants
const (
	// VideoWidth is the output video width
	VideoWidth = 1024

	// VideoHeight is the output video height
	VideoHeight = 1024

	// VideoFPS is the fixed output frame rate shared by both compositing paths
	VideoFPS = 24

	// VideoCodec is the video encoding codec
	VideoCodec = "libx264"

	// AudioCodec is the audio encoding codec
	AudioCodec = "aac"

	// AudioBitrate is the audio quality bitrate
	AudioBitrate = "192k"

	// VideoPreset is the ffmpeg encoding speed preset
	VideoPreset = "fast"

	// PixelFormat keeps the output playable in browsers and phones
	PixelFormat = "yuv420p"

	// OutputExtension is the container extension of the final artifact
	OutputExtension = ".mp4"
)

// Timeline Constants
const (
	// DefaultVideoDuration is used when neither the request nor the music
	// request carries a duration
	DefaultVideoDuration = 10.0

	// MaxVideoDuration caps the requested duration in seconds (3 minutes)
	MaxVideoDuration = 180.0

	// HoldDuration is the extra held final frame appended to the image track
	HoldDuration = 2.0

	// CrossfadeDuration is the overlap between consecutive images and music loops
	CrossfadeDuration = 1.0

	// GlobalFadeDuration is the fade-in at t=0 and fade-out ending at t=D
	GlobalFadeDuration = 1.0

	// MusicVolume is the gain applied to the music bed relative to speech
	MusicVolume = 0.25

	// SubtitleSecondsPerSegment is the target on-screen time of one subtitle chunk
	SubtitleSecondsPerSegment = 4.0

	// SubtitleFade is the per-segment fade-in/fade-out
	SubtitleFade = 0.5
)

// Subtitle Style Constants
const (
	// SubtitleFontSize in script pixels (frame height based)
	SubtitleFontSize = 48

	// SubtitleOutline is the stroke width drawn around glyphs
	SubtitleOutline = 3

	// SubtitleMarginRatio is the side margin per edge; text stays within 90% of the width
	SubtitleMarginRatio = 0.05

	// SubtitleBottomMargin is the distance from the bottom edge in pixels
	SubtitleBottomMargin = 60

	// DefaultFontName is used when no preferred face can be found
	DefaultFontName = "Sans"
)

// Generation Constants
const (
	// DefaultImageCount is the number of slideshow images per job
	DefaultImageCount = 3

	// MaxImageCount bounds a single job
	MaxImageCount = 12

	// GenerationPoolSize bounds concurrent adapter calls (one per adapter)
	GenerationPoolSize = 3

	// DefaultSampleRate for procedurally generated audio
	DefaultSampleRate = 24000
)

// Processing Constants
const (
	// MaxConcurrentJobs limits the number of jobs processed simultaneously in batch mode
	MaxConcurrentJobs = 1

	// JobBatchDelay is the wait time between batch jobs
	JobBatchDelay = 2 * time.Second

	// ProgressTTL is how long the last progress event is kept in Redis
	ProgressTTL = 24 * time.Hour

	// MaxJobLogs is the size of the per-job log ring buffer
	MaxJobLogs = 50
)

// Directory Constants
const (
	// InputDir is the directory containing batch request JSON files
	InputDir = "input"

	// OutputDir is the directory for job artifacts and generated videos
	OutputDir = "output"
)

// YouTube Constants
const (
	// YouTubeCategoryID for People & Blogs
	YouTubeCategoryID = "22"

	// YouTubePrivacyStatus sets video visibility
	YouTubePrivacyStatus = "private"
)
