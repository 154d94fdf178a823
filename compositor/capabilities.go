// Package compositor renders a reconciled timeline and its artifacts into one
// encoded video. Primary drives ffmpeg through ffmpeg-go filter graphs;
// Fallback invokes the ffmpeg binary directly with a concat manifest and a
// pre-mixed audio track.
package compositor

import (
	"context"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"moodcast/config"
)

// Capabilities is probed once at startup and handed to the Composer
type Capabilities struct {
	FFmpegPath  string `json:"ffmpeg_path"`
	FFprobePath string `json:"ffprobe_path"`

	// PrimaryAvailable means ffmpeg lists xfade, acrossfade, amix and apad.
	// Option support (amix normalize, apad whole_dur) is not probed; builds
	// without it fail the primary and the fallback renders instead.
	PrimaryAvailable bool `json:"primary_available"`
	// FallbackAvailable means the ffmpeg binary exists at all
	FallbackAvailable bool `json:"fallback_available"`
	// SubtitlesAvailable means at least one text renderer exists
	SubtitlesAvailable bool `json:"subtitles_available"`

	ASSFilter      bool   `json:"ass_filter"`
	DrawtextFilter bool   `json:"drawtext_filter"`
	ProbeAvailable bool   `json:"probe_available"`
	VideoCodec     string `json:"video_codec"`
}

type lookPathFunc func(file string) (string, error)
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// DetectCapabilities probes the encoder binaries and their filter and encoder
// lists. Missing binaries yield a zero-capability value, never an error.
func DetectCapabilities(ctx context.Context, ffmpegPath, ffprobePath string, logger *zap.Logger) Capabilities {
	return detect(ctx, ffmpegPath, ffprobePath, exec.LookPath, runCommand, logger)
}

func detect(ctx context.Context, ffmpegPath, ffprobePath string, lookPath lookPathFunc, run runFunc, logger *zap.Logger) Capabilities {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	caps := Capabilities{VideoCodec: config.VideoCodec}

	if p, err := lookPath(ffprobePath); err == nil {
		caps.FFprobePath = p
		caps.ProbeAvailable = true
	}

	p, err := lookPath(ffmpegPath)
	if err != nil {
		logger.Warn("ffmpeg not found, video composition disabled", zap.String("ffmpeg", ffmpegPath))
		return caps
	}
	caps.FFmpegPath = p
	caps.FallbackAvailable = true

	filters := map[string]bool{}
	if out, err := run(ctx, p, "-hide_banner", "-filters"); err == nil {
		filters = parseListing(string(out))
	} else {
		logger.Warn("could not list ffmpeg filters", zap.Error(err))
	}
	encoders := map[string]bool{}
	if out, err := run(ctx, p, "-hide_banner", "-encoders"); err == nil {
		encoders = parseListing(string(out))
	} else {
		logger.Warn("could not list ffmpeg encoders", zap.Error(err))
	}

	if !encoders[config.VideoCodec] {
		caps.VideoCodec = "mpeg4"
	}
	caps.ASSFilter = filters["ass"]
	caps.DrawtextFilter = filters["drawtext"]
	caps.SubtitlesAvailable = caps.ASSFilter || caps.DrawtextFilter
	caps.PrimaryAvailable = filters["xfade"] && filters["acrossfade"] && filters["amix"] && filters["apad"]

	logger.Info("compositor capabilities",
		zap.Bool("primary", caps.PrimaryAvailable),
		zap.Bool("fallback", caps.FallbackAvailable),
		zap.Bool("ass", caps.ASSFilter),
		zap.Bool("drawtext", caps.DrawtextFilter),
		zap.String("video_codec", caps.VideoCodec),
	)
	return caps
}

// parseListing collects names from `ffmpeg -filters` or `ffmpeg -encoders`
// output, where the name is the second column of each entry. Legend lines
// only contribute "=".
func parseListing(out string) map[string]bool {
	names := map[string]bool{}
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			names[strings.ToLower(fields[1])] = true
		}
	}
	return names
}
