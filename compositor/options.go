package compositor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"moodcast/config"
)

var (
	// ErrEncoderUnavailable means no usable ffmpeg binary was detected
	ErrEncoderUnavailable = errors.New("ffmpeg encoder unavailable")
	// ErrSubtitlesUnavailable means the path cannot render the requested text
	ErrSubtitlesUnavailable = errors.New("subtitle rendering unavailable")
)

// Options are the output settings shared by both paths
type Options struct {
	Width       int
	Height      int
	MusicVolume float64
	Style       SubtitleStyle
}

// DefaultOptions returns the configured frame size, gain and subtitle style
func DefaultOptions() Options {
	return Options{
		Width:       config.VideoWidth,
		Height:      config.VideoHeight,
		MusicVolume: config.MusicVolume,
		Style:       DefaultSubtitleStyle(),
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Width <= 0 || o.Height <= 0 {
		o.Width, o.Height = def.Width, def.Height
	}
	if o.MusicVolume <= 0 {
		o.MusicVolume = def.MusicVolume
	}
	if o.Style.FontSize <= 0 {
		o.Style = def.Style
	}
	return o
}

// runFFmpeg executes bin with args and folds the tail of stderr into the error
func runFFmpeg(ctx context.Context, bin string, args []string) error {
	if bin == "" {
		bin = "ffmpeg"
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, tail(stderr.String(), 6))
	}
	return nil
}

func tail(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}

func subtitleText(job Job) string {
	var b strings.Builder
	for _, s := range job.Timeline.Subtitles {
		b.WriteString(s.Text)
	}
	return b.String()
}
