package compositor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"

	"moodcast/config"
	"moodcast/timeline"
)

// Primary builds the whole render as one ffmpeg-go filter graph: crossfaded
// stills, looped music bed mixed under the speech, ASS subtitles and global
// fades, encoded in a single pass
type Primary struct {
	caps   Capabilities
	opts   Options
	fonts  *FontProber
	logger *zap.Logger
}

// NewPrimary creates the library-driven compositor
func NewPrimary(caps Capabilities, opts Options, fonts *FontProber, logger *zap.Logger) *Primary {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Primary{caps: caps, opts: opts.withDefaults(), fonts: fonts, logger: logger}
}

func (p *Primary) Name() string { return "primary" }

func (p *Primary) Compose(ctx context.Context, job Job) error {
	if !p.caps.PrimaryAvailable {
		return ErrEncoderUnavailable
	}
	if job.Timeline.Duration <= 0 {
		return &timeline.InvalidTimelineError{Reason: "primary compositor needs a resolved duration"}
	}

	var assPath string
	if len(job.Timeline.Subtitles) > 0 {
		if !p.caps.ASSFilter {
			return ErrSubtitlesUnavailable
		}
		assPath = job.Store.TempPath("primary_subs.ass")
		style := p.fonts.Resolve(ctx, p.opts.Style, timeline.ContainsCJK(subtitleText(job)))
		if err := writeASS(assPath, job.Timeline.Subtitles, p.opts.Width, p.opts.Height, style); err != nil {
			return fmt.Errorf("failed to generate ASS: %w", err)
		}
		defer os.Remove(assPath)
	}

	out := p.build(job, assPath)
	args := out.GetArgs()
	p.logger.Debug("primary ffmpeg args", zap.Strings("args", args))

	if err := runFFmpeg(ctx, p.caps.FFmpegPath, args); err != nil {
		return err
	}
	return nil
}

// build returns the output node of the render graph
func (p *Primary) build(job Job, assPath string) *ffmpeg.Stream {
	tl := job.Timeline
	video := p.visualTrack(job.Images, tl)

	if assPath != "" {
		video = video.Filter("ass", ffmpeg.Args{filepath.ToSlash(assPath)})
	}

	audio := p.audioBed(job.Speech, job.Music, tl)

	kwargs := ffmpeg.KwArgs{
		"c:v":      p.caps.VideoCodec,
		"pix_fmt":  config.PixelFormat,
		"r":        config.VideoFPS,
		"c:a":      config.AudioCodec,
		"b:a":      config.AudioBitrate,
		"t":        ffNum(tl.Duration),
		"movflags": "+faststart",
	}
	if p.caps.VideoCodec == config.VideoCodec {
		kwargs["preset"] = config.VideoPreset
	}
	return ffmpeg.Output([]*ffmpeg.Stream{video, audio}, job.Output, kwargs).OverWriteOutput()
}

// visualTrack loops each still for its display duration and crossfades
// clip k in at k*D/N. The final clip carries the hold so the track never
// runs out before D.
func (p *Primary) visualTrack(images []string, tl *timeline.Timeline) *ffmpeg.Stream {
	clips := make([]*ffmpeg.Stream, len(images))
	for k, img := range images {
		clip := ffmpeg.Input(img, ffmpeg.KwArgs{
			"loop":      1,
			"framerate": config.VideoFPS,
			"t":         ffNum(tl.DisplayDuration(k)),
		}).Video()
		clips[k] = p.normalizeFrame(clip)
	}

	var video *ffmpeg.Stream
	switch {
	case len(clips) == 1:
		video = clips[0]
	case tl.Crossfade <= 0:
		video = ffmpeg.Filter(clips, "concat", nil, ffmpeg.KwArgs{"n": len(clips), "v": 1, "a": 0})
	default:
		video = clips[0]
		for k := 1; k < len(clips); k++ {
			video = ffmpeg.Filter([]*ffmpeg.Stream{video, clips[k]}, "xfade", nil, ffmpeg.KwArgs{
				"transition": "fade",
				"duration":   ffNum(tl.Crossfade),
				"offset":     ffNum(float64(k) * tl.Step()),
			})
		}
	}

	return video.
		Filter("fade", nil, ffmpeg.KwArgs{"t": "in", "st": 0, "d": ffNum(tl.Fade)}).
		Filter("fade", nil, ffmpeg.KwArgs{"t": "out", "st": ffNum(tl.Duration - tl.Fade), "d": ffNum(tl.Fade)})
}

func (p *Primary) normalizeFrame(s *ffmpeg.Stream) *ffmpeg.Stream {
	return s.
		Filter("scale", nil, ffmpeg.KwArgs{"w": p.opts.Width, "h": p.opts.Height, "force_original_aspect_ratio": "decrease"}).
		Filter("pad", nil, ffmpeg.KwArgs{"w": p.opts.Width, "h": p.opts.Height, "x": "(ow-iw)/2", "y": "(oh-ih)/2", "color": "black"}).
		Filter("setsar", ffmpeg.Args{"1"}).
		Filter("fps", nil, ffmpeg.KwArgs{"fps": config.VideoFPS}).
		Filter("format", nil, ffmpeg.KwArgs{"pix_fmts": config.PixelFormat})
}

func audioFormat(s *ffmpeg.Stream) *ffmpeg.Stream {
	return s.Filter("aformat", nil, ffmpeg.KwArgs{"sample_rates": 44100, "channel_layouts": "stereo"})
}

// audioBed pads the speech to D, fits the music per its plan, attenuates it
// and sums the two
func (p *Primary) audioBed(speechPath, musicPath string, tl *timeline.Timeline) *ffmpeg.Stream {
	d := ffNum(tl.Duration)
	speech := audioFormat(ffmpeg.Input(speechPath).Audio()).
		Filter("apad", nil, ffmpeg.KwArgs{"whole_dur": d}).
		Filter("atrim", nil, ffmpeg.KwArgs{"duration": d})

	music := audioFormat(ffmpeg.Input(musicPath).Audio())
	plan := tl.Music
	if plan.Mode == timeline.MusicLoop && plan.Repeats > 1 {
		copies := ffmpeg.FilterMultiOutput([]*ffmpeg.Stream{music}, "asplit", ffmpeg.Args{strconv.Itoa(plan.Repeats)})
		parts := make([]*ffmpeg.Stream, plan.Repeats)
		for j := range parts {
			parts[j] = copies.Get(strconv.Itoa(j))
		}
		if plan.Crossfade > 0 {
			music = parts[0]
			for j := 1; j < len(parts); j++ {
				music = ffmpeg.Filter([]*ffmpeg.Stream{music, parts[j]}, "acrossfade", nil, ffmpeg.KwArgs{"d": ffNum(plan.Crossfade)})
			}
		} else {
			music = ffmpeg.Filter(parts, "concat", nil, ffmpeg.KwArgs{"n": len(parts), "v": 0, "a": 1})
		}
	}
	music = music.
		Filter("atrim", nil, ffmpeg.KwArgs{"duration": d}).
		Filter("asetpts", ffmpeg.Args{"PTS-STARTPTS"}).
		Filter("volume", nil, ffmpeg.KwArgs{"volume": ffNum(p.opts.MusicVolume)})

	return ffmpeg.Filter([]*ffmpeg.Stream{speech, music}, "amix", nil, ffmpeg.KwArgs{
		"inputs":             2,
		"duration":           "first",
		"dropout_transition": 0,
		"normalize":          0,
	}).
		Filter("afade", nil, ffmpeg.KwArgs{"t": "in", "st": 0, "d": ffNum(tl.Fade)}).
		Filter("afade", nil, ffmpeg.KwArgs{"t": "out", "st": ffNum(tl.Duration - tl.Fade), "d": ffNum(tl.Fade)})
}
