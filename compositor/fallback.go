package compositor

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"moodcast/config"
	"moodcast/timeline"
)

// Fallback renders with plain ffmpeg invocations: an audio pre-mix pass, a
// concat-demuxer manifest for the stills and one final encode. The pre-mix
// avoids amix normalize and apad whole_dur so older ffmpeg builds that reject
// the primary graph can still render. Subtitles drop to drawtext when the ass
// filter is missing.
type Fallback struct {
	caps    Capabilities
	opts    Options
	fonts   *FontProber
	logger  *zap.Logger
	measure func(ctx context.Context, ffprobe, path string) (float64, error)
}

// NewFallback creates the direct-invocation compositor
func NewFallback(caps Capabilities, opts Options, fonts *FontProber, logger *zap.Logger) *Fallback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fallback{caps: caps, opts: opts.withDefaults(), fonts: fonts, logger: logger, measure: ProbeDuration}
}

func (f *Fallback) Name() string { return "fallback" }

func (f *Fallback) Compose(ctx context.Context, job Job) error {
	if !f.caps.FallbackAvailable {
		return ErrEncoderUnavailable
	}

	// temp_ intermediates go on success and failure; adapter outputs stay
	var temps []string
	defer func() {
		for _, p := range temps {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				f.logger.Warn("failed to remove temp file", zap.String("path", p), zap.Error(err))
			}
		}
	}()

	tl, err := f.resolveTimeline(ctx, job)
	if err != nil {
		return err
	}

	mixPath := job.Store.TempPath("mix.wav")
	temps = append(temps, mixPath)
	if err := runFFmpeg(ctx, f.caps.FFmpegPath, premixArgs(job.Speech, job.Music, mixPath, &tl, f.opts.MusicVolume)); err != nil {
		return fmt.Errorf("pre-mix audio: %w", err)
	}

	manifestPath := job.Store.TempPath("manifest.txt")
	temps = append(temps, manifestPath)
	if err := writeManifest(manifestPath, job.Images, &tl); err != nil {
		return fmt.Errorf("write concat manifest: %w", err)
	}

	vf := []string{frameFilter(f.opts.Width, f.opts.Height)}
	vf = append(vf,
		fmt.Sprintf("fade=t=in:st=0:d=%s", ffNum(tl.Fade)),
		fmt.Sprintf("fade=t=out:st=%s:d=%s", ffNum(tl.Duration-tl.Fade), ffNum(tl.Fade)),
	)
	subs, subTemps, err := f.subtitleFilters(ctx, job, &tl)
	temps = append(temps, subTemps...)
	if err != nil {
		return err
	}
	vf = append(vf, subs...)

	args := []string{
		"-y", "-hide_banner",
		"-f", "concat", "-safe", "0", "-i", manifestPath,
		"-i", mixPath,
		"-vf", strings.Join(vf, ","),
		"-af", fmt.Sprintf("afade=t=in:st=0:d=%s,afade=t=out:st=%s:d=%s", ffNum(tl.Fade), ffNum(tl.Duration-tl.Fade), ffNum(tl.Fade)),
		"-map", "0:v", "-map", "1:a",
		"-c:v", f.caps.VideoCodec,
	}
	if f.caps.VideoCodec == config.VideoCodec {
		args = append(args, "-preset", config.VideoPreset)
	}
	args = append(args,
		"-pix_fmt", config.PixelFormat,
		"-r", fmt.Sprint(config.VideoFPS),
		"-c:a", config.AudioCodec,
		"-b:a", config.AudioBitrate,
		"-t", ffNum(tl.Duration),
		"-movflags", "+faststart",
		job.Output,
	)

	f.logger.Debug("fallback ffmpeg args", zap.Strings("args", args))
	return runFFmpeg(ctx, f.caps.FFmpegPath, args)
}

func (f *Fallback) subtitleFilters(ctx context.Context, job Job, tl *timeline.Timeline) ([]string, []string, error) {
	if len(tl.Subtitles) == 0 {
		return nil, nil, nil
	}
	style := f.fonts.Resolve(ctx, f.opts.Style, timeline.ContainsCJK(subtitleText(job)))

	switch {
	case f.caps.ASSFilter:
		path := job.Store.TempPath("subs.ass")
		if err := writeASS(path, tl.Subtitles, f.opts.Width, f.opts.Height, style); err != nil {
			return nil, []string{path}, fmt.Errorf("write subtitle script: %w", err)
		}
		return []string{"ass=" + filterQuote(path)}, []string{path}, nil

	case f.caps.DrawtextFilter:
		maxWidth := float64(f.opts.Width) * (1 - 2*style.MarginRatio)
		var filters, temps []string
		for i, seg := range tl.Subtitles {
			path := job.Store.TempPath(fmt.Sprintf("sub_%d.txt", i+1))
			temps = append(temps, path)
			if err := os.WriteFile(path, []byte(wrapText(seg.Text, maxWidth, style.FontSize)), 0o644); err != nil {
				return nil, temps, fmt.Errorf("write subtitle text: %w", err)
			}
			filters = append(filters, drawtextFilter(seg, path, style))
		}
		return filters, temps, nil

	default:
		f.logger.Warn("no subtitle renderer available, rendering without subtitles", zap.String("job", job.Store.Base()))
		return nil, nil, nil
	}
}

func frameFilter(w, h int) string {
	return fmt.Sprintf("scale=w=%d:h=%d:force_original_aspect_ratio=decrease,pad=w=%d:h=%d:x=(ow-iw)/2:y=(oh-ih)/2:color=black,setsar=1,fps=%d,format=%s",
		w, h, w, h, config.VideoFPS, config.PixelFormat)
}

// resolveTimeline returns the job timeline, deriving D from the measured
// speech and music lengths when the reconciler could not.
func (f *Fallback) resolveTimeline(ctx context.Context, job Job) (timeline.Timeline, error) {
	tl := *job.Timeline
	if tl.Duration > 0 {
		return tl, nil
	}

	speech, err := f.measure(ctx, f.caps.FFprobePath, job.Speech)
	if err != nil {
		return tl, fmt.Errorf("measure speech: %w", err)
	}
	music, err := f.measure(ctx, f.caps.FFprobePath, job.Music)
	if err != nil {
		return tl, fmt.Errorf("measure music: %w", err)
	}
	d := timeline.ResolveDuration(0, speech, music)
	if tl.Images, err = timeline.PlanImages(d, len(job.Images)); err != nil {
		return tl, err
	}
	if tl.Music, err = timeline.PlanMusic(d, music, config.CrossfadeDuration); err != nil {
		return tl, err
	}
	tl.Duration = d
	tl.Speech = speech
	tl.Fade = min(config.GlobalFadeDuration, d/4)
	f.logger.Info("duration taken from measured audio",
		zap.String("job", job.Store.Base()),
		zap.Float64("speech", speech),
		zap.Float64("music", music),
		zap.Float64("duration", d),
	)
	return tl, nil
}

// premixArgs sums speech padded to D and the fitted, attenuated music into
// one WAV. Both mix inputs span exactly D, so amix's default 1/n input
// scaling is undone with volume=2.
func premixArgs(speech, music, out string, tl *timeline.Timeline, volume float64) []string {
	const format = "aformat=sample_rates=44100:channel_layouts=stereo"
	args := []string{"-y", "-hide_banner", "-i", speech}

	d := ffNum(tl.Duration)
	plan := tl.Music
	copies := max(plan.Repeats, 1)
	for j := 0; j < copies; j++ {
		args = append(args, "-i", music)
	}

	graph := []string{fmt.Sprintf("[0:a]%s,apad,atrim=duration=%s,asetpts=PTS-STARTPTS[sp]", format, d)}
	for j := 0; j < copies; j++ {
		graph = append(graph, fmt.Sprintf("[%d:a]%s[m%d]", j+1, format, j))
	}
	cur := "m0"
	if copies > 1 && plan.Crossfade > 0 {
		for j := 1; j < copies; j++ {
			next := fmt.Sprintf("x%d", j)
			graph = append(graph, fmt.Sprintf("[%s][m%d]acrossfade=d=%s[%s]", cur, j, ffNum(plan.Crossfade), next))
			cur = next
		}
	} else if copies > 1 {
		var in strings.Builder
		for j := 0; j < copies; j++ {
			fmt.Fprintf(&in, "[m%d]", j)
		}
		graph = append(graph, fmt.Sprintf("%sconcat=n=%d:v=0:a=1[x]", in.String(), copies))
		cur = "x"
	}
	graph = append(graph,
		fmt.Sprintf("[%s]apad,atrim=duration=%s,asetpts=PTS-STARTPTS,volume=%s[bed]", cur, d, ffNum(volume)),
		"[sp][bed]amix=inputs=2:duration=first:dropout_transition=0,volume=2[mix]",
	)

	return append(args,
		"-filter_complex", strings.Join(graph, ";"),
		"-map", "[mix]",
		"-c:a", "pcm_s16le",
		out,
	)
}

// writeManifest emits an ffconcat list: one entry per image window, then the
// final still again for the hold so the stream never ends on its last frame
func writeManifest(path string, images []string, tl *timeline.Timeline) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(file)

	fmt.Fprintln(w, "ffconcat version 1.0")
	for k, img := range images {
		abs, err := filepath.Abs(img)
		if err != nil {
			file.Close()
			return err
		}
		fmt.Fprintf(w, "file %s\n", manifestQuote(abs))
		fmt.Fprintf(w, "duration %s\n", ffNum(tl.Images[k].Duration))
	}
	last, err := filepath.Abs(images[len(images)-1])
	if err != nil {
		file.Close()
		return err
	}
	fmt.Fprintf(w, "file %s\n", manifestQuote(last))
	fmt.Fprintf(w, "duration %s\n", ffNum(tl.Hold))

	if err := w.Flush(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func manifestQuote(p string) string {
	return "'" + strings.ReplaceAll(filepath.ToSlash(p), "'", `'\''`) + "'"
}
