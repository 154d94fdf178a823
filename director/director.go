// Package director runs one generation job end to end: N image calls, one
// speech call and one music call, artifact verification, timeline
// reconciliation and composition.
package director

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"moodcast/adapters"
	"moodcast/artifacts"
	"moodcast/compositor"
	"moodcast/config"
	"moodcast/progress"
	"moodcast/timeline"
	"moodcast/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidRequest is returned before any adapter is called
var ErrInvalidRequest = errors.New("invalid generation request")

// styleSuffixes vary the image prompt so a slideshow does not repeat itself
var styleSuffixes = []string{
	"soft cinematic lighting",
	"watercolor painting",
	"dreamy pastel illustration",
	"wide angle photograph, golden hour",
	"impressionist oil painting",
	"minimalist flat illustration",
}

// Request is one call to GenerateAndSynthesize
type Request struct {
	ImagePrompt  string
	SpeechText   string
	MusicPrompt  string
	OutputName   string  // job base name; namespaces every artifact
	Duration     float64 // seconds; <= 0 derives from the audio
	ImageCount   int
	Subtitles    bool
	SubtitleText string // overrides SpeechText as the burned-in text

	// Progress receives stage events. When nil the director creates a
	// tracker on its configured sink and emits the terminal event itself.
	Progress *progress.Tracker
}

// Composer renders a reconciled job and reports which path produced it
type Composer interface {
	Compose(ctx context.Context, job compositor.Job) (string, error)
}

// Options configures a MultimodalVideoGenerator
type Options struct {
	OutputDir    string
	PoolSize     int
	Timeline     timeline.Options
	Retention    artifacts.RetentionPolicy
	ImageParams  adapters.ImageParams
	SpeechParams adapters.SpeechParams
	MusicParams  adapters.MusicParams
	Sink         progress.Sink
}

// DefaultOptions returns the configured constants
func DefaultOptions() Options {
	return Options{
		OutputDir: config.OutputDir,
		PoolSize:  config.GenerationPoolSize,
		Timeline:  timeline.DefaultOptions(),
		Retention: artifacts.Retain,
		ImageParams: adapters.ImageParams{
			Width:  config.VideoWidth,
			Height: config.VideoHeight,
		},
	}
}

// MultimodalVideoGenerator owns the three adapters and the compositor chain
type MultimodalVideoGenerator struct {
	images     adapters.ImageGenerator
	speech     adapters.SpeechGenerator
	music      adapters.MusicGenerator
	composer   Composer
	reconciler *timeline.Reconciler
	opts       Options
	logger     *zap.Logger
	token      func() string
}

// NewMultimodalVideoGenerator injects the adapters and the composer
func NewMultimodalVideoGenerator(
	images adapters.ImageGenerator,
	speech adapters.SpeechGenerator,
	music adapters.MusicGenerator,
	composer Composer,
	opts Options,
	logger *zap.Logger,
) *MultimodalVideoGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.OutputDir == "" {
		opts.OutputDir = config.OutputDir
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = config.GenerationPoolSize
	}
	if opts.Retention == "" {
		opts.Retention = artifacts.Retain
	}
	return &MultimodalVideoGenerator{
		images:     images,
		speech:     speech,
		music:      music,
		composer:   composer,
		reconciler: timeline.NewReconciler(opts.Timeline),
		opts:       opts,
		logger:     logger,
		token:      func() string { return uuid.NewString()[:8] },
	}
}

// LoadAll loads the three adapters. Each Load is idempotent.
func (g *MultimodalVideoGenerator) LoadAll(ctx context.Context) error {
	if err := g.images.Load(ctx); err != nil {
		return fmt.Errorf("load image adapter: %w", err)
	}
	if err := g.speech.Load(ctx); err != nil {
		return fmt.Errorf("load speech adapter: %w", err)
	}
	if err := g.music.Load(ctx); err != nil {
		return fmt.Errorf("load music adapter: %w", err)
	}
	return nil
}

// GenerateAndSynthesize renders the request into {OutputDir}/{OutputName}.mp4
// and returns that path. Any adapter failure aborts the job; artifacts that
// were already written stay on disk.
func (g *MultimodalVideoGenerator) GenerateAndSynthesize(ctx context.Context, req Request) (string, error) {
	tracker := req.Progress
	owned := tracker == nil
	if owned {
		tracker = progress.NewTracker(req.OutputName, g.opts.Sink)
	}

	out, err := g.run(ctx, req, tracker)
	if err != nil {
		if owned {
			tracker.Fail(ctx, err)
		}
		return "", err
	}
	if owned {
		tracker.Done(ctx, "video ready")
	}
	return out, nil
}

func (g *MultimodalVideoGenerator) run(ctx context.Context, req Request, tracker *progress.Tracker) (string, error) {
	start := time.Now()
	if err := validate(req); err != nil {
		return "", err
	}

	store, err := artifacts.NewStore(g.opts.OutputDir, req.OutputName)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := store.EnsureDir(); err != nil {
		return "", fmt.Errorf("create job directory: %w", err)
	}

	duration := req.Duration
	if duration > config.MaxVideoDuration {
		g.logger.Warn("requested duration capped",
			zap.String("job", req.OutputName),
			zap.Float64("requested", duration),
			zap.Float64("max", config.MaxVideoDuration),
		)
		duration = config.MaxVideoDuration
	}

	subtitleText := ""
	if req.Subtitles {
		subtitleText = req.SubtitleText
		if strings.TrimSpace(subtitleText) == "" {
			subtitleText = req.SpeechText
		}
	}

	g.logger.Info("generation started",
		zap.String("job", req.OutputName),
		zap.Int("images", req.ImageCount),
		zap.Float64("duration", duration),
		zap.Bool("subtitles", subtitleText != ""),
	)

	imageArts := make([]types.MediaArtifact, req.ImageCount)
	var speechArt, musicArt types.MediaArtifact

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.opts.PoolSize)

	// one adapter instance is not safe for concurrent calls to itself, so
	// the images run in sequence on a single goroutine
	eg.Go(func() error {
		for i := 1; i <= req.ImageCount; i++ {
			if err := gctx.Err(); err != nil {
				return err
			}
			art, err := g.generateImage(gctx, store, req.ImagePrompt, i)
			if err != nil {
				return fmt.Errorf("image %d of %d: %w", i, req.ImageCount, err)
			}
			imageArts[i-1] = art
			tracker.Report(gctx, progress.StageImages, 5+45*i/req.ImageCount,
				fmt.Sprintf("image %d/%d", i, req.ImageCount))
		}
		return nil
	})

	eg.Go(func() error {
		art, err := g.generateSpeech(gctx, store, req.SpeechText)
		if err != nil {
			return fmt.Errorf("speech: %w", err)
		}
		speechArt = art
		tracker.Report(gctx, progress.StageSpeech, 10, "speech ready")
		return nil
	})

	eg.Go(func() error {
		art, err := g.generateMusic(gctx, store, req.MusicPrompt, duration)
		if err != nil {
			return fmt.Errorf("music: %w", err)
		}
		musicArt = art
		tracker.Report(gctx, progress.StageMusic, 10, "music ready")
		return nil
	})

	if err := eg.Wait(); err != nil {
		g.logger.Error("generation failed", zap.String("job", req.OutputName), zap.Error(err))
		return "", err
	}

	all := append(append([]types.MediaArtifact{}, imageArts...), speechArt, musicArt)
	tracker.Report(ctx, progress.StageVerification, 60, "verifying artifacts")
	if err := artifacts.Verify(all); err != nil {
		return "", err
	}

	tl, err := g.reconciler.Reconcile(timeline.Input{
		Requested:    duration,
		Speech:       speechArt.Duration,
		Music:        musicArt.Duration,
		ImageCount:   req.ImageCount,
		SubtitleText: subtitleText,
	})
	if err != nil {
		return "", err
	}
	g.logger.Info("timeline reconciled",
		zap.String("job", req.OutputName),
		zap.Float64("duration", tl.Duration),
		zap.String("music_mode", string(tl.Music.Mode)),
		zap.Int("music_repeats", tl.Music.Repeats),
		zap.Int("subtitle_segments", len(tl.Subtitles)),
	)

	tracker.Report(ctx, progress.StageCompositing, 70, "compositing video")
	used, err := g.composer.Compose(ctx, compositor.Job{
		Store:    store,
		Images:   store.ImagePaths(req.ImageCount),
		Speech:   store.SpeechPath(),
		Music:    store.MusicPath(),
		Output:   store.OutputPath(),
		Timeline: tl,
	})
	if err != nil {
		return "", err
	}
	tracker.Report(ctx, progress.StageCompositing, 95, "composited with "+used)

	g.opts.Retention.Apply(all, g.logger)

	g.logger.Info("video ready",
		zap.String("job", req.OutputName),
		zap.String("path", store.OutputPath()),
		zap.String("compositor", used),
		zap.Duration("elapsed", time.Since(start)),
	)
	return store.OutputPath(), nil
}

func validate(req Request) error {
	var problems []string
	if strings.TrimSpace(req.ImagePrompt) == "" {
		problems = append(problems, "empty image prompt")
	}
	if strings.TrimSpace(req.SpeechText) == "" {
		problems = append(problems, "empty speech text")
	}
	if strings.TrimSpace(req.MusicPrompt) == "" {
		problems = append(problems, "empty music prompt")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(problems, ", "))
	}
	if req.ImageCount <= 0 || req.ImageCount > config.MaxImageCount {
		return &timeline.InvalidTimelineError{
			Reason: fmt.Sprintf("image count %d outside 1..%d", req.ImageCount, config.MaxImageCount),
		}
	}
	if math.IsNaN(req.Duration) || math.IsInf(req.Duration, 0) {
		return &timeline.InvalidTimelineError{Reason: "duration is not finite"}
	}
	return nil
}

// VariedPrompt appends the i-th (1-based) style suffix and a uniqueness token
func VariedPrompt(base string, i int, token string) string {
	style := styleSuffixes[(i-1)%len(styleSuffixes)]
	return fmt.Sprintf("%s, %s, variation %s", strings.TrimSpace(base), style, token)
}

func (g *MultimodalVideoGenerator) generateImage(ctx context.Context, store *artifacts.Store, base string, i int) (types.MediaArtifact, error) {
	prompt := VariedPrompt(base, i, g.token())
	res, err := g.images.GenerateImage(ctx, prompt, g.opts.ImageParams)
	if err != nil {
		return types.MediaArtifact{}, err
	}
	if len(res.Images) == 0 {
		return types.MediaArtifact{}, &adapters.GenerationError{
			Backend: g.images.Name(), Prompt: prompt, Err: errors.New("no image returned"),
		}
	}

	path := store.ImagePath(i)
	img := res.Images[0]
	if err := g.images.SaveImage(img, path); err != nil {
		return types.MediaArtifact{}, err
	}
	// the encoder reads the file, so an undecodable save fails here
	w, h, err := adapters.ImageSize(path)
	if err != nil {
		return types.MediaArtifact{}, &adapters.IOError{Path: path, Err: err}
	}
	g.logger.Debug("image saved", zap.String("job", store.Base()), zap.String("path", path), zap.Int("width", w), zap.Int("height", h))
	return types.MediaArtifact{Kind: types.ArtifactImage, Path: path, Width: w, Height: h}, nil
}

func (g *MultimodalVideoGenerator) generateSpeech(ctx context.Context, store *artifacts.Store, text string) (types.MediaArtifact, error) {
	res, err := g.speech.GenerateSpeech(ctx, text, g.opts.SpeechParams)
	if err != nil {
		return types.MediaArtifact{}, err
	}
	return g.saveAudio(g.speech.SaveAudio, res, types.ArtifactSpeech, store.SpeechPath())
}

func (g *MultimodalVideoGenerator) generateMusic(ctx context.Context, store *artifacts.Store, prompt string, duration float64) (types.MediaArtifact, error) {
	params := g.opts.MusicParams
	switch {
	case duration > 0:
		params.DurationSecs = duration
	case params.DurationSecs <= 0:
		params.DurationSecs = config.DefaultVideoDuration
	}
	res, err := g.music.GenerateMusic(ctx, prompt, params)
	if err != nil {
		return types.MediaArtifact{}, err
	}
	return g.saveAudio(g.music.SaveAudio, res, types.ArtifactMusic, store.MusicPath())
}

func (g *MultimodalVideoGenerator) saveAudio(save func(*adapters.AudioResult, string) error, res *adapters.AudioResult, kind types.ArtifactKind, path string) (types.MediaArtifact, error) {
	if err := save(res, path); err != nil {
		return types.MediaArtifact{}, err
	}
	// measured from the file so the timeline matches what the encoder reads
	d, err := adapters.WAVDuration(path)
	if err != nil {
		d = res.Duration()
		g.logger.Warn("could not measure audio, using generated length",
			zap.String("path", path), zap.Float64("duration", d), zap.Error(err))
	}
	return types.MediaArtifact{Kind: kind, Path: path, Duration: d, SampleRate: res.SampleRate}, nil
}
