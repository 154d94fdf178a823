// Package service runs the outer pipeline around the director: emotion
// inference, generation, publishing and job bookkeeping.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"moodcast/config"
	"moodcast/director"
	"moodcast/emotion"
	"moodcast/jobs"
	"moodcast/progress"
	"moodcast/publish"
	"moodcast/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInvalidJob is returned for requests rejected before any work starts
var ErrInvalidJob = errors.New("invalid job request")

// Generator is the director's public operation
type Generator interface {
	GenerateAndSynthesize(ctx context.Context, req director.Request) (string, error)
}

// Options holds request defaults and batch pacing
type Options struct {
	Duration      float64
	ImageCount    int
	Subtitles     bool
	MaxConcurrent int
	BatchDelay    time.Duration
}

// DefaultOptions returns the configured constants
func DefaultOptions() Options {
	return Options{
		ImageCount:    config.DefaultImageCount,
		Subtitles:     true,
		MaxConcurrent: config.MaxConcurrentJobs,
		BatchDelay:    config.JobBatchDelay,
	}
}

// Result describes one finished job
type Result struct {
	JobID      string
	Emotion    *types.EmotionResponse
	OutputPath string
	PublishURL string
}

// Processor handles the emotion, generation and publish pipeline
type Processor struct {
	responder  emotion.Responder
	generator  Generator
	publishers []publish.Publisher
	registry   *jobs.Registry
	sink       progress.Sink
	opts       Options
	logger     *zap.Logger

	sem   chan struct{}
	wg    sync.WaitGroup
	newID func() string
}

// NewProcessor wires the pipeline. The registry always receives progress
// events; extra sinks (Redis, Kafka) are fanned out alongside it.
func NewProcessor(
	responder emotion.Responder,
	generator Generator,
	publishers []publish.Publisher,
	registry *jobs.Registry,
	sink progress.Sink,
	opts Options,
	logger *zap.Logger,
) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if registry == nil {
		registry = jobs.NewRegistry(config.MaxJobLogs)
	}
	sinks := progress.Multi{registry, progress.NewLogSink(logger)}
	if sink != nil {
		sinks = append(sinks, sink)
	}
	if opts.ImageCount <= 0 {
		opts.ImageCount = config.DefaultImageCount
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = config.MaxConcurrentJobs
	}
	return &Processor{
		responder:  responder,
		generator:  generator,
		publishers: publishers,
		registry:   registry,
		sink:       sinks,
		opts:       opts,
		logger:     logger,
		sem:        make(chan struct{}, opts.MaxConcurrent),
		newID:      func() string { return strings.ReplaceAll(uuid.NewString(), "-", "")[:12] },
	}
}

// Registry exposes job status for the API
func (p *Processor) Registry() *jobs.Registry { return p.registry }

// Submit registers the job and runs it in the background. The returned id
// can be polled in the registry.
func (p *Processor) Submit(ctx context.Context, req types.GenerateRequest) (string, error) {
	jobID, err := p.prepare(req)
	if err != nil {
		return "", err
	}

	// the job outlives the request that submitted it
	jobCtx := context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if _, err := p.run(jobCtx, jobID, req); err != nil {
			p.logger.Error("job failed", zap.String("job", jobID), zap.Error(err))
		}
	}()
	return jobID, nil
}

// Wait blocks until every submitted job has finished
func (p *Processor) Wait() { p.wg.Wait() }

// ProcessRequest runs one job synchronously
func (p *Processor) ProcessRequest(ctx context.Context, req types.GenerateRequest) (*Result, error) {
	jobID, err := p.prepare(req)
	if err != nil {
		return nil, err
	}
	return p.run(ctx, jobID, req)
}

func (p *Processor) prepare(req types.GenerateRequest) (string, error) {
	if strings.TrimSpace(req.Text) == "" && req.Emotion == nil {
		return "", fmt.Errorf("%w: text is required", ErrInvalidJob)
	}
	if req.Duration < 0 || req.Duration > config.MaxVideoDuration {
		return "", fmt.Errorf("%w: duration %v outside 0..%v", ErrInvalidJob, req.Duration, config.MaxVideoDuration)
	}
	if req.ImageCount < 0 || req.ImageCount > config.MaxImageCount {
		return "", fmt.Errorf("%w: image_count %d outside 1..%d", ErrInvalidJob, req.ImageCount, config.MaxImageCount)
	}

	jobID := req.JobID
	if jobID == "" {
		jobID = p.newID()
	} else if emotion.SanitizeTag(jobID) != strings.ToLower(jobID) {
		return "", fmt.Errorf("%w: job_id %q may only contain letters, digits, '-' and '_'", ErrInvalidJob, jobID)
	}
	if err := p.registry.Register(jobID); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	return jobID, nil
}

func (p *Processor) run(ctx context.Context, jobID string, req types.GenerateRequest) (*Result, error) {
	p.sem <- struct{}{}
	defer func() { <-p.sem }()

	tracker := progress.NewTracker(jobID, p.sink)
	res, err := p.execute(ctx, tracker, jobID, req)
	if err != nil {
		tracker.Fail(ctx, err)
		return nil, err
	}
	tracker.Done(ctx, "video ready")
	return res, nil
}

func (p *Processor) execute(ctx context.Context, tracker *progress.Tracker, jobID string, req types.GenerateRequest) (*Result, error) {
	tracker.Report(ctx, progress.StageEmotion, 1, "reading the message")

	resp, err := p.resolveEmotion(ctx, req)
	if err != nil {
		return nil, err
	}
	p.registry.SetEmotion(jobID, resp)
	tracker.Report(ctx, progress.StageEmotion, 4, "emotion: "+resp.EmotionTag)

	subtitles := p.opts.Subtitles
	if req.Subtitles != nil {
		subtitles = *req.Subtitles
	}
	imageCount := req.ImageCount
	if imageCount == 0 {
		imageCount = p.opts.ImageCount
	}
	duration := req.Duration
	if duration == 0 {
		duration = p.opts.Duration
	}

	base := fmt.Sprintf("%s_%s", resp.EmotionTag, jobID)
	out, err := p.generator.GenerateAndSynthesize(ctx, director.Request{
		ImagePrompt: resp.ImagePrompt,
		SpeechText:  resp.VoiceText,
		MusicPrompt: resp.MusicPrompt,
		OutputName:  base,
		Duration:    duration,
		ImageCount:  imageCount,
		Subtitles:   subtitles,
		Progress:    tracker,
	})
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", base, err)
	}
	p.registry.SetOutput(jobID, out)

	res := &Result{JobID: jobID, Emotion: resp, OutputPath: out}
	for _, pub := range p.publishers {
		tracker.Report(ctx, progress.StagePublishing, 96, "publishing to "+pub.Name())
		url, err := pub.Publish(ctx, publish.Video{JobID: jobID, Path: out, Text: req.Text, Emotion: resp})
		if err != nil {
			return nil, fmt.Errorf("publish %s: %w", pub.Name(), err)
		}
		p.registry.SetPublishURL(jobID, url)
		if res.PublishURL == "" {
			res.PublishURL = url
		}
	}
	return res, nil
}

func (p *Processor) resolveEmotion(ctx context.Context, req types.GenerateRequest) (*types.EmotionResponse, error) {
	if req.Emotion != nil {
		resp := *req.Emotion
		if resp.ImagePrompt == "" || resp.VoiceText == "" || resp.MusicPrompt == "" {
			return nil, fmt.Errorf("%w: supplied emotion is missing prompts", emotion.ErrMalformedResponse)
		}
		resp.EmotionTag = emotion.SanitizeTag(resp.EmotionTag)
		return &resp, nil
	}
	if p.responder == nil {
		return nil, errors.New("no emotion responder configured")
	}
	resp, err := p.responder.Respond(ctx, req.Text)
	if err != nil {
		return nil, fmt.Errorf("%s responder: %w", p.responder.Name(), err)
	}
	return resp, nil
}

// ProcessFromDirectory processes every .json request and .txt message in dir
func (p *Processor) ProcessFromDirectory(ctx context.Context, dir string) error {
	jsonFiles, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return fmt.Errorf("failed to read JSON files: %w", err)
	}
	txtFiles, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return fmt.Errorf("failed to read txt files: %w", err)
	}
	files := append(jsonFiles, txtFiles...)

	if len(files) == 0 {
		p.logger.Info("no request files found", zap.String("dir", dir))
		return nil
	}
	p.logger.Info("processing batch", zap.String("dir", dir), zap.Int("files", len(files)))

	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	for i, file := range files {
		wg.Add(1)
		go func(idx int, file string) {
			defer wg.Done()

			if err := p.ProcessFile(ctx, file); err != nil {
				p.logger.Error("failed to process file", zap.String("file", file), zap.Error(err))
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(file), err))
				mu.Unlock()
			}
			if idx < len(files)-1 && p.opts.BatchDelay > 0 {
				time.Sleep(p.opts.BatchDelay)
			}
		}(i, file)
	}
	wg.Wait()

	p.logger.Info("batch finished", zap.Int("files", len(files)), zap.Int("failed", len(errs)))
	return errors.Join(errs...)
}

// ProcessFile runs one request file. A .txt file is the message text; a
// .json file is a GenerateRequest.
func (p *Processor) ProcessFile(ctx context.Context, file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read request: %w", err)
	}

	var req types.GenerateRequest
	if strings.EqualFold(filepath.Ext(file), ".json") {
		if err := json.Unmarshal(data, &req); err != nil {
			return fmt.Errorf("failed to parse JSON: %w", err)
		}
	} else {
		req.Text = strings.TrimSpace(string(data))
	}

	res, err := p.ProcessRequest(ctx, req)
	if err != nil {
		return err
	}
	p.logger.Info("file processed",
		zap.String("file", filepath.Base(file)),
		zap.String("job", res.JobID),
		zap.String("path", res.OutputPath),
	)
	return nil
}
