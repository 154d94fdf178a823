package compositor

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"moodcast/artifacts"
	"moodcast/timeline"
)

// ErrComposition is matched by *CompositionError
var ErrComposition = errors.New("composition failed")

// CompositionError is terminal: the primary path (if attempted) and the
// fallback both failed
type CompositionError struct {
	Primary  error
	Fallback error
}

func (e *CompositionError) Error() string {
	if e.Primary == nil {
		return fmt.Sprintf("composition failed: fallback: %v", e.Fallback)
	}
	return fmt.Sprintf("composition failed: primary: %v; fallback: %v", e.Primary, e.Fallback)
}

func (e *CompositionError) Unwrap() []error {
	var errs []error
	if e.Primary != nil {
		errs = append(errs, e.Primary)
	}
	if e.Fallback != nil {
		errs = append(errs, e.Fallback)
	}
	return errs
}

func (e *CompositionError) Is(target error) bool { return target == ErrComposition }

// Job is everything a compositor needs for one render
type Job struct {
	Store    *artifacts.Store
	Images   []string // one per timeline image window, in order
	Speech   string
	Music    string
	Output   string
	Timeline *timeline.Timeline
}

func (j Job) validate() error {
	if j.Store == nil {
		return errors.New("job has no artifact store")
	}
	if j.Timeline == nil {
		return errors.New("job has no timeline")
	}
	if len(j.Images) == 0 {
		return errors.New("job has no images")
	}
	if j.Timeline.Duration > 0 && len(j.Images) != len(j.Timeline.Images) {
		return fmt.Errorf("%d images for %d timeline windows", len(j.Images), len(j.Timeline.Images))
	}
	if j.Output == "" {
		return errors.New("job has no output path")
	}
	return nil
}

// Compositor renders a Job to Job.Output
type Compositor interface {
	Name() string
	Compose(ctx context.Context, job Job) error
}

// Composer tries the primary compositor when it is available and falls back
// to the direct encoder invocation with identical inputs
type Composer struct {
	caps     Capabilities
	primary  Compositor
	fallback Compositor
	logger   *zap.Logger
}

// NewComposer wires the two paths. Either may be nil.
func NewComposer(caps Capabilities, primary, fallback Compositor, logger *zap.Logger) *Composer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Composer{caps: caps, primary: primary, fallback: fallback, logger: logger}
}

// Capabilities returns what was detected at startup
func (c *Composer) Capabilities() Capabilities { return c.caps }

// Compose renders job and returns the name of the compositor that produced it
func (c *Composer) Compose(ctx context.Context, job Job) (string, error) {
	if err := job.validate(); err != nil {
		return "", &CompositionError{Fallback: err}
	}

	var primaryErr error
	if c.primary != nil && c.caps.PrimaryAvailable {
		primaryErr = c.run(ctx, c.primary, job)
		if primaryErr == nil {
			return c.primary.Name(), nil
		}
		c.logger.Warn("primary compositor failed, falling back",
			zap.String("job", job.Store.Base()),
			zap.Error(primaryErr),
		)
	} else {
		c.logger.Info("primary compositor unavailable, using fallback", zap.String("job", job.Store.Base()))
	}

	if c.fallback == nil {
		c.discard(job)
		return "", &CompositionError{Primary: primaryErr, Fallback: errors.New("no fallback compositor configured")}
	}
	if err := c.run(ctx, c.fallback, job); err != nil {
		c.discard(job)
		return "", &CompositionError{Primary: primaryErr, Fallback: err}
	}
	return c.fallback.Name(), nil
}

// discard removes a partial output and any intermediates left by failed
// encodes. Adapter artifacts stay.
func (c *Composer) discard(job Job) {
	if err := os.Remove(job.Output); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.logger.Warn("failed to remove partial output", zap.String("path", job.Output), zap.Error(err))
	}
	if err := job.Store.RemoveTemps(); err != nil {
		c.logger.Warn("failed to remove temp files", zap.String("job", job.Store.Base()), zap.Error(err))
	}
}

func (c *Composer) run(ctx context.Context, comp Compositor, job Job) error {
	c.logger.Info("compositing",
		zap.String("job", job.Store.Base()),
		zap.String("compositor", comp.Name()),
		zap.Float64("duration", job.Timeline.Duration),
		zap.Int("images", len(job.Images)),
		zap.Int("subtitles", len(job.Timeline.Subtitles)),
	)
	if err := comp.Compose(ctx, job); err != nil {
		return fmt.Errorf("%s: %w", comp.Name(), err)
	}
	info, err := os.Stat(job.Output)
	if err != nil {
		return fmt.Errorf("%s: output not written: %w", comp.Name(), err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s: output is empty", comp.Name())
	}
	return nil
}
