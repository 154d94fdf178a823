// Package timeline reconciles independently generated artifacts of
// non-matching durations into one schedule of total length D.
//
// All functions here are pure arithmetic over known durations.
package timeline

import (
	"errors"
	"fmt"
	"math"

	"moodcast/config"
)

// ErrInvalidTimeline is matched by *InvalidTimelineError
var ErrInvalidTimeline = errors.New("invalid timeline")

// InvalidTimelineError reports inputs no schedule can be built from
type InvalidTimelineError struct {
	Reason string
}

func (e *InvalidTimelineError) Error() string { return "invalid timeline: " + e.Reason }

func (e *InvalidTimelineError) Is(target error) bool { return target == ErrInvalidTimeline }

// ImageWindow is the slot one still occupies. Windows are contiguous and
// cover [0, D]; crossfades overlap them at render time.
type ImageWindow struct {
	Index    int     `json:"index"` // 1-based, matches the artifact file name
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// End returns Start + Duration
func (w ImageWindow) End() float64 { return w.Start + w.Duration }

// MusicMode says how the music bed is fitted to D
type MusicMode string

const (
	MusicTrim MusicMode = "trim"
	MusicLoop MusicMode = "loop"
)

// MusicPlan fits a clip of length Source onto [0, Duration]
type MusicPlan struct {
	Mode      MusicMode `json:"mode"`
	Source    float64   `json:"source"`
	Repeats   int       `json:"repeats"`
	Offsets   []float64 `json:"offsets"`
	Crossfade float64   `json:"crossfade"`
	Duration  float64   `json:"duration"`
}

// Length is the untrimmed length of the tiled composite
func (p MusicPlan) Length() float64 {
	if p.Repeats <= 0 {
		return 0
	}
	return float64(p.Repeats)*p.Source - float64(p.Repeats-1)*p.Crossfade
}

// SubtitleSegment is one chunk of text and its visibility window
type SubtitleSegment struct {
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	FadeIn  float64 `json:"fade_in"`
	FadeOut float64 `json:"fade_out"`
}

// Timeline is the reconciled schedule for one job
type Timeline struct {
	Duration  float64           `json:"duration"`
	Speech    float64           `json:"speech"`
	Images    []ImageWindow     `json:"images"`
	Hold      float64           `json:"hold"`
	Crossfade float64           `json:"crossfade"`
	Fade      float64           `json:"fade"`
	Music     MusicPlan         `json:"music"`
	Subtitles []SubtitleSegment `json:"subtitles,omitempty"`
}

// Step is the stagger between consecutive image starts (D/N)
func (t *Timeline) Step() float64 {
	if len(t.Images) == 0 {
		return 0
	}
	return t.Duration / float64(len(t.Images))
}

// DisplayDuration is how long image k (0-based) is on screen including its
// crossfade overlap, or the hold for the final image
func (t *Timeline) DisplayDuration(k int) float64 {
	w := t.Images[k]
	if k == len(t.Images)-1 {
		return w.Duration + t.Hold
	}
	return w.Duration + t.Crossfade
}

// Input carries the duration signals for one job
type Input struct {
	Requested    float64 // explicit duration; <= 0 means derive
	Speech       float64
	Music        float64
	ImageCount   int
	SubtitleText string
}

// Options tunes the reconciler
type Options struct {
	Hold              float64
	Crossfade         float64
	Fade              float64
	SecondsPerSegment float64
	SubtitleFade      float64
	Chunking          Chunking
}

// DefaultOptions returns the configured constants
func DefaultOptions() Options {
	return Options{
		Hold:              config.HoldDuration,
		Crossfade:         config.CrossfadeDuration,
		Fade:              config.GlobalFadeDuration,
		SecondsPerSegment: config.SubtitleSecondsPerSegment,
		SubtitleFade:      config.SubtitleFade,
		Chunking:          ChunkWords,
	}
}

// Reconciler builds timelines with fixed options
type Reconciler struct {
	opts Options
}

// NewReconciler creates a reconciler. Zero Hold, Fade, SecondsPerSegment,
// SubtitleFade and Chunking take their defaults. Crossfade is used as given:
// zero means hard cuts between images and music loops.
func NewReconciler(opts Options) *Reconciler {
	def := DefaultOptions()
	if opts.Hold <= 0 {
		opts.Hold = def.Hold
	}
	if opts.Crossfade < 0 {
		opts.Crossfade = 0
	}
	if opts.Fade <= 0 {
		opts.Fade = def.Fade
	}
	if opts.SecondsPerSegment <= 0 {
		opts.SecondsPerSegment = def.SecondsPerSegment
	}
	if opts.SubtitleFade <= 0 {
		opts.SubtitleFade = def.SubtitleFade
	}
	if opts.Chunking == "" {
		opts.Chunking = def.Chunking
	}
	return &Reconciler{opts: opts}
}

// ResolveDuration returns requested when positive, else max(speech, music)
func ResolveDuration(requested, speech, music float64) float64 {
	if requested > 0 {
		return requested
	}
	return math.Max(speech, music)
}

// Reconcile resolves D and derives the image, music and subtitle plans
func (r *Reconciler) Reconcile(in Input) (*Timeline, error) {
	if in.ImageCount <= 0 {
		return nil, &InvalidTimelineError{Reason: fmt.Sprintf("image count %d", in.ImageCount)}
	}
	d := ResolveDuration(in.Requested, in.Speech, in.Music)
	if !(d > 0) || math.IsInf(d, 0) {
		return nil, &InvalidTimelineError{Reason: fmt.Sprintf("duration %v", d)}
	}

	images, err := PlanImages(d, in.ImageCount)
	if err != nil {
		return nil, err
	}
	music, err := PlanMusic(d, in.Music, r.opts.Crossfade)
	if err != nil {
		return nil, err
	}

	step := d / float64(in.ImageCount)
	xf := 0.0
	if in.ImageCount > 1 {
		xf = math.Min(r.opts.Crossfade, step/2)
	}

	return &Timeline{
		Duration:  d,
		Speech:    in.Speech,
		Images:    images,
		Hold:      r.opts.Hold,
		Crossfade: xf,
		Fade:      math.Min(r.opts.Fade, d/4),
		Music:     music,
		Subtitles: PlanSubtitles(in.SubtitleText, d, r.opts.SecondsPerSegment, r.opts.SubtitleFade, r.opts.Chunking),
	}, nil
}

// PlanImages divides [0, d] into n windows of d/n. The last window ends at
// exactly d so accumulated rounding never leaves the track short.
func PlanImages(d float64, n int) ([]ImageWindow, error) {
	if n <= 0 {
		return nil, &InvalidTimelineError{Reason: fmt.Sprintf("image count %d", n)}
	}
	if !(d > 0) {
		return nil, &InvalidTimelineError{Reason: fmt.Sprintf("duration %v", d)}
	}

	step := d / float64(n)
	windows := make([]ImageWindow, n)
	for i := range windows {
		start := float64(i) * step
		dur := step
		if i == n-1 {
			dur = d - start
		}
		windows[i] = ImageWindow{Index: i + 1, Start: start, Duration: dur}
	}
	return windows, nil
}

// PlanMusic trims a clip of length m to d, or tiles it with crossfaded loop
// boundaries and trims the composite to d. The crossfade is clamped below m/2.
func PlanMusic(d, m, f float64) (MusicPlan, error) {
	if !(m > 0) {
		return MusicPlan{}, &InvalidTimelineError{Reason: fmt.Sprintf("music duration %v", m)}
	}
	if !(d > 0) {
		return MusicPlan{}, &InvalidTimelineError{Reason: fmt.Sprintf("duration %v", d)}
	}

	if m >= d {
		return MusicPlan{Mode: MusicTrim, Source: m, Repeats: 1, Offsets: []float64{0}, Duration: d}, nil
	}

	if f < 0 {
		f = 0
	}
	if f >= m/2 {
		f = m / 4
	}

	// smallest k with k*m - (k-1)*f >= d
	k := int(math.Ceil((d-f)/(m-f) - 1e-9))
	if k < 2 {
		k = 2
	}
	offsets := make([]float64, k)
	for j := range offsets {
		offsets[j] = float64(j) * (m - f)
	}
	return MusicPlan{Mode: MusicLoop, Source: m, Repeats: k, Offsets: offsets, Crossfade: f, Duration: d}, nil
}
