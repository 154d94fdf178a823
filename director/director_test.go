package director

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"moodcast/adapters"
	"moodcast/artifacts"
	"moodcast/compositor"
	"moodcast/progress"
	"moodcast/timeline"

	"go.uber.org/zap/zaptest"
)

type fakeImages struct {
	mu      sync.Mutex
	failAt  int
	prompts []string
	loadErr error
	corrupt bool
}

func (f *fakeImages) Name() string { return "fake-image" }

func (f *fakeImages) Load(context.Context) error {
	if f.loadErr != nil {
		return &adapters.ModelLoadError{Backend: f.Name(), Err: f.loadErr}
	}
	return nil
}

func (f *fakeImages) GenerateImage(_ context.Context, prompt string, _ adapters.ImageParams) (*adapters.ImageResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if len(f.prompts) == f.failAt {
		return nil, &adapters.GenerationError{Backend: f.Name(), Prompt: prompt, Err: errors.New("device lost")}
	}
	return &adapters.ImageResult{Images: []image.Image{image.NewRGBA(image.Rect(0, 0, 16, 8))}, Prompt: prompt}, nil
}

func (f *fakeImages) SaveImage(img image.Image, path string) error {
	if f.corrupt {
		return os.WriteFile(path, []byte("not an image"), 0o644)
	}
	return adapters.WritePNG(img, path)
}

type fakeAudio struct {
	mu      sync.Mutex
	seconds float64
	err     error
	params  []adapters.MusicParams
}

func (f *fakeAudio) Name() string               { return "fake-audio" }
func (f *fakeAudio) Load(context.Context) error { return nil }

func (f *fakeAudio) render(prompt string, seconds float64) (*adapters.AudioResult, error) {
	if f.err != nil {
		return nil, &adapters.GenerationError{Backend: f.Name(), Prompt: prompt, Err: f.err}
	}
	const rate = 8000
	return &adapters.AudioResult{
		Samples:    make([]float32, int(math.Round(seconds*rate))),
		Channels:   1,
		SampleRate: rate,
		Prompt:     prompt,
	}, nil
}

func (f *fakeAudio) GenerateSpeech(_ context.Context, text string, _ adapters.SpeechParams) (*adapters.AudioResult, error) {
	return f.render(text, f.seconds)
}

func (f *fakeAudio) GenerateMusic(_ context.Context, prompt string, params adapters.MusicParams) (*adapters.AudioResult, error) {
	f.mu.Lock()
	f.params = append(f.params, params)
	f.mu.Unlock()
	seconds := f.seconds
	if seconds <= 0 {
		seconds = params.DurationSecs
	}
	return f.render(prompt, seconds)
}

func (f *fakeAudio) SaveAudio(res *adapters.AudioResult, path string) error {
	return adapters.WriteWAV(res, path)
}

type fakeCompositor struct {
	name string
	err  error
	jobs []compositor.Job
}

func (f *fakeCompositor) Name() string { return f.name }

func (f *fakeCompositor) Compose(_ context.Context, job compositor.Job) error {
	f.jobs = append(f.jobs, job)
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(job.Output, []byte("video:"+f.name), 0o644)
}

type harness struct {
	images   *fakeImages
	speech   *fakeAudio
	music    *fakeAudio
	primary  *fakeCompositor
	fallback *fakeCompositor
	dir      string
	events   []progress.Event
	mu       sync.Mutex
}

func newHarness(t *testing.T) *harness {
	return &harness{
		images:   &fakeImages{},
		speech:   &fakeAudio{seconds: 3},
		music:    &fakeAudio{seconds: 4},
		primary:  &fakeCompositor{name: "primary"},
		fallback: &fakeCompositor{name: "fallback"},
		dir:      t.TempDir(),
	}
}

func (h *harness) generator(t *testing.T, mutate func(*Options)) *MultimodalVideoGenerator {
	logger := zaptest.NewLogger(t)
	composer := compositor.NewComposer(
		compositor.Capabilities{PrimaryAvailable: true, FallbackAvailable: true},
		h.primary, h.fallback, logger,
	)
	opts := DefaultOptions()
	opts.OutputDir = h.dir
	opts.Sink = progress.SinkFunc(func(_ context.Context, ev progress.Event) {
		h.mu.Lock()
		h.events = append(h.events, ev)
		h.mu.Unlock()
	})
	if mutate != nil {
		mutate(&opts)
	}
	g := NewMultimodalVideoGenerator(h.images, h.speech, h.music, composer, opts, logger)
	n := 0
	g.token = func() string {
		n++
		return fmt.Sprintf("tok%d", n)
	}
	return g
}

func baseRequest(name string) Request {
	return Request{
		ImagePrompt: "misty lake at dawn",
		SpeechText:  "You are not alone. Take a slow breath.",
		MusicPrompt: "slow ambient piano",
		OutputName:  name,
		ImageCount:  3,
	}
}

func TestGenerateAndSynthesize(t *testing.T) {
	h := newHarness(t)
	g := h.generator(t, nil)

	out, err := g.GenerateAndSynthesize(context.Background(), baseRequest("calm_job"))
	if err != nil {
		t.Fatalf("GenerateAndSynthesize: %v", err)
	}
	if want := filepath.Join(h.dir, "calm_job.mp4"); out != want {
		t.Fatalf("output = %q; want %q", out, want)
	}
	if len(h.primary.jobs) != 1 || len(h.fallback.jobs) != 0 {
		t.Fatalf("primary calls = %d, fallback calls = %d", len(h.primary.jobs), len(h.fallback.jobs))
	}

	job := h.primary.jobs[0]
	// speech 3s and music 4s with no explicit duration: music dominates
	if math.Abs(job.Timeline.Duration-4) > 1e-6 {
		t.Errorf("timeline duration = %v; want 4", job.Timeline.Duration)
	}
	if len(job.Images) != 3 || len(job.Timeline.Images) != 3 {
		t.Errorf("images = %d, windows = %d; want 3", len(job.Images), len(job.Timeline.Images))
	}
	if len(job.Timeline.Subtitles) != 0 {
		t.Errorf("subtitles planned while disabled: %+v", job.Timeline.Subtitles)
	}
	for i := 1; i <= 3; i++ {
		if _, err := os.Stat(filepath.Join(h.dir, fmt.Sprintf("calm_job_image_%d.png", i))); err != nil {
			t.Errorf("image %d missing: %v", i, err)
		}
	}
}

func TestThirdOfFiveImagesFails(t *testing.T) {
	h := newHarness(t)
	h.images.failAt = 3
	g := h.generator(t, nil)

	req := baseRequest("sad_job")
	req.ImageCount = 5
	_, err := g.GenerateAndSynthesize(context.Background(), req)

	var genErr *adapters.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("err = %v; want *adapters.GenerationError", err)
	}
	if !errors.Is(err, adapters.ErrGeneration) {
		t.Fatalf("errors.Is(err, ErrGeneration) = false for %v", err)
	}
	if got := len(h.images.prompts); got != 3 {
		t.Errorf("image calls = %d; want 3 (no calls after the failure)", got)
	}
	for i := 1; i <= 2; i++ {
		if _, err := os.Stat(filepath.Join(h.dir, fmt.Sprintf("sad_job_image_%d.png", i))); err != nil {
			t.Errorf("image %d should remain on disk: %v", i, err)
		}
	}
	if _, err := os.Stat(filepath.Join(h.dir, "sad_job_image_3.png")); !os.IsNotExist(err) {
		t.Errorf("image 3 should not exist, stat err = %v", err)
	}
	if _, err := os.Stat(filepath.Join(h.dir, "sad_job.mp4")); !os.IsNotExist(err) {
		t.Errorf("no video should be produced, stat err = %v", err)
	}
	if len(h.primary.jobs)+len(h.fallback.jobs) != 0 {
		t.Error("compositor ran after an adapter failure")
	}

	last := h.events[len(h.events)-1]
	if last.Stage != progress.StageError || !strings.Contains(last.Err, "device lost") {
		t.Errorf("last event = %+v; want error event carrying the cause", last)
	}
}

func TestSpeechFailureAbortsJob(t *testing.T) {
	h := newHarness(t)
	h.speech.err = errors.New("voice preset missing")
	g := h.generator(t, nil)

	_, err := g.GenerateAndSynthesize(context.Background(), baseRequest("voice_job"))
	if !errors.Is(err, adapters.ErrGeneration) {
		t.Fatalf("err = %v; want ErrGeneration", err)
	}
	if len(h.primary.jobs)+len(h.fallback.jobs) != 0 {
		t.Error("compositor ran without speech")
	}
}

func TestUndecodableImageFailsJob(t *testing.T) {
	h := newHarness(t)
	h.images.corrupt = true
	g := h.generator(t, nil)

	_, err := g.GenerateAndSynthesize(context.Background(), baseRequest("broken_job"))
	if !errors.Is(err, adapters.ErrIO) {
		t.Fatalf("err = %v; want ErrIO", err)
	}
	if len(h.primary.jobs)+len(h.fallback.jobs) != 0 {
		t.Error("compositor ran with an unreadable image")
	}
}

func TestFallbackWhenPrimaryFails(t *testing.T) {
	h := newHarness(t)
	h.primary.err = errors.New("no subtitle renderer")
	g := h.generator(t, nil)

	req := baseRequest("anxious_job")
	req.Subtitles = true
	out, err := g.GenerateAndSynthesize(context.Background(), req)
	if err != nil {
		t.Fatalf("GenerateAndSynthesize: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "video:fallback" {
		t.Fatalf("output written by %q; want fallback", data)
	}
	if len(h.fallback.jobs) != 1 {
		t.Fatalf("fallback calls = %d; want 1", len(h.fallback.jobs))
	}
	if h.primary.jobs[0].Timeline != h.fallback.jobs[0].Timeline || h.primary.jobs[0].Output != h.fallback.jobs[0].Output {
		t.Error("fallback did not receive identical inputs")
	}
	if len(h.fallback.jobs[0].Timeline.Subtitles) == 0 {
		t.Error("subtitles enabled but none planned")
	}
}

func TestBothCompositorsFail(t *testing.T) {
	h := newHarness(t)
	h.primary.err = errors.New("graph rejected")
	h.fallback.err = errors.New("encoder crashed")
	g := h.generator(t, nil)

	_, err := g.GenerateAndSynthesize(context.Background(), baseRequest("angry_job"))
	if !errors.Is(err, compositor.ErrComposition) {
		t.Fatalf("err = %v; want ErrComposition", err)
	}
	if _, err := os.Stat(filepath.Join(h.dir, "angry_job_speech.wav")); err != nil {
		t.Errorf("raw artifacts should stay for diagnostics: %v", err)
	}
}

func TestSubtitleTextResolution(t *testing.T) {
	tests := []struct {
		name      string
		enabled   bool
		override  string
		wantFirst string
	}{
		{"disabled", false, "ignored", ""},
		{"speech text", true, "", "You"},
		{"override", true, "Breathe in", "Breathe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			g := h.generator(t, nil)
			req := baseRequest("subs_job")
			req.Subtitles = tt.enabled
			req.SubtitleText = tt.override
			if _, err := g.GenerateAndSynthesize(context.Background(), req); err != nil {
				t.Fatal(err)
			}
			segs := h.primary.jobs[0].Timeline.Subtitles
			if tt.wantFirst == "" {
				if len(segs) != 0 {
					t.Fatalf("segments = %+v; want none", segs)
				}
				return
			}
			if len(segs) == 0 || !strings.HasPrefix(segs[0].Text, tt.wantFirst) {
				t.Fatalf("segments = %+v; want first starting with %q", segs, tt.wantFirst)
			}
		})
	}
}

func TestMusicDurationDefaultsToTarget(t *testing.T) {
	tests := []struct {
		requested float64
		want      float64
	}{
		{12, 12},
		{0, 10},
		{500, 180},
	}
	for _, tt := range tests {
		h := newHarness(t)
		h.music.seconds = 0 // render exactly what was asked
		g := h.generator(t, nil)
		req := baseRequest("music_job")
		req.Duration = tt.requested
		if _, err := g.GenerateAndSynthesize(context.Background(), req); err != nil {
			t.Fatal(err)
		}
		if got := h.music.params[0].DurationSecs; got != tt.want {
			t.Errorf("requested %v: music duration = %v; want %v", tt.requested, got, tt.want)
		}
	}
}

func TestShortMusicLoopsToTarget(t *testing.T) {
	h := newHarness(t)
	g := h.generator(t, nil)
	req := baseRequest("loop_job")
	req.Duration = 12
	if _, err := g.GenerateAndSynthesize(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	plan := h.primary.jobs[0].Timeline.Music
	if plan.Mode != timeline.MusicLoop || plan.Repeats < 2 {
		t.Fatalf("music plan = %+v; want a loop of at least 2", plan)
	}
	if plan.Duration != 12 {
		t.Fatalf("music trimmed to %v; want 12", plan.Duration)
	}
}

func TestVariedPrompts(t *testing.T) {
	h := newHarness(t)
	g := h.generator(t, nil)
	req := baseRequest("vary_job")
	req.ImageCount = len(styleSuffixes) + 1
	if _, err := g.GenerateAndSynthesize(context.Background(), req); err != nil {
		t.Fatal(err)
	}

	seen := map[string]bool{}
	for i, p := range h.images.prompts {
		if !strings.HasPrefix(p, req.ImagePrompt) {
			t.Errorf("prompt %d = %q; want base prompt prefix", i+1, p)
		}
		if !strings.Contains(p, styleSuffixes[i%len(styleSuffixes)]) {
			t.Errorf("prompt %d = %q; want style %q", i+1, p, styleSuffixes[i%len(styleSuffixes)])
		}
		if seen[p] {
			t.Errorf("duplicate prompt %q", p)
		}
		seen[p] = true
	}
}

func TestInvalidRequests(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
		want   error
	}{
		{"no images", func(r *Request) { r.ImageCount = 0 }, timeline.ErrInvalidTimeline},
		{"too many images", func(r *Request) { r.ImageCount = 100 }, timeline.ErrInvalidTimeline},
		{"empty speech", func(r *Request) { r.SpeechText = " " }, ErrInvalidRequest},
		{"bad base name", func(r *Request) { r.OutputName = "../escape" }, ErrInvalidRequest},
		{"nan duration", func(r *Request) { r.Duration = math.NaN() }, timeline.ErrInvalidTimeline},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			g := h.generator(t, nil)
			req := baseRequest("bad_job")
			tt.mutate(&req)
			_, err := g.GenerateAndSynthesize(context.Background(), req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v; want %v", err, tt.want)
			}
			if len(h.images.prompts) != 0 {
				t.Error("adapters called for an invalid request")
			}
		})
	}
}

func TestProgressIsMonotonic(t *testing.T) {
	h := newHarness(t)
	g := h.generator(t, nil)
	req := baseRequest("progress_job")
	req.ImageCount = 4
	if _, err := g.GenerateAndSynthesize(context.Background(), req); err != nil {
		t.Fatal(err)
	}

	prev := 0
	for _, ev := range h.events {
		if ev.Percent < prev {
			t.Fatalf("percent went from %d to %d at %s", prev, ev.Percent, ev.Stage)
		}
		prev = ev.Percent
		if ev.JobID != "progress_job" {
			t.Errorf("event job = %q", ev.JobID)
		}
	}
	last := h.events[len(h.events)-1]
	if last.Stage != progress.StageDone || last.Percent != 100 {
		t.Fatalf("last event = %+v; want done at 100", last)
	}
}

func TestCallerOwnedTracker(t *testing.T) {
	h := newHarness(t)
	g := h.generator(t, nil)

	var events []progress.Event
	var mu sync.Mutex
	tracker := progress.NewTracker("owned_job", progress.SinkFunc(func(_ context.Context, ev progress.Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	}))
	req := baseRequest("owned_job")
	req.Progress = tracker
	if _, err := g.GenerateAndSynthesize(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	for _, ev := range events {
		if ev.Stage.Terminal() {
			t.Fatalf("director emitted terminal %s on a caller-owned tracker", ev.Stage)
		}
	}
	if len(h.events) != 0 {
		t.Error("configured sink used despite a caller-owned tracker")
	}
}

func TestRetentionCleanup(t *testing.T) {
	h := newHarness(t)
	g := h.generator(t, func(o *Options) { o.Retention = artifacts.Cleanup })

	out, err := g.GenerateAndSynthesize(context.Background(), baseRequest("clean_job"))
	if err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(h.dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != filepath.Base(out) {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("directory = %v; want only the video", names)
	}
}

func TestLoadAll(t *testing.T) {
	h := newHarness(t)
	h.images.loadErr = errors.New("weights missing")
	g := h.generator(t, nil)
	if err := g.LoadAll(context.Background()); !errors.Is(err, adapters.ErrModelLoad) {
		t.Fatalf("LoadAll err = %v; want ErrModelLoad", err)
	}
}
