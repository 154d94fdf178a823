package compositor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"moodcast/timeline"
)

func argAfter(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func countFlag(args []string, flag string) int {
	n := 0
	for _, a := range args {
		if a == flag {
			n++
		}
	}
	return n
}

func TestPremixArgsLoopsMusic(t *testing.T) {
	plan, err := timeline.PlanMusic(12, 4, 1)
	if err != nil {
		t.Fatal(err)
	}
	tl := &timeline.Timeline{Duration: 12, Music: plan}
	args := premixArgs("s.wav", "m.wav", "mix.wav", tl, 0.25)

	if got := countFlag(args, "-i"); got != plan.Repeats+1 {
		t.Fatalf("%d inputs; want speech + %d music copies", got, plan.Repeats)
	}
	graph := argAfter(args, "-filter_complex")
	for _, want := range []string{
		"apad,atrim=duration=12.000,asetpts=PTS-STARTPTS[sp]",
		"[m0][m1]acrossfade=d=1.000[x1]",
		"[x3]apad,atrim=duration=12.000,asetpts=PTS-STARTPTS,volume=0.250[bed]",
		"amix=inputs=2:duration=first:dropout_transition=0,volume=2[mix]",
	} {
		if !strings.Contains(graph, want) {
			t.Errorf("filter graph missing %q\n%s", want, graph)
		}
	}
	if strings.Count(graph, "acrossfade") != plan.Repeats-1 {
		t.Errorf("expected %d crossfades in %s", plan.Repeats-1, graph)
	}
	if args[len(args)-1] != "mix.wav" || argAfter(args, "-map") != "[mix]" {
		t.Errorf("unexpected output args %v", args)
	}
}

func TestPremixArgsTrimsLongMusic(t *testing.T) {
	plan, _ := timeline.PlanMusic(10, 30, 1)
	args := premixArgs("s.wav", "m.wav", "mix.wav", &timeline.Timeline{Duration: 10, Music: plan}, 0.25)
	graph := argAfter(args, "-filter_complex")
	if strings.Contains(graph, "acrossfade") || countFlag(args, "-i") != 2 {
		t.Errorf("trim plan should use one music input: %v", args)
	}
	if !strings.Contains(graph, "[m0]apad,atrim=duration=10.000") {
		t.Errorf("music not trimmed: %s", graph)
	}
}

func TestPremixArgsAvoidNewerFilterOptions(t *testing.T) {
	for _, tl := range []*timeline.Timeline{
		{Duration: 12, Music: mustPlanMusic(t, 12, 4)},
		{Duration: 10, Music: mustPlanMusic(t, 10, 30)},
	} {
		graph := argAfter(premixArgs("s.wav", "m.wav", "mix.wav", tl, 0.25), "-filter_complex")
		for _, banned := range []string{"normalize=", "whole_dur", "duration=longest"} {
			if strings.Contains(graph, banned) {
				t.Errorf("pre-mix uses %q: %s", banned, graph)
			}
		}
	}
}

func mustPlanMusic(t *testing.T, d, m float64) timeline.MusicPlan {
	t.Helper()
	plan, err := timeline.PlanMusic(d, m, 1)
	if err != nil {
		t.Fatal(err)
	}
	return plan
}

func TestResolveTimelineMeasuresAudio(t *testing.T) {
	job := stubJob(t)
	job.Timeline = &timeline.Timeline{Crossfade: 1, Hold: 2}
	lengths := map[string]float64{job.Speech: 7, job.Music: 3}

	f := NewFallback(Capabilities{FallbackAvailable: true}, DefaultOptions(), nil, zaptest.NewLogger(t))
	f.measure = func(_ context.Context, _, path string) (float64, error) {
		d, ok := lengths[path]
		if !ok {
			return 0, errors.New("unexpected measurement of " + path)
		}
		return d, nil
	}

	tl, err := f.resolveTimeline(context.Background(), job)
	if err != nil {
		t.Fatal(err)
	}
	if tl.Duration != 7 || tl.Speech != 7 {
		t.Fatalf("duration = %v, speech = %v; want 7", tl.Duration, tl.Speech)
	}
	if len(tl.Images) != 2 || tl.Images[1].End() != 7 {
		t.Fatalf("image windows = %+v", tl.Images)
	}
	if tl.Music.Mode != timeline.MusicLoop || tl.Music.Duration != 7 {
		t.Fatalf("music plan = %+v; want a loop trimmed to 7", tl.Music)
	}
	if job.Timeline.Duration != 0 {
		t.Fatal("job timeline was mutated")
	}

	f.measure = func(context.Context, string, string) (float64, error) { return 0, errors.New("no ffprobe") }
	if _, err := f.resolveTimeline(context.Background(), job); err == nil {
		t.Fatal("measurement failure not reported")
	}
}

func TestWriteManifest(t *testing.T) {
	dir := t.TempDir()
	windows, _ := timeline.PlanImages(10, 3)
	tl := &timeline.Timeline{Duration: 10, Images: windows, Hold: 2}
	images := []string{
		filepath.Join(dir, "job_image_1.png"),
		filepath.Join(dir, "job_image_2.png"),
		filepath.Join(dir, "job's_image_3.png"),
	}
	path := filepath.Join(dir, "temp_job_manifest.txt")
	if err := writeManifest(path, images, tl); err != nil {
		t.Fatal(err)
	}
	b, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")

	if lines[0] != "ffconcat version 1.0" {
		t.Fatalf("header = %q", lines[0])
	}
	// three windows plus the repeated final still, two lines each
	if len(lines) != 1+2*4 {
		t.Fatalf("manifest has %d lines:\n%s", len(lines), b)
	}
	if lines[2] != "duration 3.333" || lines[6] != "duration 3.333" {
		t.Errorf("window durations: %q %q", lines[2], lines[6])
	}
	if lines[5] != lines[7] {
		t.Errorf("final still not repeated: %q vs %q", lines[5], lines[7])
	}
	if !strings.Contains(lines[5], `job'\''s_image_3.png'`) {
		t.Errorf("quote not escaped: %q", lines[5])
	}
	if lines[8] != "duration 2.000" {
		t.Errorf("hold entry = %q", lines[8])
	}
}
