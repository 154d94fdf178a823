package progress

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Emit(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func TestTrackerMonotonic(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker("job", rec)
	ctx := context.Background()

	tr.Report(ctx, StageImages, 10, "image 1")
	tr.Report(ctx, StageMusic, 5, "music started")
	tr.Report(ctx, StageImages, 40, "image 2")
	tr.Report(ctx, StageSpeech, 30, "speech done")
	tr.Report(ctx, StageCompositing, 150, "over")

	want := []int{10, 10, 40, 40, 100}
	for i, ev := range rec.events {
		if ev.Percent != want[i] {
			t.Errorf("event %d percent = %d; want %d", i, ev.Percent, want[i])
		}
		if ev.JobID != "job" {
			t.Errorf("event %d job = %q", i, ev.JobID)
		}
	}
}

func TestTrackerConcurrentReportsStayOrdered(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker("job", rec)
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for p := 0; p <= 90; p += 3 {
				tr.Report(ctx, StageImages, (p+g)%91, "tick")
			}
		}(g)
	}
	wg.Wait()

	last := -1
	for i, ev := range rec.events {
		if ev.Percent < last {
			t.Fatalf("event %d went backwards: %d after %d", i, ev.Percent, last)
		}
		last = ev.Percent
	}
}

func TestTrackerTerminalEvents(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker("job", rec)
	ctx := context.Background()

	tr.Report(ctx, StageSpeech, 35, "speech")
	tr.Fail(ctx, errors.New("boom"))
	tr.Report(ctx, StageCompositing, 80, "late")
	tr.Done(ctx, "late")

	if len(rec.events) != 2 {
		t.Fatalf("got %d events after a terminal event; want 2", len(rec.events))
	}
	fail := rec.events[1]
	if fail.Stage != StageError || fail.Err != "boom" || fail.Percent != 35 {
		t.Fatalf("fail event = %+v", fail)
	}
	if tr.Percent() != 35 {
		t.Fatalf("Percent = %d", tr.Percent())
	}
}

func TestMultiAndNilSink(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := Multi{a, nil, b, NewLogSink(zaptest.NewLogger(t))}
	m.Emit(context.Background(), Event{JobID: "x", Stage: StageDone, Percent: 100})
	if len(a.events) != 1 || len(b.events) != 1 {
		t.Fatal("Multi did not fan out")
	}

	NewTracker("x", nil).Done(context.Background(), "ok")
}

func TestRedisKeys(t *testing.T) {
	if ChannelKey("calm_1") != "moodcast:progress:calm_1" || StatusKey("calm_1") != "moodcast:job:calm_1" {
		t.Fatal("unexpected redis key layout")
	}
}

func TestRedisSinkRoundTrip(t *testing.T) {
	addr := os.Getenv("MOODCAST_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("MOODCAST_TEST_REDIS_ADDR not set")
	}
	sink, err := NewRedisSink(RedisConfig{Addr: addr, TTL: time.Minute}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	defer sink.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	job := "test_" + time.Now().Format("150405.000000")
	events := sink.Subscribe(ctx, job)
	time.Sleep(100 * time.Millisecond)

	tr := NewTracker(job, sink)
	tr.Report(ctx, StageImages, 20, "image")
	tr.Done(ctx, "done")

	var got []Event
	for ev := range events {
		got = append(got, ev)
	}
	if len(got) != 2 || got[1].Stage != StageDone {
		t.Fatalf("subscribed events = %+v", got)
	}

	latest, err := sink.Latest(ctx, job)
	if err != nil {
		t.Fatal(err)
	}
	if latest.Stage != StageDone || latest.Percent != 100 {
		t.Fatalf("latest = %+v", latest)
	}
	if _, err := sink.Latest(ctx, job+"_missing"); !errors.Is(err, ErrNoProgress) {
		t.Fatalf("missing job: err = %v", err)
	}
}
