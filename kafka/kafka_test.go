package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"moodcast/progress"
	"moodcast/service"
	"moodcast/types"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"go.uber.org/zap/zaptest"
)

type fakeProcessor struct {
	reqs []types.GenerateRequest
	err  error
}

func (f *fakeProcessor) ProcessRequest(_ context.Context, req types.GenerateRequest) (*service.Result, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &service.Result{JobID: "j1", OutputPath: "output/j1.mp4"}, nil
}

func TestRequestHandler(t *testing.T) {
	tests := []struct {
		name      string
		message   string
		procErr   error
		wantMark  bool
		wantErr   bool
		wantCalls int
	}{
		{"valid", `{"text": "I feel anxious", "duration": 10}`, nil, true, false, 1},
		{"supplied emotion", `{"emotion": {"emotion_tag": "calm", "image_prompt": "a", "voice_text": "b", "music_prompt": "c"}}`, nil, true, false, 1},
		{"invalid json is skipped", `{"text": `, nil, true, false, 0},
		{"empty text is skipped", `{"text": "  "}`, nil, true, false, 0},
		{"failure is redelivered", `{"text": "hello"}`, errors.New("encoder crashed"), false, true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := &fakeProcessor{err: tt.procErr}
			h := NewRequestHandler(proc, zaptest.NewLogger(t))
			mark, err := h.HandleMessage(context.Background(), []byte(tt.message))
			if mark != tt.wantMark || (err != nil) != tt.wantErr {
				t.Fatalf("HandleMessage = (%v, %v); want (%v, err=%v)", mark, err, tt.wantMark, tt.wantErr)
			}
			if len(proc.reqs) != tt.wantCalls {
				t.Fatalf("process calls = %d; want %d", len(proc.reqs), tt.wantCalls)
			}
		})
	}
}

func TestProgressSink(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, cfg)

	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "moodcast-progress" {
			return fmt.Errorf("topic = %q", msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != "job7" {
			return fmt.Errorf("key = %q", key)
		}
		val, _ := msg.Value.Encode()
		var ev progress.Event
		if err := json.Unmarshal(val, &ev); err != nil {
			return err
		}
		if ev.Stage != progress.StageCompositing || ev.Percent != 70 {
			return fmt.Errorf("event = %+v", ev)
		}
		return nil
	})
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	sink := NewProgressSink(producer, "moodcast-progress", zaptest.NewLogger(t))
	sink.Emit(context.Background(), progress.Event{JobID: "job7", Stage: progress.StageCompositing, Percent: 70})
	// failures are logged, never surfaced to the pipeline
	sink.Emit(context.Background(), progress.Event{JobID: "job7", Stage: progress.StageDone, Percent: 100})

	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}
}
