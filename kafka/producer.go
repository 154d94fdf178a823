package kafka

import (
	"context"
	"encoding/json"

	"moodcast/progress"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// ProgressSink publishes progress events to a topic, keyed by job id so a
// job's events stay ordered within one partition
type ProgressSink struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

// NewProgressProducer connects a synchronous producer to brokers
func NewProgressProducer(brokers []string, topic string, logger *zap.Logger) (*ProgressSink, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_6_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return NewProgressSink(producer, topic, logger), nil
}

// NewProgressSink wraps an existing producer
func NewProgressSink(producer sarama.SyncProducer, topic string, logger *zap.Logger) *ProgressSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressSink{producer: producer, topic: topic, logger: logger}
}

// Emit implements progress.Sink. Delivery failures are logged.
func (s *ProgressSink) Emit(_ context.Context, ev progress.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("failed to marshal progress event", zap.Error(err))
		return
	}
	_, _, err = s.producer.SendMessage(&sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(ev.JobID),
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		s.logger.Warn("failed to publish progress to kafka",
			zap.String("job", ev.JobID),
			zap.String("stage", string(ev.Stage)),
			zap.Error(err),
		)
	}
}

// Close closes the producer
func (s *ProgressSink) Close() error {
	return s.producer.Close()
}
