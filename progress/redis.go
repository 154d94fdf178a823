package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrNoProgress is returned by Latest when no event is stored for a job
var ErrNoProgress = errors.New("no progress recorded")

// RedisSink publishes every event on moodcast:progress:{job} and keeps the
// latest one under moodcast:job:{job} for pollers on other hosts
type RedisSink struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// RedisConfig holds connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedisSink connects and verifies connectivity
func NewRedisSink(cfg RedisConfig, logger *zap.Logger) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return &RedisSink{client: client, ttl: cfg.TTL, logger: logger}, nil
}

// ChannelKey is the pub/sub channel for a job's events
func ChannelKey(jobID string) string { return "moodcast:progress:" + jobID }

// StatusKey holds the latest event for a job
func StatusKey(jobID string) string { return "moodcast:job:" + jobID }

func (r *RedisSink) Emit(ctx context.Context, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		r.logger.Error("failed to marshal progress event", zap.Error(err))
		return
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, StatusKey(ev.JobID), data, r.ttl)
	pipe.Publish(ctx, ChannelKey(ev.JobID), data)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("failed to publish progress to redis",
			zap.String("job", ev.JobID),
			zap.Error(err),
		)
	}
}

// Latest returns the most recent event stored for jobID
func (r *RedisSink) Latest(ctx context.Context, jobID string) (*Event, error) {
	data, err := r.client.Get(ctx, StatusKey(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoProgress
	}
	if err != nil {
		return nil, fmt.Errorf("read progress for %s: %w", jobID, err)
	}
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("decode progress for %s: %w", jobID, err)
	}
	return &ev, nil
}

// Subscribe streams events for jobID until ctx is done or a terminal event
// arrives. The returned channel is closed on exit.
func (r *RedisSink) Subscribe(ctx context.Context, jobID string) <-chan Event {
	out := make(chan Event, 16)
	sub := r.client.Subscribe(ctx, ChannelKey(jobID))

	go func() {
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					r.logger.Warn("dropping malformed progress message", zap.Error(err))
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
				if ev.Stage.Terminal() {
					return
				}
			}
		}
	}()
	return out
}

// Close closes the Redis connection
func (r *RedisSink) Close() error {
	return r.client.Close()
}
