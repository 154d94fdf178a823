package kafka

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"moodcast/service"
	"moodcast/types"

	"go.uber.org/zap"
)

// RequestProcessor runs one generation request to completion
type RequestProcessor interface {
	ProcessRequest(ctx context.Context, req types.GenerateRequest) (*service.Result, error)
}

// NewRequestHandler decodes GenerateRequest messages and runs them.
// Empty requests are marked and skipped; failed jobs are left for redelivery.
func NewRequestHandler(proc RequestProcessor, logger *zap.Logger) *TypedMessageHandler[types.GenerateRequest] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TypedMessageHandler[types.GenerateRequest]{
		Validate: func(msg *types.GenerateRequest) bool {
			if strings.TrimSpace(msg.Text) == "" && msg.Emotion == nil {
				logger.Warn("skipping request without text", zap.String("job", msg.JobID))
				return false
			}
			return true
		},
		Process: func(ctx context.Context, msg *types.GenerateRequest) error {
			res, err := proc.ProcessRequest(ctx, *msg)
			if err != nil {
				return err
			}
			logger.Info("request processed", zap.String("job", res.JobID), zap.String("path", res.OutputPath))
			return nil
		},
		AlwaysMark: true,
		Logger:     logger,
	}
}

// RunWithGracefulShutdown consumes requests until SIGINT/SIGTERM or ctx ends
func RunWithGracefulShutdown(ctx context.Context, config ConsumerConfig, logger *zap.Logger) error {
	consumer, err := NewConsumer(config, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := consumer.Start(ctx); err != nil {
		return err
	}

	sigterm := make(chan os.Signal, 1)
	signal.Notify(sigterm, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigterm:
		logger.Info("received termination signal")
	case <-ctx.Done():
		logger.Info("context canceled")
	}

	cancel()

	// Give some time for in-flight processing to complete
	time.Sleep(2 * time.Second)

	return consumer.Close()
}
