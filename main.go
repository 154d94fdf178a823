package main

import (
	"context"
	"flag"
	"os"
	"time"

	"moodcast/adapters"
	"moodcast/api"
	"moodcast/artifacts"
	"moodcast/compositor"
	"moodcast/config"
	"moodcast/director"
	"moodcast/emotion"
	"moodcast/jobs"
	"moodcast/kafka"
	"moodcast/progress"
	"moodcast/publish"
	"moodcast/service"
	"moodcast/storage"
	"moodcast/timeline"

	"go.uber.org/zap"
)

// remoteTimeout bounds one call to the inference server
const remoteTimeout = 5 * time.Minute

func main() {
	// Command-line flags
	batchMode := flag.Bool("batch", false, "Run in batch mode (process files from input/ directory)")
	kafkaMode := flag.Bool("kafka", false, "Run in Kafka consumer mode (consume from Kafka topic)")
	inputDir := flag.String("input", config.InputDir, "Batch input directory")
	flag.Parse()

	cfg := config.Load()
	logger, err := config.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	logger.Info("moodcast starting",
		zap.String("image_backend", cfg.ImageBackend),
		zap.String("speech_backend", cfg.SpeechBackend),
		zap.String("music_backend", cfg.MusicBackend),
		zap.String("llm", cfg.LLMProvider),
	)

	caps := compositor.DetectCapabilities(ctx, cfg.FFmpegPath, cfg.FFprobePath, logger)
	composer := newComposer(caps, cfg, logger)

	gen := newGenerator(cfg, composer, logger)
	if err := gen.LoadAll(ctx); err != nil {
		logger.Fatal("failed to load models", zap.Error(err))
	}

	sinks := progress.Multi{}
	var store api.ProgressStore
	if cfg.RedisAddr != "" {
		redisSink, err := progress.NewRedisSink(progress.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      config.ProgressTTL,
		}, logger)
		if err != nil {
			logger.Warn("redis unavailable, progress stays in-process", zap.Error(err))
		} else {
			defer redisSink.Close()
			sinks = append(sinks, redisSink)
			store = redisSink
		}
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaProgressTopic != "" {
		kafkaSink, err := kafka.NewProgressProducer(cfg.KafkaBrokers, cfg.KafkaProgressTopic, logger)
		if err != nil {
			logger.Warn("kafka progress producer unavailable", zap.Error(err))
		} else {
			defer kafkaSink.Close()
			sinks = append(sinks, kafkaSink)
		}
	}

	opts := service.DefaultOptions()
	opts.Duration = cfg.DefaultDuration
	opts.ImageCount = cfg.DefaultImages
	proc := service.NewProcessor(
		newResponder(ctx, cfg, logger),
		gen,
		newPublishers(ctx, cfg, logger),
		jobs.NewRegistry(config.MaxJobLogs),
		sinks,
		opts,
		logger,
	)

	if *batchMode {
		logger.Info("running in batch mode", zap.String("dir", *inputDir))
		if err := proc.ProcessFromDirectory(ctx, *inputDir); err != nil {
			logger.Error("batch processing failed", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	if *kafkaMode {
		if len(cfg.KafkaBrokers) == 0 {
			logger.Fatal("KAFKA_BOOTSTRAP_SERVERS is required in kafka mode")
		}
		kafkaConfig := kafka.ConsumerConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaRequestTopic,
			GroupID: cfg.KafkaGroupID,
			Handler: kafka.NewRequestHandler(proc, logger),
		}
		logger.Info("running in kafka consumer mode",
			zap.Strings("brokers", kafkaConfig.Brokers),
			zap.String("topic", kafkaConfig.Topic),
			zap.String("group", kafkaConfig.GroupID),
		)
		if err := kafka.RunWithGracefulShutdown(ctx, kafkaConfig, logger); err != nil {
			logger.Fatal("kafka consumer failed", zap.Error(err))
		}
		return
	}

	router := api.NewRouter(api.NewServer(proc, proc.Registry(), store, caps, logger))
	logger.Info("api server listening", zap.String("port", cfg.Port))
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func newComposer(caps compositor.Capabilities, cfg *config.Config, logger *zap.Logger) *compositor.Composer {
	opts := compositor.DefaultOptions()
	opts.MusicVolume = cfg.MusicVolume
	fonts := compositor.NewFontProber(logger)
	return compositor.NewComposer(caps,
		compositor.NewPrimary(caps, opts, fonts, logger),
		compositor.NewFallback(caps, opts, fonts, logger),
		logger,
	)
}

func newGenerator(cfg *config.Config, composer director.Composer, logger *zap.Logger) *director.MultimodalVideoGenerator {
	remote := adapters.NewRemoteClient(cfg.InferenceURL, remoteTimeout)

	var images adapters.ImageGenerator
	switch cfg.ImageBackend {
	case "imagen":
		images = adapters.NewImagenGenerator(cfg.GeminiAPIKey, cfg.ImagenModel, logger)
	case "remote":
		images = adapters.NewRemoteImageGenerator(remote, cfg.ImageModel, logger)
	default:
		images = adapters.NewGradientImageGenerator(config.VideoWidth, config.VideoHeight, logger)
	}

	var speech adapters.SpeechGenerator
	switch cfg.SpeechBackend {
	case "remote":
		speech = adapters.NewRemoteSpeechGenerator(remote, cfg.SpeechModel, logger)
	default:
		speech = adapters.NewEspeakSpeechGenerator(cfg.EspeakPath, cfg.EspeakVoice, logger)
	}

	var music adapters.MusicGenerator
	switch cfg.MusicBackend {
	case "remote":
		music = adapters.NewRemoteMusicGenerator(remote, cfg.MusicModel, logger)
	default:
		music = adapters.NewChordMusicGenerator(config.DefaultSampleRate, logger)
	}

	opts := director.DefaultOptions()
	opts.OutputDir = cfg.OutputDir
	opts.Timeline.Chunking = timeline.ParseChunking(cfg.SubtitleChunking)
	if !cfg.RetainArtifacts {
		opts.Retention = artifacts.Cleanup
	}
	return director.NewMultimodalVideoGenerator(images, speech, music, composer, opts, logger)
}

func newResponder(ctx context.Context, cfg *config.Config, logger *zap.Logger) emotion.Responder {
	switch {
	case cfg.LLMProvider == "gemini" && cfg.GeminiAPIKey != "":
		r, err := emotion.NewGeminiResponder(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err == nil {
			return r
		}
		logger.Warn("gemini responder unavailable", zap.Error(err))
	case cfg.CohereAPIKey != "":
		r, err := emotion.NewCohereResponder(cfg.CohereAPIKey, cfg.CohereModel)
		if err == nil {
			return r
		}
		logger.Warn("cohere responder unavailable", zap.Error(err))
	}
	logger.Info("using keyword emotion responder")
	return emotion.KeywordResponder{}
}

func newPublishers(ctx context.Context, cfg *config.Config, logger *zap.Logger) []publish.Publisher {
	var pubs []publish.Publisher
	if cfg.S3Bucket != "" {
		s3, err := storage.NewS3(ctx, storage.S3Config{
			Bucket:       cfg.S3Bucket,
			Prefix:       cfg.S3Prefix,
			Region:       cfg.S3Region,
			Profile:      cfg.S3Profile,
			UsePathStyle: cfg.S3UsePathStyle,
		})
		if err != nil {
			logger.Warn("s3 publishing disabled", zap.Error(err))
		} else {
			pubs = append(pubs, publish.NewS3Publisher(s3, logger))
		}
	}
	if cfg.YouTubeServiceAccountFile != "" {
		yt, err := publish.NewYouTubePublisher(ctx, cfg.YouTubeServiceAccountFile, logger)
		if err != nil {
			logger.Warn("youtube publishing disabled", zap.Error(err))
		} else {
			pubs = append(pubs, yt)
		}
	}
	return pubs
}
