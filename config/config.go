package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds every setting read from the environment.
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	// Job output
	OutputDir        string
	RetainArtifacts  bool
	SubtitleChunking string // "words" or "sentences"
	DefaultDuration  float64
	DefaultImages    int
	MusicVolume      float64

	// Generation back ends
	ImageBackend  string // "imagen", "remote" or "gradient"
	SpeechBackend string // "remote" or "espeak"
	MusicBackend  string // "remote" or "chord"
	InferenceURL  string
	ImageModel    string
	SpeechModel   string
	MusicModel    string
	ImagenModel   string
	EspeakPath    string
	EspeakVoice   string

	// Emotion responder
	LLMProvider  string // "cohere" or "gemini"
	CohereAPIKey string
	CohereModel  string
	GeminiAPIKey string
	GeminiModel  string

	// Encoder
	FFmpegPath  string
	FFprobePath string

	// Kafka
	KafkaBrokers       []string
	KafkaRequestTopic  string
	KafkaProgressTopic string
	KafkaGroupID       string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// S3
	S3Bucket       string
	S3Region       string
	S3Profile      string
	S3Prefix       string
	S3UsePathStyle bool

	// YouTube
	YouTubeServiceAccountFile string
}

// Load reads .env (non-fatal if missing) and then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	prefix := strings.TrimSpace(os.Getenv("S3_PREFIX"))
	if prefix != "" {
		prefix = strings.Trim(prefix, "/") + "/"
	}

	return &Config{
		Port:      getEnv("PORT", "8080"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		OutputDir:        getEnv("MOODCAST_OUTPUT_DIR", OutputDir),
		RetainArtifacts:  getEnvBool("MOODCAST_RETAIN_ARTIFACTS", true),
		SubtitleChunking: getEnv("MOODCAST_SUBTITLE_CHUNKING", "words"),
		DefaultDuration:  getEnvFloat("MOODCAST_DEFAULT_DURATION", DefaultVideoDuration),
		DefaultImages:    getEnvInt("MOODCAST_DEFAULT_IMAGES", DefaultImageCount),
		MusicVolume:      getEnvFloat("MOODCAST_MUSIC_VOLUME", MusicVolume),

		ImageBackend:  getEnv("IMAGE_BACKEND", "gradient"),
		SpeechBackend: getEnv("SPEECH_BACKEND", "espeak"),
		MusicBackend:  getEnv("MUSIC_BACKEND", "chord"),
		InferenceURL:  getEnv("INFERENCE_URL", "http://localhost:7860"),
		ImageModel:    getEnv("IMAGE_MODEL", "stabilityai/sdxl-turbo"),
		SpeechModel:   getEnv("SPEECH_MODEL", "suno/bark-small"),
		MusicModel:    getEnv("MUSIC_MODEL", "facebook/musicgen-small"),
		ImagenModel:   getEnv("IMAGEN_MODEL", "imagen-3.0-generate-002"),
		EspeakPath:    getEnv("ESPEAK_PATH", "espeak-ng"),
		EspeakVoice:   getEnv("ESPEAK_VOICE", "en-us"),

		LLMProvider:  getEnv("LLM_PROVIDER", "cohere"),
		CohereAPIKey: os.Getenv("COHERE_API_KEY"),
		CohereModel:  getEnv("COHERE_MODEL", "command-r-plus"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		FFmpegPath:  getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath: getEnv("FFPROBE_PATH", "ffprobe"),

		KafkaBrokers:       getEnvList("KAFKA_BOOTSTRAP_SERVERS", nil),
		KafkaRequestTopic:  getEnv("KAFKA_TOPIC_GENERATION_REQUESTS", "video-generation-requests"),
		KafkaProgressTopic: os.Getenv("KAFKA_TOPIC_PROGRESS"),
		KafkaGroupID:       getEnv("KAFKA_CONSUMER_GROUP_ID", "moodcast-consumer-group"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASS"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		S3Bucket:       strings.TrimSpace(os.Getenv("S3_BUCKET")),
		S3Region:       strings.TrimSpace(os.Getenv("S3_REGION")),
		S3Profile:      strings.TrimSpace(os.Getenv("S3_PROFILE")),
		S3Prefix:       prefix,
		S3UsePathStyle: getEnvBool("S3_USE_PATH_STYLE", false),

		YouTubeServiceAccountFile: os.Getenv("YOUTUBE_SERVICE_ACCOUNT_FILE"),
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvList splits a comma separated variable, dropping empty entries.
func getEnvList(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
