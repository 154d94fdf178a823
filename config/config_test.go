package config

import (
	"reflect"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("MOODCAST_RETAIN_ARTIFACTS", "")
	t.Setenv("KAFKA_BOOTSTRAP_SERVERS", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q; want 8080", cfg.Port)
	}
	if !cfg.RetainArtifacts {
		t.Fatalf("RetainArtifacts should default to true")
	}
	if cfg.KafkaBrokers != nil {
		t.Fatalf("KafkaBrokers = %v; want nil", cfg.KafkaBrokers)
	}
	if cfg.DefaultDuration != DefaultVideoDuration {
		t.Fatalf("DefaultDuration = %v; want %v", cfg.DefaultDuration, DefaultVideoDuration)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MOODCAST_RETAIN_ARTIFACTS", "false")
	t.Setenv("KAFKA_BOOTSTRAP_SERVERS", "a:9092, b:9092,,")
	t.Setenv("S3_PREFIX", "/videos/")
	t.Setenv("MOODCAST_DEFAULT_DURATION", "12.5")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := Load()
	if cfg.RetainArtifacts {
		t.Fatalf("RetainArtifacts should be false")
	}
	if want := []string{"a:9092", "b:9092"}; !reflect.DeepEqual(cfg.KafkaBrokers, want) {
		t.Fatalf("KafkaBrokers = %v; want %v", cfg.KafkaBrokers, want)
	}
	if cfg.S3Prefix != "videos/" {
		t.Fatalf("S3Prefix = %q; want videos/", cfg.S3Prefix)
	}
	if cfg.DefaultDuration != 12.5 {
		t.Fatalf("DefaultDuration = %v; want 12.5", cfg.DefaultDuration)
	}
	if cfg.RedisDB != 0 {
		t.Fatalf("RedisDB = %d; want fallback 0", cfg.RedisDB)
	}
}
