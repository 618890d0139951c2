package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"voice-tasks/config"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := config.Parse([]byte("{}"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Audio.SampleRate != 16000 || cfg.Audio.FrameSize != 1024 {
		t.Errorf("audio format = %d/%d", cfg.Audio.SampleRate, cfg.Audio.FrameSize)
	}
	if cfg.Audio.SilenceThreshold != 0.005 {
		t.Errorf("silence threshold = %v", cfg.Audio.SilenceThreshold)
	}
	if cfg.Audio.SilenceDuration.Std() != time.Second {
		t.Errorf("silence duration = %v", cfg.Audio.SilenceDuration.Std())
	}
	if cfg.Audio.StopTimeout.Std() != 2*time.Second {
		t.Errorf("stop timeout = %v", cfg.Audio.StopTimeout.Std())
	}
	if cfg.Audio.FollowupDuration.Std() != 10*time.Second {
		t.Errorf("followup duration = %v", cfg.Audio.FollowupDuration.Std())
	}
	if cfg.Store.Driver != "sqlite" || cfg.Store.Path != "./data/tasks.sqlite" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("log = %+v", cfg.Log)
	}
}

func TestParse_ExpandsEnvAndDurations(t *testing.T) {
	t.Setenv("VT_TEST_ANTHROPIC_KEY", "sk-test")

	cfg, err := config.Parse([]byte(`
audio:
  silence_duration: 1500ms
  followup_duration: 5s
llm:
  provider: anthropic
  anthropic:
    api_key: ${VT_TEST_ANTHROPIC_KEY}
store:
  driver: badger
kafka:
  enabled: true
  brokers: [localhost:9092]
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.LLM.Anthropic.APIKey != "sk-test" {
		t.Errorf("api key = %q", cfg.LLM.Anthropic.APIKey)
	}
	if cfg.Audio.SilenceDuration.Std() != 1500*time.Millisecond {
		t.Errorf("silence duration = %v", cfg.Audio.SilenceDuration.Std())
	}
	if cfg.Audio.FollowupDuration.Std() != 5*time.Second {
		t.Errorf("followup duration = %v", cfg.Audio.FollowupDuration.Std())
	}
	if cfg.Store.Path != "./data/tasks.badger" {
		t.Errorf("badger path = %q", cfg.Store.Path)
	}
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) != 1 {
		t.Errorf("kafka = %+v", cfg.Kafka)
	}
}

func TestParse_RejectsBadDuration(t *testing.T) {
	if _, err := config.Parse([]byte("audio:\n  silence_duration: soon\n")); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("log:\n  level: debug\n"), 0644)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("level = %q", cfg.Log.Level)
	}

	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
