package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"voice-tasks/config"
	"voice-tasks/internal/infra/llm"
	"voice-tasks/internal/infra/stub"
)

func testConfig(t *testing.T, yaml string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("parsing config: %v", err)
	}
	return cfg
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSelectSTT(t *testing.T) {
	ctx := context.Background()

	if _, ok := selectSTT(ctx, testConfig(t, "stt:\n  provider: stub\n"), discard()).(*stub.STT); !ok {
		t.Error("stub provider did not give the stub")
	}
	// no api key fails the probe without touching the network
	if _, ok := selectSTT(ctx, testConfig(t, "stt:\n  provider: whisper\n"), discard()).(*stub.STT); !ok {
		t.Error("whisper without a key should fall back to the stub")
	}
	if _, ok := selectSTT(ctx, testConfig(t, "stt:\n  provider: braille\n"), discard()).(*stub.STT); !ok {
		t.Error("unknown provider should fall back to the stub")
	}
}

func TestSelectLanguageModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]string{{"name": "llama3.2:latest"}},
		})
	}))
	defer srv.Close()
	ctx := context.Background()

	extractor, validator := selectLanguageModel(ctx, testConfig(t, "llm:\n  provider: ollama\n  ollama:\n    url: "+srv.URL+"\n"), discard())
	if _, ok := extractor.(*llm.Extractor); !ok {
		t.Errorf("reachable ollama: extractor is %T", extractor)
	}
	if _, ok := validator.(*llm.Validator); !ok {
		t.Errorf("reachable ollama: validator is %T", validator)
	}

	extractor, validator = selectLanguageModel(ctx, testConfig(t, "llm:\n  provider: ollama\n  ollama:\n    url: http://127.0.0.1:1\n    timeout: 1s\n"), discard())
	if _, ok := extractor.(*stub.Extractor); !ok {
		t.Errorf("unreachable ollama: extractor is %T", extractor)
	}
	if _, ok := validator.(stub.Validator); !ok {
		t.Errorf("unreachable ollama: validator is %T", validator)
	}

	extractor, _ = selectLanguageModel(ctx, testConfig(t, "llm:\n  provider: anthropic\n"), discard())
	if _, ok := extractor.(*stub.Extractor); !ok {
		t.Errorf("anthropic without a key: extractor is %T", extractor)
	}
}

func TestSelectSpeaker(t *testing.T) {
	ctx := context.Background()

	if s := selectSpeaker(ctx, testConfig(t, "tts:\n  provider: none\n"), discard()); s != nil {
		t.Errorf("none provider gave %T", s)
	}
	if _, ok := selectSpeaker(ctx, testConfig(t, "tts:\n  provider: openai\n"), discard()).(*stub.Speaker); !ok {
		t.Error("openai without a key should fall back to the stub")
	}
}
