package main

import (
	"context"
	"log/slog"
	"time"

	"voice-tasks/config"
	"voice-tasks/internal/application"
	"voice-tasks/internal/infra/anthropic"
	"voice-tasks/internal/infra/gemini"
	"voice-tasks/internal/infra/google"
	"voice-tasks/internal/infra/llm"
	"voice-tasks/internal/infra/ollama"
	"voice-tasks/internal/infra/openai"
	"voice-tasks/internal/infra/stub"
)

const probeTimeout = 5 * time.Second

// probeOrStub returns real when its backend answers the probe and fallback
// otherwise. The choice is made once; nothing switches back later.
func probeOrStub[T any](ctx context.Context, logger *slog.Logger, kind, name string, real T, p application.Prober, fallback T) T {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := p.Probe(ctx); err != nil {
		logger.Warn("backend unavailable, using stub", "kind", kind, "backend", name, "error", err)
		return fallback
	}
	logger.Info("backend available", "kind", kind, "backend", name)
	return real
}

func selectSTT(ctx context.Context, cfg *config.Config, logger *slog.Logger) application.SpeechToText {
	fallback := stub.NewSTT(cfg.STT.StubTranscripts...)

	switch cfg.STT.Provider {
	case "whisper":
		c := openai.NewWhisperClient(cfg.OpenAI.APIKey, cfg.OpenAI.Language)
		return probeOrStub[application.SpeechToText](ctx, logger, "stt", c.Name(), c, c, fallback)
	case "google":
		c, err := google.NewSpeechClient(ctx, google.Config{
			CredentialsFile: cfg.STT.GoogleCredentials,
			LanguageCode:    cfg.STT.LanguageCode,
			SampleRate:      cfg.Audio.SampleRate,
		})
		if err != nil {
			logger.Warn("backend unavailable, using stub", "kind", "stt", "backend", "google-speech", "error", err)
			return fallback
		}
		return probeOrStub[application.SpeechToText](ctx, logger, "stt", c.Name(), c, c, fallback)
	case "stub":
		return fallback
	default:
		logger.Warn("unknown stt provider, using stub", "provider", cfg.STT.Provider)
		return fallback
	}
}

// completer is a language model backend that can be probed.
type completer interface {
	llm.Completer
	application.Prober
}

func selectLanguageModel(ctx context.Context, cfg *config.Config, logger *slog.Logger) (application.TaskExtractor, application.TaskValidator) {
	stubExtractor := stub.NewExtractor(cfg.LLM.StubYear)
	stubValidator := stub.Validator{}

	var c completer
	switch cfg.LLM.Provider {
	case "anthropic":
		c = anthropic.NewClaudeClient(cfg.LLM.Anthropic.APIKey, cfg.LLM.Anthropic.Model)
	case "gemini":
		c = gemini.NewClient(cfg.LLM.Gemini.APIKey, cfg.LLM.Gemini.Model)
	case "ollama":
		c = ollama.NewClient(cfg.LLM.Ollama.URL, cfg.LLM.Ollama.Model, cfg.LLM.Ollama.Timeout.Std())
	case "openai":
		c = openai.NewChatClient(cfg.OpenAI.APIKey, cfg.OpenAI.ChatModel)
	case "stub":
		return stubExtractor, stubValidator
	default:
		logger.Warn("unknown llm provider, using stub", "provider", cfg.LLM.Provider)
		return stubExtractor, stubValidator
	}

	extractor := probeOrStub[application.TaskExtractor](ctx, logger, "llm", c.Name(), llm.NewExtractor(c), c, stubExtractor)
	if _, isStub := extractor.(*stub.Extractor); isStub {
		return extractor, stubValidator
	}
	return extractor, llm.NewValidator(c)
}

func selectSpeaker(ctx context.Context, cfg *config.Config, logger *slog.Logger) application.Speaker {
	fallback := stub.NewSpeaker(cfg.TTS.Dir)

	switch cfg.TTS.Provider {
	case "openai":
		c := openai.NewSpeechClient(cfg.OpenAI.APIKey, cfg.TTS.Voice, cfg.TTS.Dir)
		return probeOrStub[application.Speaker](ctx, logger, "tts", "openai-speech", c, c, fallback)
	case "stub":
		return fallback
	case "none":
		return nil
	default:
		logger.Warn("unknown tts provider, using stub", "provider", cfg.TTS.Provider)
		return fallback
	}
}
