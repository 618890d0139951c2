package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"voice-tasks/config"
	"voice-tasks/internal/application"
	"voice-tasks/internal/capture"
	"voice-tasks/internal/domain"
	"voice-tasks/internal/infra/audio"
	"voice-tasks/internal/infra/events"
	"voice-tasks/internal/infra/httpapi"
	"voice-tasks/internal/infra/metrics"
	"voice-tasks/internal/infra/pushover"
	"voice-tasks/internal/infra/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("voice tasks error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	m := metrics.New()

	taskStore, err := store.Open(ctx, store.Config{Driver: cfg.Store.Driver, Path: cfg.Store.Path})
	if err != nil {
		return err
	}
	defer taskStore.Close()

	stt := selectSTT(ctx, cfg, logger)
	extractor, validator := selectLanguageModel(ctx, cfg, logger)
	speaker := selectSpeaker(ctx, cfg, logger)

	recorder := capture.NewRecorder(capture.Config{
		SampleRate:       cfg.Audio.SampleRate,
		FrameSize:        cfg.Audio.FrameSize,
		SilenceThreshold: cfg.Audio.SilenceThreshold,
		SilenceDuration:  cfg.Audio.SilenceDuration.Std(),
		StopTimeout:      cfg.Audio.StopTimeout.Std(),
		TempDir:          cfg.Audio.TempDir,
	}, createAudioSource(cfg.Audio, logger), logger)

	var notifier application.Notifier
	if cfg.Pushover.Enabled {
		notifier = pushover.NewClient(cfg.Pushover.Token, cfg.Pushover.UserKey)
	} else {
		notifier = &application.NoopNotifier{}
	}

	publisher := events.New(events.Config{
		Enabled:  cfg.Kafka.Enabled,
		Brokers:  cfg.Kafka.Brokers,
		Topic:    cfg.Kafka.Topic,
		ClientID: cfg.Kafka.ClientID,
	}, m, logger)
	defer publisher.Close()

	controller := application.NewController(
		recorder,
		application.Stages{
			Transcription: application.NewTranscriptionStage(stt, logger),
			Extraction:    application.NewExtractionStage(extractor, logger),
			Validation:    application.NewValidationStage(validator, logger),
			Persistence:   application.NewPersistenceStage(taskStore, logger),
		},
		application.NewFeedback(speaker, createPlayer(cfg.Audio, logger), logger),
		notifier,
		publisher,
		application.ControllerConfig{FollowupDuration: cfg.Audio.FollowupDuration.Std()},
		logger,
	)
	controller.AddObserver(m)

	hub := httpapi.NewHub(logger)
	controller.AddObserver(hub)

	if cfg.HTTP.Enabled {
		server := httpapi.NewServer(httpapi.Config{
			Addr:       cfg.HTTP.Addr,
			AuthToken:  cfg.HTTP.AuthToken,
			RateLimit:  cfg.HTTP.RateLimit,
			RateWindow: cfg.HTTP.RateWindow.Std(),
		}, controller, application.NewTaskService(taskStore, logger), hub, logger).
			WithMetrics(m.Handler(), m.RecordRejectedTrigger)
		if err := server.Start(ctx); err != nil {
			return err
		}
		defer server.Stop()
	}

	logger.Info("starting voice task manager",
		"audio_source", cfg.Audio.Source,
		"stt", stt.Name(),
		"extractor", extractor.Name(),
		"store", cfg.Store.Driver,
		"http", cfg.HTTP.Enabled,
	)

	controller.Greet(ctx)

	if cfg.Audio.StdinTrigger {
		go readTriggers(ctx, os.Stdin, controller, m, logger)
	}

	<-ctx.Done()

	if err := controller.Close(); err != nil {
		logger.Warn("closing controller", "error", err)
	}
	return nil
}

// readTriggers starts an interaction on every Enter. Enter while a
// recording is open ends that recording instead.
func readTriggers(ctx context.Context, r io.Reader, controller *application.Controller, m *metrics.Metrics, logger *slog.Logger) {
	logger.Info("press Enter to add a task")
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		err := controller.OnTrigger()
		if !errors.Is(err, application.ErrBusy) {
			if err != nil {
				logger.Warn("trigger failed", "error", err)
			}
			continue
		}

		switch controller.State() {
		case domain.StateAwaitingSpeech, domain.StateAwaitingFollowup:
			if err := controller.StopRecording(); err != nil {
				logger.Warn("stopping recording", "error", err)
			}
		default:
			m.RecordRejectedTrigger()
		}
	}
}

func createAudioSource(cfg config.AudioConfig, logger *slog.Logger) capture.FrameSource {
	switch cfg.Source {
	case "file":
		source := audio.NewFileSource(cfg.FilePath)
		source.Pace = true
		return source
	case "microphone":
		return audio.NewMicrophoneSource(cfg.SampleRate, cfg.FrameSize, logger)
	default:
		logger.Warn("unknown audio source, using microphone", "source", cfg.Source)
		return audio.NewMicrophoneSource(cfg.SampleRate, cfg.FrameSize, logger)
	}
}

func createPlayer(cfg config.AudioConfig, logger *slog.Logger) application.Player {
	if cfg.Playback == "portaudio" {
		return audio.NewPlayer(logger)
	}
	return audio.NewLogPlayer(logger)
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
