package audio_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"voice-tasks/internal/capture"
	"voice-tasks/internal/infra/audio"
)

func writeWAV(t *testing.T, path string, samples []int16) {
	t.Helper()
	if err := os.WriteFile(path, capture.EncodeWAV(samples, 16000), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestFileSource_ReplaysThenSilence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "take.wav")
	writeWAV(t, path, []int16{5, 6, 7, 8, 9})

	source := audio.NewFileSource(path)
	if err := source.Start(context.Background()); err != nil {
		t.Fatalf("starting source: %v", err)
	}

	frame := make([]int16, 3)
	want := [][]int16{{5, 6, 7}, {8, 9, 0}, {0, 0, 0}}
	for i, w := range want {
		n, err := source.Read(frame)
		if err != nil || n != 3 {
			t.Fatalf("read %d: n=%d err=%v", i, n, err)
		}
		for j := range w {
			if frame[j] != w[j] {
				t.Errorf("read %d: got %v, want %v", i, frame, w)
				break
			}
		}
	}

	// a file path is replayed from the start on every session
	if err := source.Start(context.Background()); err != nil {
		t.Fatalf("restarting source: %v", err)
	}
	source.Read(frame)
	if frame[0] != 5 {
		t.Errorf("after restart got %v", frame)
	}
}

func TestFileSource_LoadFromDirectory(t *testing.T) {
	dir := t.TempDir()
	writeWAV(t, filepath.Join(dir, "command1.wav"), []int16{1})
	writeWAV(t, filepath.Join(dir, "command2.wav"), []int16{2})
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644)

	source := audio.NewFileSource(dir)
	frame := make([]int16, 1)

	for _, want := range []int16{1, 2} {
		if err := source.Start(context.Background()); err != nil {
			t.Fatalf("starting source: %v", err)
		}
		source.Read(frame)
		if frame[0] != want {
			t.Errorf("got %d, want %d", frame[0], want)
		}
	}

	if _, err := os.Stat(filepath.Join(dir, "command1.wav.processed")); err != nil {
		t.Errorf("first recording not marked processed: %v", err)
	}
	if err := source.Start(context.Background()); err == nil {
		t.Error("expected error once the directory is drained")
	}
}

func TestFileSource_RejectsNonWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	os.WriteFile(path, []byte("not audio"), 0644)

	if err := audio.NewFileSource(path).Start(context.Background()); err == nil {
		t.Error("expected decode error")
	}
	if err := audio.NewFileSource(filepath.Join(t.TempDir(), "missing")).Start(context.Background()); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestLogPlayer(t *testing.T) {
	p := audio.NewLogPlayer(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := p.Play(context.Background(), "/tmp/cue.wav"); err != nil {
		t.Errorf("Play: %v", err)
	}
}
