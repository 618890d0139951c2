package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"voice-tasks/internal/capture"
)

// FileSource replays WAV recordings as if they came from a microphone. When
// path is a directory every session consumes the next unprocessed .wav file
// in name order and renames it to .processed; when it is a file the same
// recording is replayed each session. Once a recording is exhausted the
// source keeps delivering silence, so the silence gate ends the session.
type FileSource struct {
	path string
	// Pace sleeps for one frame of audio per Read, like a live device.
	Pace bool

	mu         sync.Mutex
	samples    []int16
	sampleRate int
	pos        int
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (f *FileSource) Name() string {
	return "file"
}

func (f *FileSource) Start(_ context.Context) error {
	info, err := os.Stat(f.path)
	if err != nil {
		return fmt.Errorf("opening audio source: %w", err)
	}

	file := f.path
	if info.IsDir() {
		file, err = f.nextInDir()
		if err != nil {
			return err
		}
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("reading file %s: %w", file, err)
	}
	samples, rate, err := capture.DecodeWAV(data)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", file, err)
	}

	if info.IsDir() {
		os.Rename(file, file+".processed")
	}

	f.mu.Lock()
	f.samples = samples
	f.sampleRate = rate
	f.pos = 0
	f.mu.Unlock()
	return nil
}

func (f *FileSource) nextInDir() (string, error) {
	entries, err := os.ReadDir(f.path)
	if err != nil {
		return "", fmt.Errorf("reading dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".wav" {
			continue
		}
		names = append(names, entry.Name())
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no recording waiting in %s", f.path)
	}
	sort.Strings(names)
	return filepath.Join(f.path, names[0]), nil
}

func (f *FileSource) Read(frame []int16) (int, error) {
	f.mu.Lock()
	n := copy(frame, f.samples[f.pos:])
	f.pos += n
	rate := f.sampleRate
	f.mu.Unlock()

	for i := n; i < len(frame); i++ {
		frame[i] = 0
	}

	if f.Pace && rate > 0 {
		time.Sleep(time.Duration(len(frame)) * time.Second / time.Duration(rate))
	}
	return len(frame), nil
}

func (f *FileSource) Stop() error {
	return nil
}
