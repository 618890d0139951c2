package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"voice-tasks/internal/application"
	"voice-tasks/internal/infra"
)

// SpeechClient renders feedback lines with the speech endpoint and stores
// each cue as a WAV file in dir.
type SpeechClient struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	model      string
	voice      string
	dir        string
	seq        atomic.Int64
}

func NewSpeechClient(apiKey, voice, dir string) *SpeechClient {
	return NewSpeechClientWithURL(apiKey, voice, dir, defaultBaseURL)
}

func NewSpeechClientWithURL(apiKey, voice, dir, baseURL string) *SpeechClient {
	if voice == "" {
		voice = "alloy"
	}
	if dir == "" {
		dir = os.TempDir()
	}
	return &SpeechClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		model:      "tts-1",
		voice:      voice,
		dir:        dir,
	}
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

func (c *SpeechClient) Speak(ctx context.Context, text string) (application.SpeechResult, error) {
	bodyBytes, err := json.Marshal(speechRequest{
		Model:          c.model,
		Input:          text,
		Voice:          c.voice,
		ResponseFormat: "wav",
	})
	if err != nil {
		return application.SpeechResult{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/speech", bytes.NewReader(bodyBytes))
	if err != nil {
		return application.SpeechResult{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return application.SpeechResult{}, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return application.SpeechResult{}, &infra.StatusError{Service: "openai speech", Code: resp.StatusCode, Body: string(respBody)}
	}

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return application.SpeechResult{}, fmt.Errorf("creating cue dir: %w", err)
	}
	path := filepath.Join(c.dir, fmt.Sprintf("cue_%d_%d.wav", time.Now().Unix(), c.seq.Add(1)))

	f, err := os.Create(path)
	if err != nil {
		return application.SpeechResult{}, fmt.Errorf("creating cue file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return application.SpeechResult{}, fmt.Errorf("writing cue file: %w", err)
	}

	return application.SpeechResult{Success: true, ArtifactPath: path}, nil
}

func (c *SpeechClient) Probe(ctx context.Context) error {
	return probe(ctx, c.httpClient, c.baseURL, c.apiKey)
}
