package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"voice-tasks/internal/application"
	"voice-tasks/internal/infra"
)

const defaultBaseURL = "https://api.openai.com/v1"

type WhisperClient struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	model      string
	language   string
}

func NewWhisperClient(apiKey, language string) *WhisperClient {
	return NewWhisperClientWithURL(apiKey, language, defaultBaseURL)
}

func NewWhisperClientWithURL(apiKey, language, baseURL string) *WhisperClient {
	return &WhisperClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		model:      "whisper-1",
		language:   language,
	}
}

type transcriptionResponse struct {
	Text     string `json:"text"`
	Segments []struct {
		AvgLogprob   float64 `json:"avg_logprob"`
		NoSpeechProb float64 `json:"no_speech_prob"`
	} `json:"segments"`
}

func (c *WhisperClient) Name() string { return "whisper" }

// Transcribe uploads the WAV once. Confidence is derived from the segments'
// no-speech probability when the API returns them.
func (c *WhisperClient) Transcribe(ctx context.Context, wav []byte) (application.Transcription, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return application.Transcription{}, fmt.Errorf("creating form file: %w", err)
	}
	if _, err = part.Write(wav); err != nil {
		return application.Transcription{}, fmt.Errorf("writing audio: %w", err)
	}
	if err = writer.WriteField("model", c.model); err != nil {
		return application.Transcription{}, fmt.Errorf("writing model field: %w", err)
	}
	if err = writer.WriteField("response_format", "verbose_json"); err != nil {
		return application.Transcription{}, fmt.Errorf("writing format field: %w", err)
	}
	if c.language != "" {
		if err = writer.WriteField("language", c.language); err != nil {
			return application.Transcription{}, fmt.Errorf("writing language field: %w", err)
		}
	}
	if err = writer.Close(); err != nil {
		return application.Transcription{}, fmt.Errorf("closing writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", body)
	if err != nil {
		return application.Transcription{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return application.Transcription{}, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return application.Transcription{}, &infra.StatusError{Service: "whisper", Code: resp.StatusCode, Body: string(respBody)}
	}

	var result transcriptionResponse
	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return application.Transcription{}, fmt.Errorf("decoding response: %w", err)
	}

	confidence := 1.0
	if n := len(result.Segments); n > 0 {
		var speech float64
		for _, s := range result.Segments {
			speech += 1 - s.NoSpeechProb
		}
		confidence = speech / float64(n)
	}

	return application.Transcription{Text: result.Text, Confidence: confidence}, nil
}

// Probe checks that the key is accepted.
func (c *WhisperClient) Probe(ctx context.Context) error {
	return probe(ctx, c.httpClient, c.baseURL, c.apiKey)
}

func probe(ctx context.Context, client *http.Client, baseURL, apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("openai api key not set")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("reaching openai: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &infra.StatusError{Service: "openai", Code: resp.StatusCode, Body: string(respBody)}
	}
	return nil
}
