// Package google transcribes recordings with Google Cloud Speech-to-Text.
package google

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	"voice-tasks/internal/application"
	"voice-tasks/internal/capture"
)

type Config struct {
	CredentialsFile string
	LanguageCode    string
	SampleRate      int
}

func DefaultConfig() Config {
	return Config{
		LanguageCode: "en-US",
		SampleRate:   16000,
	}
}

// Recognizer is the part of the Speech client the adapter needs.
type Recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)
	Close() error
}

type clientRecognizer struct {
	client *speech.Client
}

func (c clientRecognizer) Recognize(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
	return c.client.Recognize(ctx, req)
}

func (c clientRecognizer) Close() error { return c.client.Close() }

type SpeechClient struct {
	recognizer Recognizer
	cfg        Config
}

// NewSpeechClient dials the Speech API. Without a credentials file the
// client falls back to application default credentials.
func NewSpeechClient(ctx context.Context, cfg Config) (*SpeechClient, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating speech client: %w", err)
	}
	return NewSpeechClientWithRecognizer(clientRecognizer{client: c}, cfg), nil
}

func NewSpeechClientWithRecognizer(r Recognizer, cfg Config) *SpeechClient {
	defaults := DefaultConfig()
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = defaults.LanguageCode
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = defaults.SampleRate
	}
	return &SpeechClient{recognizer: r, cfg: cfg}
}

func (c *SpeechClient) Name() string { return "google-speech" }

// Transcribe sends the PCM payload of wav in a single synchronous request.
// Results are joined in order; confidence is the mean of the top
// alternatives.
func (c *SpeechClient) Transcribe(ctx context.Context, wav []byte) (application.Transcription, error) {
	samples, rate, err := capture.DecodeWAV(wav)
	if err != nil {
		return application.Transcription{}, fmt.Errorf("decoding recording: %w", err)
	}

	resp, err := c.recognize(ctx, samples, rate)
	if err != nil {
		return application.Transcription{}, err
	}

	var (
		parts      []string
		confidence float64
	)
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		parts = append(parts, strings.TrimSpace(alts[0].GetTranscript()))
		confidence += float64(alts[0].GetConfidence())
	}
	if len(parts) == 0 {
		return application.Transcription{}, nil
	}

	return application.Transcription{
		Text:       strings.Join(parts, " "),
		Confidence: confidence / float64(len(parts)),
	}, nil
}

// Probe runs a recognition over a tenth of a second of silence.
func (c *SpeechClient) Probe(ctx context.Context) error {
	_, err := c.recognize(ctx, make([]int16, c.cfg.SampleRate/10), c.cfg.SampleRate)
	return err
}

func (c *SpeechClient) Close() error {
	return c.recognizer.Close()
}

func (c *SpeechClient) recognize(ctx context.Context, samples []int16, rate int) (*speechpb.RecognizeResponse, error) {
	if rate <= 0 {
		rate = c.cfg.SampleRate
	}

	content := make([]byte, len(samples)*2)
	for i, s := range samples {
		content[2*i] = byte(s)
		content[2*i+1] = byte(uint16(s) >> 8)
	}

	resp, err := c.recognizer.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            int32(rate),
			LanguageCode:               c.cfg.LanguageCode,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: content},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("recognize: %w", err)
	}
	return resp, nil
}
