package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Audio    AudioConfig    `yaml:"audio"`
	STT      STTConfig      `yaml:"stt"`
	LLM      LLMConfig      `yaml:"llm"`
	TTS      TTSConfig      `yaml:"tts"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Store    StoreConfig    `yaml:"store"`
	HTTP     HTTPConfig     `yaml:"http"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Pushover PushoverConfig `yaml:"pushover"`
	Log      LogConfig      `yaml:"log"`
}

// Duration reads Go duration strings such as "1s" or "250ms".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("line %d: duration must be a string: %w", value.Line, err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type AudioConfig struct {
	// Source is microphone or file.
	Source           string   `yaml:"source"`
	FilePath         string   `yaml:"file_path"`
	SampleRate       int      `yaml:"sample_rate"`
	FrameSize        int      `yaml:"frame_size"`
	SilenceThreshold float64  `yaml:"silence_threshold"`
	SilenceDuration  Duration `yaml:"silence_duration"`
	StopTimeout      Duration `yaml:"stop_timeout"`
	FollowupDuration Duration `yaml:"followup_duration"`
	TempDir          string   `yaml:"temp_dir"`
	// Playback is portaudio or log.
	Playback     string `yaml:"playback"`
	StdinTrigger bool   `yaml:"stdin_trigger"`
}

type STTConfig struct {
	// Provider is whisper, google or stub.
	Provider          string   `yaml:"provider"`
	GoogleCredentials string   `yaml:"google_credentials"`
	LanguageCode      string   `yaml:"language_code"`
	StubTranscripts   []string `yaml:"stub_transcripts"`
}

type LLMConfig struct {
	// Provider is anthropic, gemini, ollama, openai or stub.
	Provider  string          `yaml:"provider"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Ollama    OllamaConfig    `yaml:"ollama"`
	StubYear  int             `yaml:"stub_year"`
}

type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type OllamaConfig struct {
	URL     string   `yaml:"url"`
	Model   string   `yaml:"model"`
	Timeout Duration `yaml:"timeout"`
}

type TTSConfig struct {
	// Provider is openai, stub or none.
	Provider string `yaml:"provider"`
	Voice    string `yaml:"voice"`
	Dir      string `yaml:"dir"`
}

type OpenAIConfig struct {
	APIKey    string `yaml:"api_key"`
	Language  string `yaml:"language"`
	ChatModel string `yaml:"chat_model"`
}

type StoreConfig struct {
	// Driver is sqlite or badger.
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

type HTTPConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Addr       string   `yaml:"addr"`
	AuthToken  string   `yaml:"auth_token"`
	RateLimit  int      `yaml:"rate_limit"`
	RateWindow Duration `yaml:"rate_window"`
}

type KafkaConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Brokers  []string `yaml:"brokers"`
	Topic    string   `yaml:"topic"`
	ClientID string   `yaml:"client_id"`
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
	Enabled bool   `yaml:"enabled"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the YAML file at path after loading a .env file from the
// working directory, if there is one. ${VAR} references are expanded from
// the environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Audio.Source == "" {
		c.Audio.Source = "microphone"
	}
	if c.Audio.FilePath == "" {
		c.Audio.FilePath = "./audio"
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Audio.FrameSize == 0 {
		c.Audio.FrameSize = 1024
	}
	if c.Audio.SilenceThreshold == 0 {
		c.Audio.SilenceThreshold = 0.005
	}
	if c.Audio.SilenceDuration == 0 {
		c.Audio.SilenceDuration = Duration(time.Second)
	}
	if c.Audio.StopTimeout == 0 {
		c.Audio.StopTimeout = Duration(2 * time.Second)
	}
	if c.Audio.FollowupDuration == 0 {
		c.Audio.FollowupDuration = Duration(10 * time.Second)
	}
	if c.Audio.TempDir == "" {
		c.Audio.TempDir = os.TempDir()
	}
	if c.Audio.Playback == "" {
		c.Audio.Playback = "log"
	}
	if c.STT.Provider == "" {
		c.STT.Provider = "whisper"
	}
	if c.STT.LanguageCode == "" {
		c.STT.LanguageCode = "en-US"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "ollama"
	}
	if c.LLM.Anthropic.Model == "" {
		c.LLM.Anthropic.Model = "claude-sonnet-4-20250514"
	}
	if c.LLM.Gemini.Model == "" {
		c.LLM.Gemini.Model = "gemini-2.0-flash"
	}
	if c.LLM.Ollama.URL == "" {
		c.LLM.Ollama.URL = "http://localhost:11434"
	}
	if c.LLM.Ollama.Model == "" {
		c.LLM.Ollama.Model = "llama3.2"
	}
	if c.LLM.Ollama.Timeout == 0 {
		c.LLM.Ollama.Timeout = Duration(30 * time.Second)
	}
	if c.TTS.Provider == "" {
		c.TTS.Provider = "openai"
	}
	if c.TTS.Dir == "" {
		c.TTS.Dir = c.Audio.TempDir
	}
	if c.OpenAI.Language == "" {
		c.OpenAI.Language = "en"
	}
	if c.OpenAI.ChatModel == "" {
		c.OpenAI.ChatModel = "gpt-4o-mini"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "sqlite"
	}
	if c.Store.Path == "" {
		if c.Store.Driver == "badger" {
			c.Store.Path = "./data/tasks.badger"
		} else {
			c.Store.Path = "./data/tasks.sqlite"
		}
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.RateLimit == 0 {
		c.HTTP.RateLimit = 30
	}
	if c.HTTP.RateWindow == 0 {
		c.HTTP.RateWindow = Duration(time.Minute)
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "voice-tasks.interactions"
	}
	if c.Kafka.ClientID == "" {
		c.Kafka.ClientID = "voice-tasks"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}
