package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

const (
	PolicyPreferContent    = "prefer_content"
	PolicyPreferTranscript = "prefer_transcript"
)

type Service struct {
	URL string `yaml:"url"`
}
type Services struct {
	Chat Service `yaml:"chat"`
	MOS  Service `yaml:"mos"`
}
type Models struct {
	Text  string `yaml:"text"`
	Audio string `yaml:"audio"`
}

// Speaker is the fixed voice and optional persona of one dialogue role.
type Speaker struct {
	Voice   string `yaml:"voice"`
	Persona string `yaml:"persona"`
}
type Dialogue struct {
	Turns            int       `yaml:"turns"`
	MaxWords         int       `yaml:"max_words"`
	TranscriptPolicy string    `yaml:"transcript_policy"`
	AudioFormat      string    `yaml:"audio_format"`
	Speakers         []Speaker `yaml:"speakers"`
}
type TTS struct {
	LanguageCode string `yaml:"language_code"`
	SampleRate   int    `yaml:"sample_rate"`
}
type Serve struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}
type Root struct {
	Pipeline struct {
		Name      string `yaml:"name"`
		Version   string `yaml:"version"`
		LogLvl    string `yaml:"log_level"`
		LogFormat string `yaml:"log_format"`
	} `yaml:"pipeline"`
	Provider string   `yaml:"provider"`
	Models   Models   `yaml:"models"`
	Dialogue Dialogue `yaml:"dialogue"`
	TTS      TTS      `yaml:"tts"`
	Services Services `yaml:"services"`
	Paths    struct {
		Outputs     string `yaml:"outputs"`
		GroundTruth string `yaml:"ground_truth"`
	} `yaml:"paths"`
	Serve Serve `yaml:"serve"`

	// Credentials never come from the file.
	OpenAIKey string `yaml:"-"`
	GeminiKey string `yaml:"-"`
}

// Default mirrors the settings the arena was first run with: six turns,
// alloy against echo, gpt-4o for text and its audio preview for speech.
func Default() *Root {
	var c Root
	c.Pipeline.Name = "dialogue-arena"
	c.Pipeline.Version = "0.1.0"
	c.Pipeline.LogLvl = "info"
	c.Pipeline.LogFormat = "text"
	c.Provider = ProviderOpenAI
	c.Models = Models{Text: "gpt-4o", Audio: "gpt-4o-audio-preview"}
	c.Dialogue = Dialogue{
		Turns:            6,
		MaxWords:         30,
		TranscriptPolicy: PolicyPreferContent,
		AudioFormat:      "wav",
		Speakers:         []Speaker{{Voice: "alloy"}, {Voice: "echo"}},
	}
	c.TTS = TTS{LanguageCode: "en-US", SampleRate: 24000}
	c.Services.Chat.URL = "https://api.openai.com/v1"
	c.Services.MOS.URL = "http://localhost:8005"
	c.Paths.Outputs = "."
	c.Paths.GroundTruth = "ground_truth"
	c.Serve.Addr = ":8000"
	c.Serve.CORSOrigins = []string{"http://localhost:3000"}
	return &c
}

// Load reads the YAML file at path on top of Default. With an empty path it
// tries config/<CONFIG_ENV>/config.yaml and ./config.yaml, and falls back to
// the defaults when neither exists.
func Load(path string) (*Root, error) {
	cfg := Default()

	guess := []string{path}
	if path == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		guess = []string{
			filepath.Join("config", env, "config.yaml"),
			"config.yaml",
		}
	}
	for _, p := range guess {
		f, err := os.Open(p)
		if errors.Is(err, fs.ErrNotExist) && path == "" {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		err = yaml.NewDecoder(f).Decode(cfg)
		f.Close()
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode config %s: %w", p, err)
		}
		break
	}

	cfg.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	cfg.GeminiKey = os.Getenv("GEMINI_API_KEY")
	return cfg, nil
}

// Validate checks the settings a run cannot recover from.
func (c *Root) Validate() error {
	if c.Dialogue.Turns < 1 {
		return fmt.Errorf("dialogue.turns must be at least 1, got %d", c.Dialogue.Turns)
	}
	if len(c.Dialogue.Speakers) != 2 {
		return fmt.Errorf("dialogue.speakers must list exactly 2 speakers, got %d", len(c.Dialogue.Speakers))
	}
	for i, s := range c.Dialogue.Speakers {
		if s.Voice == "" {
			return fmt.Errorf("dialogue.speakers[%d].voice is empty", i)
		}
	}
	switch c.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("provider must be one of openai, gemini; got %q", c.Provider)
	}
	switch c.Dialogue.TranscriptPolicy {
	case PolicyPreferContent, PolicyPreferTranscript:
	default:
		return fmt.Errorf("dialogue.transcript_policy must be one of %s, %s; got %q",
			PolicyPreferContent, PolicyPreferTranscript, c.Dialogue.TranscriptPolicy)
	}
	if c.Dialogue.AudioFormat != "wav" {
		return fmt.Errorf("dialogue.audio_format must be wav, got %q", c.Dialogue.AudioFormat)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Pipeline.LogLvl)] {
		return fmt.Errorf("log_level must be one of debug, info, warn, error; got %q", c.Pipeline.LogLvl)
	}
	c.Pipeline.LogLvl = strings.ToLower(c.Pipeline.LogLvl)

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Pipeline.LogFormat)] {
		return fmt.Errorf("log_format must be one of text, json; got %q", c.Pipeline.LogFormat)
	}
	c.Pipeline.LogFormat = strings.ToLower(c.Pipeline.LogFormat)
	return nil
}

// APIKey returns the credential of the configured provider.
func (c *Root) APIKey() string {
	if c.Provider == ProviderGemini {
		return c.GeminiKey
	}
	return c.OpenAIKey
}
