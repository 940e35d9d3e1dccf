package server

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the quipd server configuration. Non-secret settings come
// from an optional TOML file; secrets are only ever read from the
// environment.
type Config struct {
	// Address to listen on (e.g., ":8080")
	ListenAddr string `toml:"listen_addr"`

	// StaticRoot is the directory generated audio is written under
	// (in <static_root>/resp) and served back from.
	StaticRoot string `toml:"static_root"`

	// RetentionDays is how long generated audio is kept before the
	// janitor deletes it.
	RetentionDays int `toml:"retention_days"`

	// UpstreamTimeout bounds every upstream SaaS call. A hung remote
	// call must never pin a request forever.
	UpstreamTimeout duration `toml:"upstream_timeout"`

	// DBPath is the path to the SQLite conversation log. Empty means
	// conversations served through this instance are recorded in
	// memory only.
	DBPath string `toml:"db_path"`

	Chat   ChatConfig   `toml:"chat"`
	Speech SpeechConfig `toml:"speech"`
	Video  VideoConfig  `toml:"video"`

	// Secrets, environment-only.
	LocalKey  string `toml:"-"` // shared secret the UI must present
	OpenAIKey string `toml:"-"`
	ElevenKey string `toml:"-"`
	TalksKey  string `toml:"-"`
}

// ChatConfig configures the chat-completion upstream.
type ChatConfig struct {
	// URL of an OpenAI-compatible API (e.g., "https://api.openai.com")
	URL string `toml:"url"`

	Model string `toml:"model"`

	// Temperature 0 keeps the persona deterministic, as the source app did.
	Temperature float64 `toml:"temperature"`

	// SystemPrompt defines the assistant's personality.
	SystemPrompt string `toml:"system_prompt"`
}

// SpeechConfig configures the text-to-speech upstream.
type SpeechConfig struct {
	URL     string `toml:"url"`
	VoiceID string `toml:"voice_id"`
}

// VideoConfig configures the talking-avatar upstream.
type VideoConfig struct {
	URL string `toml:"url"`

	// SourceURL is the avatar image the upstream animates.
	SourceURL string `toml:"source_url"`

	// PollInterval is how often to check a pending video for completion.
	PollInterval duration `toml:"poll_interval"`
}

// defaultSystemPrompt is the persona the source app shipped with.
const defaultSystemPrompt = "You are funny personal assistant. You like comedy and philosophy. " +
	"All your responses should be funny and philosophical."

// DefaultConfig returns the configuration used when no file overrides it.
func DefaultConfig() Config {
	return Config{
		ListenAddr:      ":8080",
		StaticRoot:      "public",
		RetentionDays:   2,
		UpstreamTimeout: duration{2 * time.Minute},
		Chat: ChatConfig{
			URL:          "https://api.openai.com",
			Model:        "gpt-3.5-turbo",
			Temperature:  0,
			SystemPrompt: defaultSystemPrompt,
		},
		Speech: SpeechConfig{
			URL:     "https://api.elevenlabs.io",
			VoiceID: "21m00Tcm4TlvDq8ikWAM",
		},
		Video: VideoConfig{
			URL:          "https://api.d-id.com",
			PollInterval: duration{2 * time.Second},
		},
	}
}

// LoadConfig builds the configuration from defaults, an optional TOML
// file, and secret environment variables. Call godotenv.Load first if
// a .env file should feed the environment.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	if path != "" {
		if _, err := toml.DecodeFile(path, &config); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	config.LocalKey = os.Getenv("QUIP_LOCAL_KEY")
	config.OpenAIKey = os.Getenv("QUIP_OPENAI_KEY")
	config.ElevenKey = os.Getenv("QUIP_ELEVEN_KEY")
	config.TalksKey = os.Getenv("QUIP_TALKS_KEY")

	if config.LocalKey == "" {
		return Config{}, fmt.Errorf("QUIP_LOCAL_KEY must be set")
	}

	return config, nil
}

// duration is a time.Duration that unmarshals from TOML strings like "90s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}
