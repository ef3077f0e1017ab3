// Package config loads process configuration from a YAML file with
// environment variable overrides, keeping secrets env-only.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the namespace prefix for all call engine environment variables.
const EnvPrefix = "CALLENGINE_"

// Config holds all application configuration. Secrets (API keys, bearer
// tokens) are loaded exclusively from environment variables and never
// appear in the config file, mirroring the teacher's config layer.
type Config struct {
	ListenAddr       string `yaml:"listen_addr"`
	PublicBaseURL    string `yaml:"public_base_url"`
	LLMModel         string `yaml:"llm_model"` // "provider/model", e.g. "openai/gpt-4o-mini"
	TTSVoiceID       string `yaml:"tts_voice_id"`
	TTSModel         string `yaml:"tts_model"`
	ASRLanguage      string `yaml:"asr_language"`
	OpeningCooldown  string `yaml:"opening_cooldown"`
	TurnTimeoutShort string `yaml:"turn_timeout_short"`
	TurnTimeoutMid   string `yaml:"turn_timeout_mid"`
	TurnTimeoutLong  string `yaml:"turn_timeout_long"`
	ShutdownTimeout  string `yaml:"shutdown_timeout"`

	// Secrets — env vars only, never serialized to YAML.
	DeepgramAPIKey      string `yaml:"-"`
	OpenAIAPIKey        string `yaml:"-"`
	AnthropicAPIKey     string `yaml:"-"`
	GeminiAPIKey        string `yaml:"-"`
	TTSAPIKey           string `yaml:"-"`
	TelephonyAPIKey     string `yaml:"-"`
	TelephonyAccountSID string `yaml:"-"`
	TelephonyFromNumber string `yaml:"-"`
	ControlSecret       string `yaml:"-"`
}

func defaults() Config {
	return Config{
		ListenAddr:       ":8080",
		LLMModel:         "openai/gpt-4o-mini",
		TTSVoiceID:       "default",
		TTSModel:         "low-latency",
		ASRLanguage:      "en",
		OpeningCooldown:  "600ms",
		TurnTimeoutShort: "300ms",
		TurnTimeoutMid:   "600ms",
		TurnTimeoutLong:  "1500ms",
		ShutdownTimeout:  "10s",
	}
}

// Load reads configuration from a YAML file (if it exists), applies
// environment variable overrides, loads secrets, and validates the result.
// It returns the config, any validation warnings, and an error if the file
// exists but cannot be read or parsed.
func Load(path string) (Config, []string, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, nil, fmt.Errorf("read config file: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg)
	loadSecrets(&cfg)

	warnings := validate(&cfg)
	return cfg, warnings, nil
}

// ParsedDuration parses a config duration field, falling back to fallback
// if the stored value is invalid or empty.
func ParsedDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func (c *Config) OpeningCooldownDuration() time.Duration {
	return ParsedDuration(c.OpeningCooldown, 600*time.Millisecond)
}

func (c *Config) TurnTimeoutShortDuration() time.Duration {
	return ParsedDuration(c.TurnTimeoutShort, 300*time.Millisecond)
}

func (c *Config) TurnTimeoutMidDuration() time.Duration {
	return ParsedDuration(c.TurnTimeoutMid, 600*time.Millisecond)
}

func (c *Config) TurnTimeoutLongDuration() time.Duration {
	return ParsedDuration(c.TurnTimeoutLong, 1500*time.Millisecond)
}

func (c *Config) ShutdownTimeoutDuration() time.Duration {
	return ParsedDuration(c.ShutdownTimeout, 10*time.Second)
}

func applyEnvOverrides(cfg *Config) {
	overrides := map[string]*string{
		"LISTEN_ADDR":        &cfg.ListenAddr,
		"PUBLIC_BASE_URL":    &cfg.PublicBaseURL,
		"LLM_MODEL":          &cfg.LLMModel,
		"TTS_VOICE_ID":       &cfg.TTSVoiceID,
		"TTS_MODEL":          &cfg.TTSModel,
		"ASR_LANGUAGE":       &cfg.ASRLanguage,
		"OPENING_COOLDOWN":   &cfg.OpeningCooldown,
		"TURN_TIMEOUT_SHORT": &cfg.TurnTimeoutShort,
		"TURN_TIMEOUT_MID":   &cfg.TurnTimeoutMid,
		"TURN_TIMEOUT_LONG":  &cfg.TurnTimeoutLong,
		"SHUTDOWN_TIMEOUT":   &cfg.ShutdownTimeout,
	}
	for suffix, field := range overrides {
		if v := os.Getenv(EnvPrefix + suffix); v != "" {
			*field = v
		}
	}
}

func loadSecrets(cfg *Config) {
	cfg.DeepgramAPIKey = os.Getenv(EnvPrefix + "DEEPGRAM_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv(EnvPrefix + "OPENAI_API_KEY")
	cfg.AnthropicAPIKey = os.Getenv(EnvPrefix + "ANTHROPIC_API_KEY")
	cfg.GeminiAPIKey = os.Getenv(EnvPrefix + "GEMINI_API_KEY")
	cfg.TTSAPIKey = os.Getenv(EnvPrefix + "TTS_API_KEY")
	cfg.TelephonyAPIKey = os.Getenv(EnvPrefix + "TELEPHONY_API_KEY")
	cfg.TelephonyAccountSID = os.Getenv(EnvPrefix + "TELEPHONY_ACCOUNT_SID")
	cfg.TelephonyFromNumber = os.Getenv(EnvPrefix + "TELEPHONY_FROM_NUMBER")
	cfg.ControlSecret = os.Getenv(EnvPrefix + "CONTROL_SECRET")
}

func validate(cfg *Config) []string {
	var warnings []string

	if cfg.DeepgramAPIKey == "" {
		warnings = append(warnings, "Deepgram API key not configured — live transcription is disabled. Set "+EnvPrefix+"DEEPGRAM_API_KEY.")
	}
	if cfg.TTSAPIKey == "" {
		warnings = append(warnings, "TTS API key not configured — speech synthesis is disabled. Set "+EnvPrefix+"TTS_API_KEY.")
	}
	if cfg.TelephonyAPIKey == "" {
		warnings = append(warnings, "Telephony API key not configured — outbound calling is disabled. Set "+EnvPrefix+"TELEPHONY_API_KEY.")
	}
	if cfg.ControlSecret == "" {
		warnings = append(warnings, "Control plane secret not configured — call initiation and session lookup requests will be rejected. Set "+EnvPrefix+"CONTROL_SECRET.")
	}
	if provider, _, err := splitModel(cfg.LLMModel); err != nil {
		warnings = append(warnings, fmt.Sprintf("Invalid llm_model %q: %v", cfg.LLMModel, err))
	} else {
		switch provider {
		case "openai":
			if cfg.OpenAIAPIKey == "" {
				warnings = append(warnings, "llm_model selects openai but "+EnvPrefix+"OPENAI_API_KEY is not set.")
			}
		case "anthropic":
			if cfg.AnthropicAPIKey == "" {
				warnings = append(warnings, "llm_model selects anthropic but "+EnvPrefix+"ANTHROPIC_API_KEY is not set.")
			}
		case "gemini":
			if cfg.GeminiAPIKey == "" {
				warnings = append(warnings, "llm_model selects gemini but "+EnvPrefix+"GEMINI_API_KEY is not set.")
			}
		}
	}

	return warnings
}

func splitModel(model string) (provider, name string, err error) {
	parts := strings.SplitN(model, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("expected provider/model_name")
	}
	return parts[0], parts[1], nil
}
