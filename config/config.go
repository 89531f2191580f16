package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
	TextGen  TextGenConfig  `mapstructure:"text_gen"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Ollama   OllamaConfig   `mapstructure:"ollama"`
	Clone    CloneConfig    `mapstructure:"clone"`
	Speech   SpeechConfig   `mapstructure:"speech"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
}

type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	StaticDir      string   `mapstructure:"static_dir"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// bcrypt hash of the bearer token required on /api/voice. Empty disables auth.
	AccessTokenHash string `mapstructure:"access_token_hash"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

// Text generation provider selection and Gemini settings
type TextGenConfig struct {
	Provider string `mapstructure:"provider"` // "gemini", "openai" or "ollama"
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
	BaseURL  string `mapstructure:"base_url"`
	Method   string `mapstructure:"method"` // "generateText" or "generateContent"
	Auth     string `mapstructure:"auth"`   // "bearer" or "query"
	Timeout  int    `mapstructure:"timeout"`
}

type OpenAIConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	BaseURL   string `mapstructure:"base_url"`
	MaxTokens int    `mapstructure:"max_tokens"`
	Timeout   int    `mapstructure:"timeout"`
}

type OllamaConfig struct {
	Host    string `mapstructure:"host"`
	Model   string `mapstructure:"model"`
	Timeout int    `mapstructure:"timeout"` // seconds
}

// Voice-clone server
type CloneConfig struct {
	URL     string `mapstructure:"url"`
	Timeout int    `mapstructure:"timeout"`
}

type SpeechConfig struct {
	Backend    string `mapstructure:"backend"` // "rest", "google" or "dummy"
	URL        string `mapstructure:"url"`
	APIKey     string `mapstructure:"api_key"`
	SampleRate int    `mapstructure:"sample_rate"`
	Timeout    int    `mapstructure:"timeout"`
}

type RetryConfig struct {
	MaxRetries      int           `mapstructure:"max_retries"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	Randomization   float64       `mapstructure:"randomization"`
}

type UpstreamConfig struct {
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
	LogBodies    bool  `mapstructure:"log_bodies"`
}

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	SpeechBackendREST   = "rest"
	SpeechBackendGoogle = "google"
	SpeechBackendDummy  = "dummy"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.static_dir", "./web")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("sentry.environment", "development")

	v.SetDefault("text_gen.provider", ProviderGemini)
	v.SetDefault("text_gen.model", "text-bison-001")
	v.SetDefault("text_gen.base_url", "https://generativelanguage.googleapis.com/v1beta2")
	v.SetDefault("text_gen.method", "generateText")
	v.SetDefault("text_gen.auth", "bearer")
	v.SetDefault("text_gen.timeout", 30)

	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.max_tokens", 1000)
	v.SetDefault("openai.timeout", 30)

	v.SetDefault("ollama.host", "http://localhost:11434")
	v.SetDefault("ollama.model", "llama3.2")
	v.SetDefault("ollama.timeout", 50)

	v.SetDefault("clone.timeout", 60)

	v.SetDefault("speech.backend", SpeechBackendREST)
	v.SetDefault("speech.url", "https://api.generativeai.googleapis.com/v1beta2/speech:generate")
	v.SetDefault("speech.sample_rate", 24000)
	v.SetDefault("speech.timeout", 30)

	v.SetDefault("retry.max_retries", 1)
	v.SetDefault("retry.initial_interval", 250*time.Millisecond)
	v.SetDefault("retry.randomization", 0.5)

	v.SetDefault("upstream.max_body_bytes", int64(25<<20))
	v.SetDefault("upstream.log_bodies", false)
}

func bindEnv(v *viper.Viper) {
	// Names used by the original deployment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("sentry.dsn", "SENTRY_DSN")
	v.BindEnv("sentry.environment", "ENVIRONMENT")
	v.BindEnv("text_gen.provider", "LLM_PROVIDER")
	v.BindEnv("text_gen.api_key", "GEMINI_API_KEY")
	v.BindEnv("text_gen.model", "GEMINI_MODEL")
	v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("openai.model", "OPENAI_MODEL")
	v.BindEnv("openai.base_url", "OPENAI_BASE_URL")
	v.BindEnv("ollama.host", "OLLAMA_HOST")
	v.BindEnv("clone.url", "RVC_SERVER_URL")
	v.BindEnv("speech.url", "GEMINI_TTS_URL")
	v.BindEnv("speech.backend", "SPEECH_BACKEND")
}

// Load reads .env, config.yaml and the environment, in increasing priority.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)
	bindEnv(v)

	v.SetEnvPrefix("VOICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Config file not found, use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.normalize()

	return &cfg, nil
}

func (c *Config) normalize() {
	c.Clone.URL = strings.TrimSuffix(strings.TrimSpace(c.Clone.URL), "/")
	c.TextGen.BaseURL = strings.TrimSuffix(c.TextGen.BaseURL, "/")
	c.OpenAI.BaseURL = strings.TrimSuffix(c.OpenAI.BaseURL, "/")
	c.TextGen.Provider = strings.ToLower(strings.TrimSpace(c.TextGen.Provider))
	c.Speech.Backend = strings.ToLower(strings.TrimSpace(c.Speech.Backend))
	if c.Speech.APIKey == "" {
		c.Speech.APIKey = c.TextGen.APIKey
	}
}

// CloneConfigured reports whether cloned-voice synthesis is available.
func (c *Config) CloneConfigured() bool {
	return c.Clone.URL != ""
}

// TextGenCredential returns the credential the selected provider needs and
// whether one is needed at all. Ollama runs locally without one.
func (c *Config) TextGenCredential() (string, bool) {
	switch c.TextGen.Provider {
	case ProviderOllama:
		return "", false
	case ProviderOpenAI:
		return c.OpenAI.APIKey, true
	default:
		return c.TextGen.APIKey, true
	}
}

// HasTextGenCredential is false when the provider needs a credential and none is set.
func (c *Config) HasTextGenCredential() bool {
	key, required := c.TextGenCredential()
	return !required || key != ""
}

func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
