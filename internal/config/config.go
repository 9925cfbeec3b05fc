package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/emariqueo1/clasificador-salcobrand/internal/digest"
	"github.com/emariqueo1/clasificador-salcobrand/internal/integrations/llm"
)

const (
	defaultDBPath                     = "./clasificaciones.db"
	defaultPort                       = 5000
	defaultListenAddr                 = "0.0.0.0"
	defaultExternalHTTPTimeoutSeconds = 90
	defaultLogLevel                   = "info"
)

type Config struct {
	AnthropicAPIKey     string `yaml:"anthropic_api_key"`
	AnthropicBaseURL    string `yaml:"anthropic_base_url"`
	LLMModel            string `yaml:"llm_model"`
	LLMMaxTokens        int    `yaml:"llm_max_tokens"`
	LLMWebSearchMaxUses int    `yaml:"llm_web_search_max_uses"`
	LLMTimeoutSeconds   int    `yaml:"llm_timeout_seconds"`

	DBPath                     string   `yaml:"db_path"`
	Port                       int      `yaml:"port"`
	ListenAddr                 string   `yaml:"listen_addr"`
	ExternalHTTPTimeoutSeconds int      `yaml:"external_http_timeout_seconds"`
	CORSOrigins                []string `yaml:"cors_origins"`

	SlackBotToken  string `yaml:"slack_bot_token"`
	SlackChannelID string `yaml:"slack_channel_id"`
	DigestSchedule string `yaml:"digest_schedule"`
	Timezone       string `yaml:"timezone"`

	LogLevel string `yaml:"log_level"`

	Location *time.Location `yaml:"-"` // computed from Timezone, not from YAML
	Source   string         `yaml:"-"` // file the values were read from, empty if none
}

// LoadConfig reads config.yaml (or CONFIG_PATH), applies env overrides and
// defaults, and exits on invalid values.
func LoadConfig() Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("%v", err)
	}
	if cfg.Source != "" {
		log.Printf("Loaded config from %s", cfg.Source)
	}
	return cfg
}

// Load is LoadConfig without the exit. It does not log, so callers can set
// up logging from the result first.
func Load() (Config, error) {
	var cfg Config

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("error parsing %s: %w", configPath, err)
		}
		cfg.Source = configPath
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.AnthropicBaseURL, "ANTHROPIC_BASE_URL")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.ListenAddr, "LISTEN_ADDR")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")
	envOverrideAllowEmpty(&cfg.DigestSchedule, "DIGEST_SCHEDULE")
	envOverride(&cfg.Timezone, "TIMEZONE")
	envOverride(&cfg.LogLevel, "LOG_LEVEL")

	ints := []struct {
		field *int
		key   string
	}{
		{&cfg.LLMMaxTokens, "LLM_MAX_TOKENS"},
		{&cfg.LLMWebSearchMaxUses, "LLM_WEB_SEARCH_MAX_USES"},
		{&cfg.LLMTimeoutSeconds, "LLM_TIMEOUT_SECONDS"},
		{&cfg.Port, "PORT"},
		{&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS"},
	}
	for _, i := range ints {
		if err := envOverrideInt(i.field, i.key); err != nil {
			return err
		}
	}

	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.LLMModel == "" {
		c.LLMModel = llm.DefaultModel
	}
	if c.LLMMaxTokens == 0 {
		c.LLMMaxTokens = llm.DefaultMaxTokens
	}
	if c.LLMWebSearchMaxUses == 0 {
		c.LLMWebSearchMaxUses = llm.DefaultWebSearchMaxUses
	}
	if c.LLMTimeoutSeconds == 0 {
		c.LLMTimeoutSeconds = int(llm.DefaultTimeout / time.Second)
	}
	if c.DBPath == "" {
		c.DBPath = defaultDBPath
	}
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}
	if c.ExternalHTTPTimeoutSeconds == 0 {
		c.ExternalHTTPTimeoutSeconds = defaultExternalHTTPTimeoutSeconds
	}
	// The shared client must outlive a full classification call.
	if c.ExternalHTTPTimeoutSeconds < c.LLMTimeoutSeconds {
		c.ExternalHTTPTimeoutSeconds = c.LLMTimeoutSeconds
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
}

// Validate checks value ranges and resolves Location. It does not require
// the Anthropic key; see RequireLLM.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port '%d': must be between 1 and 65535", c.Port)
	}
	if c.LLMMaxTokens < 1 {
		return fmt.Errorf("invalid llm_max_tokens '%d': must be >= 1", c.LLMMaxTokens)
	}
	if c.LLMWebSearchMaxUses < 1 {
		return fmt.Errorf("invalid llm_web_search_max_uses '%d': must be >= 1", c.LLMWebSearchMaxUses)
	}
	if c.LLMTimeoutSeconds < 5 {
		return fmt.Errorf("invalid llm_timeout_seconds '%d': must be >= 5", c.LLMTimeoutSeconds)
	}
	if c.ExternalHTTPTimeoutSeconds < 5 {
		return fmt.Errorf("invalid external_http_timeout_seconds '%d': must be >= 5", c.ExternalHTTPTimeoutSeconds)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level '%s': %w", c.LogLevel, err)
	}

	if strings.EqualFold(c.Timezone, "Local") {
		c.Location = time.Local
	} else {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return fmt.Errorf("invalid timezone '%s': %w", c.Timezone, err)
		}
		c.Location = loc
	}

	if (c.SlackBotToken == "") != (c.SlackChannelID == "") {
		return errors.New("partial Slack config: slack_bot_token and slack_channel_id are required together")
	}
	if strings.TrimSpace(c.DigestSchedule) != "" {
		if !c.SlackConfigured() {
			return errors.New("digest_schedule is set but Slack is not configured")
		}
		if _, err := digest.ParseSchedule(c.DigestSchedule); err != nil {
			return fmt.Errorf("invalid digest_schedule '%s': %w", c.DigestSchedule, err)
		}
	}
	return nil
}

// RequireLLM reports whether the classifier can be built.
func (c Config) RequireLLM() error {
	if strings.TrimSpace(c.AnthropicAPIKey) == "" {
		return errors.New("anthropic_api_key is required (via config.yaml or ANTHROPIC_API_KEY)")
	}
	return nil
}

func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.SlackChannelID != ""
}

func (c Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSeconds) * time.Second
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.ListenAddr, c.Port)
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideAllowEmpty(field *string, envKey string) {
	if val, ok := os.LookupEnv(envKey); ok {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) error {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", envKey, val, err)
		}
		*field = parsed
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
