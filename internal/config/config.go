package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/vigil/pkg/escalation"
	"gopkg.in/yaml.v3"
)

// Config is the deployment configuration for the vigil server. Secrets are
// taken from the environment so the YAML file can be committed.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	// BaseURL is the public root Twilio uses to reach the webhooks. It
	// must be reachable from the internet.
	BaseURL  string `yaml:"base_url"`
	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`

	Twilio struct {
		AccountSID string `yaml:"account_sid"`
		AuthToken  string `yaml:"auth_token"`
		From       string `yaml:"from"`
	} `yaml:"twilio"`

	Oracle struct {
		APIKey         string `yaml:"api_key"`
		BaseURL        string `yaml:"base_url"`
		Model          string `yaml:"model"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"oracle"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Call struct {
		GatherTimeoutSeconds   int  `yaml:"gather_timeout_seconds"`
		NumDigits              int  `yaml:"num_digits"`
		NotifyFailureEscalates bool `yaml:"notify_failure_escalates"`
	} `yaml:"call"`

	Escalation struct {
		Contacts []escalation.Contact `yaml:"contacts"`
		Retries  int                  `yaml:"retries"`
	} `yaml:"escalation"`
}

// Default returns a config with sane defaults applied.
func Default() *Config {
	cfg := &Config{
		ListenAddr: ":8080",
		LogLevel:   "info",
	}
	cfg.Oracle.TimeoutSeconds = 10
	cfg.Call.GatherTimeoutSeconds = 6
	cfg.Call.NumDigits = 1
	cfg.Escalation.Retries = 3
	return cfg
}

// Load reads the YAML file (optional; empty path skips it), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv lets the environment override secrets and deployment URLs.
func (c *Config) applyEnv() {
	overrideString(&c.BaseURL, "BASE_URL")
	overrideString(&c.Twilio.AccountSID, "TWILIO_SID")
	overrideString(&c.Twilio.AuthToken, "TWILIO_AUTH")
	overrideString(&c.Twilio.From, "TWILIO_FROM")
	overrideString(&c.Oracle.APIKey, "GROQ_API_KEY")
	overrideString(&c.Redis.Addr, "REDIS_ADDR")
	overrideString(&c.Redis.Password, "REDIS_PASSWORD")
}

func overrideString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

// Validate checks the fields the server cannot run without.
func (c *Config) Validate() error {
	var missing []string
	if c.BaseURL == "" {
		missing = append(missing, "base_url (or BASE_URL)")
	}
	if c.Twilio.AccountSID == "" {
		missing = append(missing, "twilio.account_sid (or TWILIO_SID)")
	}
	if c.Twilio.AuthToken == "" {
		missing = append(missing, "twilio.auth_token (or TWILIO_AUTH)")
	}
	if c.Twilio.From == "" {
		missing = append(missing, "twilio.from (or TWILIO_FROM)")
	}
	if c.Oracle.APIKey == "" {
		missing = append(missing, "oracle.api_key (or GROQ_API_KEY)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
