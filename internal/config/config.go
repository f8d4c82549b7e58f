package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"
)

const configFileBase = "careplanner_config"

// Config represents the application configuration
type Config struct {
	// BackendBaseURL is the schedule backend the planner talks to
	BackendBaseURL string `yaml:"backendBaseURL" validate:"required,url"`
	// APIToken is the bearer token for backend requests
	APIToken string `yaml:"apiToken" validate:"required"`

	RequestTimeoutSeconds int `yaml:"requestTimeoutSeconds,omitempty" validate:"omitempty,min=1,max=300"`
	WindowRadiusDays      int `yaml:"windowRadiusDays,omitempty" validate:"omitempty,min=1,max=14"`
	PageSize              int `yaml:"pageSize,omitempty" validate:"omitempty,min=1,max=500"`
	DefaultZoom           int `yaml:"defaultZoom,omitempty" validate:"omitempty,min=2,max=8"`

	// ClosureRules are RRULE strings marking agency closure days
	ClosureRules []string `yaml:"closureRules,omitempty"`

	// HistoryDatabaseURL enables the reschedule audit log when set
	HistoryDatabaseURL string `yaml:"historyDatabaseURL,omitempty"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates the configuration for the default environment
func Load() (*Config, error) {
	return LoadWithEnv("")
}

// LoadWithEnv loads the configuration for a named environment, e.g.
// careplanner_config.test.yaml for env "test". It looks in the current
// directory first, then in the user's home directory.
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}
	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct and checks rrule syntax
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	for i, rule := range cfg.ClosureRules {
		if _, err := rrule.StrToRRule(rule); err != nil {
			return fmt.Errorf("invalid rrule in closureRules[%d]: %w", i, err)
		}
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.RequestTimeoutSeconds == 0 {
		c.RequestTimeoutSeconds = 30
	}
	if c.WindowRadiusDays == 0 {
		c.WindowRadiusDays = 3
	}
	if c.PageSize == 0 {
		c.PageSize = 100
	}
	if c.DefaultZoom == 0 {
		c.DefaultZoom = 4
	}
}

// RequestTimeout returns the backend request timeout as a duration
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// closureEpoch is the anchor given to closure rules that do not carry
// their own DTSTART. A Monday, matching the default week start.
var closureEpoch = time.Date(2000, time.January, 3, 0, 0, 0, 0, time.UTC)

// ParsedClosureRules parses the configured closure rrules. Validate has
// already checked their syntax, but parsing can still fail on a config
// mutated after load. Rules without an explicit DTSTART are anchored at
// a fixed epoch; rules with INTERVAL greater than one should carry a
// DTSTART, since the anchor determines which weeks they fire on.
func (c *Config) ParsedClosureRules() ([]*rrule.RRule, error) {
	rules := make([]*rrule.RRule, 0, len(c.ClosureRules))
	for i, raw := range c.ClosureRules {
		rule, err := rrule.StrToRRule(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid rrule in closureRules[%d]: %w", i, err)
		}
		if !strings.Contains(strings.ToUpper(raw), "DTSTART") {
			rule.DTStart(closureEpoch)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// findConfigFile searches for the environment's config file in the
// current directory and then the home directory
func findConfigFile(env string) (string, error) {
	fileName := configFileBase + ".yaml"
	if env != "" {
		fileName = fmt.Sprintf("%s.%s.yaml", configFileBase, env)
	}

	if _, err := os.Stat(fileName); err == nil {
		return fileName, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homePath := filepath.Join(homeDir, fileName)
	if _, err := os.Stat(homePath); err == nil {
		return homePath, nil
	}

	return "", fmt.Errorf("config file %s not found in current directory or home directory", fileName)
}
