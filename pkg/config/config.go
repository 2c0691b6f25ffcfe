package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Model      ModelConfig           `yaml:"model"`
	Classifier ClassifierConfig      `yaml:"classifier"`
	Reasoning  ReasoningConfig       `yaml:"reasoning"`
	Logging    LoggingConfig         `yaml:"logging"`
	Server     ServerConfig          `yaml:"server"`
	Tools      map[string]ToolConfig `yaml:"tools"`

	// ConfigDir is the directory the configuration was loaded from.
	ConfigDir string `yaml:"-"`
}

// ReasoningConfig bounds a sequential reasoning session.
type ReasoningConfig struct {
	MaxRounds       int           `yaml:"max_rounds,omitempty"`
	InitialEstimate int           `yaml:"initial_estimate,omitempty"`
	Timeout         time.Duration `yaml:"timeout,omitempty"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// ServerConfig controls the MCP transport.
type ServerConfig struct {
	Name      string `yaml:"name,omitempty"`
	Transport string `yaml:"transport,omitempty"`
	Addr      string `yaml:"addr,omitempty"`
}

// Supported MCP transports.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

const (
	defaultMaxRounds       = 10
	defaultInitialEstimate = 5
	defaultServerName      = "toolroute"
	defaultTransport       = TransportStdio
	defaultAddr            = ":8085"
)

// Load reads configuration from a YAML file and environment variables.
// Environment variables take precedence over file configuration. An empty
// path means ~/.toolroute/config.yaml; a missing default file is not an error.
func Load(path string) (*Config, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = filepath.Join(configDir, "config.yaml")
	} else {
		configDir = filepath.Dir(path)
	}

	cfg := newConfig()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.ConfigDir = configDir
	applyEnv(cfg)
	cfg.ApplyDefaults()
	return cfg, nil
}

// Default returns a configuration populated with defaults and environment
// overrides, without reading any file.
func Default() *Config {
	cfg := newConfig()
	applyEnv(cfg)
	cfg.ApplyDefaults()
	return cfg
}

// newConfig seeds the fields where zero is a valid setting. The YAML file is
// decoded on top, so an explicit zero survives.
func newConfig() *Config {
	return &Config{
		Model:      ModelConfig{Temperature: defaultTemperature},
		Classifier: DefaultClassifierConfig(),
	}
}

// ApplyDefaults fills unset fields. It is safe to call more than once.
func (c *Config) ApplyDefaults() {
	if c == nil {
		return
	}
	c.Model.applyDefaults()
	c.Classifier.applyDefaults()
	if c.Reasoning.MaxRounds <= 0 {
		c.Reasoning.MaxRounds = defaultMaxRounds
	}
	if c.Reasoning.InitialEstimate <= 0 {
		c.Reasoning.InitialEstimate = defaultInitialEstimate
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Server.Name == "" {
		c.Server.Name = defaultServerName
	}
	if c.Server.Transport == "" {
		c.Server.Transport = defaultTransport
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaultAddr
	}
	if len(c.Tools) == 0 {
		c.Tools = DefaultTools()
	}
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if err := c.Model.Validate(); err != nil {
		return err
	}
	if err := c.Classifier.Validate(); err != nil {
		return err
	}
	if _, ok := c.Tools[c.Classifier.DefaultTool]; !ok {
		return &ConfigurationError{
			Field:  "classifier.default_tool",
			Reason: fmt.Sprintf("tool %q is not registered", c.Classifier.DefaultTool),
		}
	}
	for id, tool := range c.Tools {
		if id == "" {
			return &ConfigurationError{Field: "tools", Reason: "tool id is empty"}
		}
		if tool.Description == "" {
			return &ConfigurationError{Field: "tools." + id + ".description", Reason: "is required"}
		}
	}
	switch c.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return &ConfigurationError{Field: "server.transport", Reason: fmt.Sprintf("unsupported transport %q", c.Server.Transport)}
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Model.APIKey = getEnvOrDefault("OPENROUTER_API_KEY", cfg.Model.APIKey)
	cfg.Model.BaseURL = getEnvOrDefault("OPENROUTER_BASE_URL", cfg.Model.BaseURL)
	cfg.Model.PrimaryModel = getEnvOrDefault("TOOLROUTE_PRIMARY_MODEL", cfg.Model.PrimaryModel)
	cfg.Model.FallbackModel = getEnvOrDefault("TOOLROUTE_FALLBACK_MODEL", cfg.Model.FallbackModel)
	cfg.Model.Provider = getEnvOrDefault("TOOLROUTE_PROVIDER", cfg.Model.Provider)
	cfg.Logging.Level = getEnvOrDefault("TOOLROUTE_LOG_LEVEL", cfg.Logging.Level)
	if v := os.Getenv("TOOLROUTE_MAX_ROUNDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Reasoning.MaxRounds = n
		}
	}
}

// getEnvOrDefault returns the environment variable value if set,
// otherwise returns the default value.
func getEnvOrDefault(envVar, defaultValue string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultValue
}

func getConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".toolroute"), nil
}
