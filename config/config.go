// Package config provides unified configuration loading for printflow.
// Precedence: defaults → YAML file → environment variables.
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("PRINTFLOW").
//	    Load()
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete printflow configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Log          LogConfig          `yaml:"log"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
}

// ServerConfig configures the HTTP front door.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	MetricsPort     int           `yaml:"metrics_port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// OrchestratorConfig configures the workflow engine.
type OrchestratorConfig struct {
	MaxConcurrentWorkflows int           `yaml:"max_concurrent_workflows"`
	MaxRequestLength       int           `yaml:"max_request_length"`
	StepTimeout            time.Duration `yaml:"step_timeout"`
	MaxRetries             int           `yaml:"max_retries"`
	RetryInitialDelay      time.Duration `yaml:"retry_initial_delay"`
	RetryMaxDelay          time.Duration `yaml:"retry_max_delay"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// TelemetryConfig configures the OpenTelemetry SDK.
type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
	Insecure    bool    `yaml:"insecure"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			MetricsPort:     9090,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Orchestrator: OrchestratorConfig{
			MaxConcurrentWorkflows: 3,
			MaxRequestLength:       2000,
			StepTimeout:            30 * time.Second,
			MaxRetries:             3,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			Endpoint:    "localhost:4317",
			ServiceName: "printflow",
			SampleRatio: 1.0,
			Insecure:    true,
		},
	}
}

// Loader loads configuration with layered precedence.
type Loader struct {
	configPath string
	envPrefix  string
}

// NewLoader creates a loader with no file and the PRINTFLOW env prefix.
func NewLoader() *Loader {
	return &Loader{envPrefix: "PRINTFLOW"}
}

// WithConfigPath sets the YAML file to load. Optional.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load resolves the configuration: defaults, then YAML, then env.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	if l.configPath != "" {
		data, err := os.ReadFile(l.configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	l.applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Orchestrator.MaxConcurrentWorkflows <= 0 {
		return fmt.Errorf("max_concurrent_workflows must be positive")
	}
	if c.Orchestrator.MaxRequestLength <= 0 {
		return fmt.Errorf("max_request_length must be positive")
	}
	if c.Orchestrator.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}

// applyEnv overrides fields from PREFIX_SECTION_FIELD variables.
func (l *Loader) applyEnv(cfg *Config) {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(l.envPrefix + "_" + key); ok {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v, ok := os.LookupEnv(l.envPrefix + "_" + key); ok {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setBool := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(l.envPrefix + "_" + key); ok {
			*dst = strings.EqualFold(v, "true") || v == "1"
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(l.envPrefix + "_" + key); ok {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}
	setFloat := func(key string, dst *float64) {
		if v, ok := os.LookupEnv(l.envPrefix + "_" + key); ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}

	setString("SERVER_HOST", &cfg.Server.Host)
	setInt("SERVER_PORT", &cfg.Server.Port)
	setInt("SERVER_METRICS_PORT", &cfg.Server.MetricsPort)
	setDuration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	setDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	setDuration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	setInt("ORCHESTRATOR_MAX_CONCURRENT_WORKFLOWS", &cfg.Orchestrator.MaxConcurrentWorkflows)
	setInt("ORCHESTRATOR_MAX_REQUEST_LENGTH", &cfg.Orchestrator.MaxRequestLength)
	setDuration("ORCHESTRATOR_STEP_TIMEOUT", &cfg.Orchestrator.StepTimeout)
	setInt("ORCHESTRATOR_MAX_RETRIES", &cfg.Orchestrator.MaxRetries)
	setDuration("ORCHESTRATOR_RETRY_INITIAL_DELAY", &cfg.Orchestrator.RetryInitialDelay)
	setDuration("ORCHESTRATOR_RETRY_MAX_DELAY", &cfg.Orchestrator.RetryMaxDelay)

	setString("LOG_LEVEL", &cfg.Log.Level)
	setString("LOG_FORMAT", &cfg.Log.Format)

	setBool("TELEMETRY_ENABLED", &cfg.Telemetry.Enabled)
	setString("TELEMETRY_ENDPOINT", &cfg.Telemetry.Endpoint)
	setString("TELEMETRY_SERVICE_NAME", &cfg.Telemetry.ServiceName)
	setFloat("TELEMETRY_SAMPLE_RATIO", &cfg.Telemetry.SampleRatio)
	setBool("TELEMETRY_INSECURE", &cfg.Telemetry.Insecure)
}
