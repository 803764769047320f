// Package config loads coordinator and worker configuration from defaults,
// an optional YAML file, and environment variable overrides, in that order
// of precedence.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration for both node roles.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Master  MasterConfig  `yaml:"master"`
	Slave   SlaveConfig   `yaml:"slave"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address      string        `yaml:"address" env:"DP_SERVER_ADDRESS"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"DP_SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"DP_SERVER_WRITE_TIMEOUT"`
	BodyLimitMB  int           `yaml:"body_limit_mb" env:"DP_SERVER_BODY_LIMIT_MB"`
}

// MasterConfig holds coordinator configuration.
type MasterConfig struct {
	// DispatchTimeout bounds each per-worker /get_task call.
	DispatchTimeout time.Duration `yaml:"dispatch_timeout" env:"DP_MASTER_DISPATCH_TIMEOUT"`
	// ProbeTimeout bounds a liveness probe; it must stay shorter than
	// DispatchTimeout.
	ProbeTimeout time.Duration `yaml:"probe_timeout" env:"DP_MASTER_PROBE_TIMEOUT"`
	// EagerSweep enables probing all workers before each partitioning pass.
	EagerSweep bool `yaml:"eager_sweep" env:"DP_MASTER_EAGER_SWEEP"`
	// OutputDir is the root of the job-kind-scoped artifact tree.
	OutputDir string `yaml:"output_dir" env:"DP_MASTER_OUTPUT_DIR"`
	// MaxWorkers caps the registry size.
	MaxWorkers int `yaml:"max_workers" env:"DP_MASTER_MAX_WORKERS"`
}

// SlaveConfig holds worker node configuration.
type SlaveConfig struct {
	MasterURL     string        `yaml:"master_url" env:"DP_SLAVE_MASTER_URL"`
	AdvertiseHost string        `yaml:"advertise_host" env:"DP_SLAVE_ADVERTISE_HOST"`
	Port          int           `yaml:"port" env:"DP_SLAVE_PORT"`
	// ReregisterInterval re-announces the worker to the master; eviction is
	// final, so re-registration is the only way back into partitioning.
	ReregisterInterval time.Duration `yaml:"reregister_interval" env:"DP_SLAVE_REREGISTER_INTERVAL"`
	RegisterTimeout    time.Duration `yaml:"register_timeout" env:"DP_SLAVE_REGISTER_TIMEOUT"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `yaml:"level" env:"DP_LOG_LEVEL"`
	Format     string `yaml:"format" env:"DP_LOG_FORMAT"`
	Output     string `yaml:"output" env:"DP_LOG_OUTPUT"`
	FilePath   string `yaml:"file_path" env:"DP_LOG_FILE_PATH"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"DP_LOG_MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" env:"DP_LOG_MAX_BACKUPS"`
	MaxAgeDays int    `yaml:"max_age_days" env:"DP_LOG_MAX_AGE_DAYS"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:      ":5000",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			BodyLimitMB:  64,
		},
		Master: MasterConfig{
			DispatchTimeout: 45 * time.Second,
			ProbeTimeout:    2 * time.Second,
			EagerSweep:      true,
			OutputDir:       "processed_results",
			MaxWorkers:      100,
		},
		Slave: SlaveConfig{
			MasterURL:          "http://localhost:5000",
			AdvertiseHost:      "",
			Port:               3000,
			ReregisterInterval: 30 * time.Second,
			RegisterTimeout:    5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			Output:     "stdout",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Master.ProbeTimeout >= c.Master.DispatchTimeout {
		return fmt.Errorf("probe timeout (%s) must be shorter than dispatch timeout (%s)",
			c.Master.ProbeTimeout, c.Master.DispatchTimeout)
	}
	if c.Master.MaxWorkers <= 0 {
		return fmt.Errorf("max workers must be positive, got %d", c.Master.MaxWorkers)
	}
	if c.Slave.Port <= 0 || c.Slave.Port > 65535 {
		return fmt.Errorf("invalid slave port: %d", c.Slave.Port)
	}
	return nil
}

// Loader handles configuration loading from multiple sources.
type Loader struct {
	configPath string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// WithConfigPath sets the path to the YAML configuration file.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// Load loads configuration with precedence defaults < YAML file < env vars.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := applyEnvToStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // missing file falls back to defaults
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvToStruct recursively applies env-tagged overrides to struct fields.
func applyEnvToStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if field.Kind() == reflect.Struct {
			if err := applyEnvToStruct(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}

		envValue := os.Getenv(envTag)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("set field %s from %s: %w", fieldType.Name, envTag, err)
		}
	}

	return nil
}

// setFieldValue sets a reflect.Value from its string representation.
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return fmt.Errorf("field is not settable")
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid float: %w", err)
		}
		field.SetFloat(f)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
			return nil
		}
		return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Serialize serializes the configuration to YAML bytes.
func (c *Config) Serialize() ([]byte, error) {
	return yaml.Marshal(c)
}

// LoadFromFile loads configuration from a YAML file path.
func LoadFromFile(path string) (*Config, error) {
	return NewLoader().WithConfigPath(path).Load()
}
