package app

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aussiebroadwan/voxgate/internal/voxgate/embedding"
)

const (
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
)

// ConfigFileEnv names a YAML file read before the environment. Environment
// variables override values from the file.
const ConfigFileEnv = "VOXGATE_CONFIG_FILE"

type Config struct {
	StoreDriver  string        `yaml:"store_driver"`  // sqlite or badger (default: sqlite)
	DatabaseFile string        `yaml:"database_file"` // SQLite file (default: ./voxgate.db)
	BadgerDir    string        `yaml:"badger_dir"`    // Badger data directory (default: ./voxgate-badger)
	RecordTTL    time.Duration `yaml:"record_ttl"`    // Expiry for new enrollments, 0 = never (default: 0)
	PepperFile   string        `yaml:"pepper_file"`   // Pepper for secret hashing (default: ./pepper)

	Model         string `yaml:"model"`          // fbank or sherpa (default: fbank)
	ModelPath     string `yaml:"model_path"`     // ONNX file for sherpa
	ModelThreads  int    `yaml:"model_threads"`  // Inference threads (default: 1)
	ModelProvider string `yaml:"model_provider"` // cpu, cuda, coreml (default: cpu)
	Project       bool   `yaml:"project_embeddings"`

	Threshold        float64       `yaml:"threshold"`          // Minimum cosine similarity (default: 0.85)
	MinAudioDuration time.Duration `yaml:"min_audio_duration"` // Shortest usable recording (default: 1s)
	MaxAudioDuration time.Duration `yaml:"max_audio_duration"` // Longest accepted recording (default: 60s)
	MaxAudioBytes    int64         `yaml:"max_audio_bytes"`    // Largest accepted payload (default: 16 MiB)

	Env                  string        `yaml:"env"`                   // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        `yaml:"log_level"`             // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        `yaml:"log_format"`            // Log format (json, text) (default: json)
	Port                 int           `yaml:"port"`                  // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration `yaml:"shutdown_grace_period"` // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration `yaml:"housekeeping_interval"` // Expired record purge interval (default: 1h)
}

func DefaultConfig() Config {
	return Config{
		StoreDriver:          DriverSQLite,
		DatabaseFile:         "voxgate.db",
		BadgerDir:            "voxgate-badger",
		PepperFile:           "pepper",
		Model:                embedding.KindFbank,
		ModelThreads:         1,
		ModelProvider:        "cpu",
		Threshold:            0.85,
		MinAudioDuration:     time.Second,
		MaxAudioDuration:     time.Minute,
		MaxAudioBytes:        16 << 20,
		Env:                  "dev",
		LogLevel:             "info",
		LogFormat:            "json",
		Port:                 8080,
		ShutdownGracePeriod:  10 * time.Second,
		HousekeepingInterval: 1 * time.Hour,
	}
}

// LoadConfig builds the configuration from defaults, then the optional YAML
// file, then the environment.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.StoreDriver = getEnvOrDefault("VOXGATE_STORE_DRIVER", cfg.StoreDriver)
	cfg.DatabaseFile = getEnvOrDefault("VOXGATE_DATABASE_FILE", cfg.DatabaseFile)
	cfg.BadgerDir = getEnvOrDefault("VOXGATE_BADGER_DIR", cfg.BadgerDir)
	cfg.RecordTTL = getEnvDurationOrDefault("VOXGATE_RECORD_TTL", cfg.RecordTTL)
	cfg.PepperFile = getEnvOrDefault("VOXGATE_PEPPER_FILE", cfg.PepperFile)

	cfg.Model = getEnvOrDefault("VOXGATE_MODEL", cfg.Model)
	cfg.ModelPath = getEnvOrDefault("VOXGATE_MODEL_PATH", cfg.ModelPath)
	cfg.ModelThreads = getEnvIntOrDefault("VOXGATE_MODEL_THREADS", cfg.ModelThreads)
	cfg.ModelProvider = getEnvOrDefault("VOXGATE_MODEL_PROVIDER", cfg.ModelProvider)
	cfg.Project = getEnvBoolOrDefault("VOXGATE_PROJECT_EMBEDDINGS", cfg.Project)

	cfg.Threshold = getEnvFloatOrDefault("VOXGATE_THRESHOLD", cfg.Threshold)
	cfg.MinAudioDuration = getEnvDurationOrDefault("VOXGATE_MIN_AUDIO_DURATION", cfg.MinAudioDuration)
	cfg.MaxAudioDuration = getEnvDurationOrDefault("VOXGATE_MAX_AUDIO_DURATION", cfg.MaxAudioDuration)
	cfg.MaxAudioBytes = int64(getEnvIntOrDefault("VOXGATE_MAX_AUDIO_BYTES", int(cfg.MaxAudioBytes)))

	cfg.Env = getEnvOrDefault("ENV", cfg.Env)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvOrDefault("LOG_FORMAT", cfg.LogFormat)
	cfg.Port = getEnvIntOrDefault("PORT", cfg.Port)
	cfg.ShutdownGracePeriod = getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", cfg.ShutdownGracePeriod)
	cfg.HousekeepingInterval = getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", cfg.HousekeepingInterval)

	return cfg, cfg.Validate()
}

// Validate rejects configurations the service cannot run with.
func (c Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case DriverSQLite:
		if c.DatabaseFile == "" {
			errs = append(errs, errors.New("database_file is required for the sqlite driver"))
		}
	case DriverBadger:
		if c.BadgerDir == "" {
			errs = append(errs, errors.New("badger_dir is required for the badger driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.StoreDriver))
	}

	switch c.Model {
	case embedding.KindFbank:
	case embedding.KindSherpa:
		if c.ModelPath == "" {
			errs = append(errs, errors.New("model_path is required for the sherpa model"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown model %q", c.Model))
	}

	if math.IsNaN(c.Threshold) || c.Threshold < -1 || c.Threshold > 1 {
		errs = append(errs, fmt.Errorf("threshold %v is outside [-1, 1]", c.Threshold))
	}
	if c.RecordTTL < 0 {
		errs = append(errs, errors.New("record_ttl must not be negative"))
	}
	if c.MinAudioDuration < 0 {
		errs = append(errs, errors.New("min_audio_duration must not be negative"))
	}
	if c.MaxAudioDuration > 0 && c.MaxAudioDuration < c.MinAudioDuration {
		errs = append(errs, errors.New("max_audio_duration is shorter than min_audio_duration"))
	}
	if c.MaxAudioBytes <= 0 {
		errs = append(errs, errors.New("max_audio_bytes must be positive"))
	}
	if c.PepperFile == "" {
		errs = append(errs, errors.New("pepper_file is required"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d is out of range", c.Port))
	}

	return errors.Join(errs...)
}

// ModelConfig returns the embedding loader settings.
func (c Config) ModelConfig() embedding.LoadConfig {
	return embedding.LoadConfig{
		Kind:     c.Model,
		Path:     c.ModelPath,
		Threads:  c.ModelThreads,
		Provider: c.ModelProvider,
		Project:  c.Project,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
