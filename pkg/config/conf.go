package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	configFileName = "config.yaml"
	dirMode        = 0700
	fileMode       = 0600

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "RISKSCORE_"

	defaultDBFile       = "data.db"
	defaultArtifactFile = "model.json"
	defaultPort         = 8080
	defaultSeed         = 42
	defaultTestSize     = 0.2
	defaultThreshold    = 0.3
	defaultLogLevel     = "info"
	defaultLogFormat    = "text"
)

// Config represents app config object. Values are read from config.yaml and
// then overridden by RISKSCORE_* environment variables.
type Config struct {
	DBPath       string  `yaml:"dbPath" env:"DB_PATH"`
	ArtifactPath string  `yaml:"artifactPath" env:"ARTIFACT_PATH"`
	Port         int     `yaml:"port" env:"PORT"`
	Seed         uint64  `yaml:"seed" env:"SEED"`
	TestSize     float64 `yaml:"testSize" env:"TEST_SIZE"`
	Threshold    float64 `yaml:"threshold" env:"THRESHOLD"`
	LogLevel     string  `yaml:"logLevel" env:"LOG_LEVEL"`
	LogFormat    string  `yaml:"logFormat" env:"LOG_FORMAT"`
}

// Default returns the config used when no file exists in dirPath.
func Default(dirPath string) *Config {
	return &Config{
		DBPath:       filepath.Join(dirPath, defaultDBFile),
		ArtifactPath: filepath.Join(dirPath, defaultArtifactFile),
		Port:         defaultPort,
		Seed:         defaultSeed,
		TestSize:     defaultTestSize,
		Threshold:    defaultThreshold,
		LogLevel:     defaultLogLevel,
		LogFormat:    defaultLogFormat,
	}
}

// Validate checks the ranges of the numeric settings and the log options.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config required")
	}
	if c.DBPath == "" {
		return errors.New("dbPath required")
	}
	if c.ArtifactPath == "" {
		return errors.New("artifactPath required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Seed == 0 {
		return errors.New("seed must be greater than 0")
	}
	if c.TestSize <= 0 || c.TestSize >= 1 {
		return fmt.Errorf("testSize must be in (0, 1), got %v", c.TestSize)
	}
	if c.Threshold <= 0 || c.Threshold >= 1 {
		return fmt.Errorf("threshold must be in (0, 1), got %v", c.Threshold)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logLevel: %s", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid logFormat: %s", c.LogFormat)
	}
	return nil
}

// Save writes c to the config file in dirPath.
func Save(dirPath string, c *Config) error {
	if dirPath == "" {
		return errors.New("config directory required")
	}
	if c == nil {
		return errors.New("config required")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	path := filepath.Join(dirPath, configFileName)
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// ReadOrCreate reads app config from directory or creates a new one, then
// applies the environment overrides.
func ReadOrCreate(dirPath string) (*Config, error) {
	return readOrCreate(dirPath, nil)
}

func readOrCreate(dirPath string, environ map[string]string) (*Config, error) {
	if dirPath == "" {
		return nil, errors.New("config directory required")
	}

	if err := os.MkdirAll(dirPath, dirMode); err != nil {
		return nil, fmt.Errorf("failed to create dir %s: %w", dirPath, err)
	}

	path := filepath.Join(dirPath, configFileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating default config", "path", path)
		if err := Save(dirPath, Default(dirPath)); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	// start from defaults so keys missing in older files keep a value
	c := Default(dirPath)
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("error unmarshalling config file %s: %w", path, err)
	}

	if err := applyEnv(c, environ); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return c, nil
}

// applyEnv overrides c with RISKSCORE_* variables. A nil environ reads the
// process environment.
func applyEnv(c *Config, environ map[string]string) error {
	opts := env.Options{
		Prefix:      EnvPrefix,
		Environment: environ,
	}
	if err := env.ParseWithOptions(c, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// GetOrCreateHomeDir returns the home directory for the current user.
// The create flag is set to true if the directory was created.
func GetOrCreateHomeDir(name string) (path string, created bool, err error) {
	if name == "" {
		return "", false, errors.New("name cannot be empty")
	}

	if !strings.HasPrefix(name, ".") {
		name = "." + name
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("failed to get user home dir: %w", err)
	}
	slog.Debug("home dir", "path", home)

	dir := filepath.Join(home, name)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating dir", "path", dir)
		if err := os.Mkdir(dir, dirMode); err != nil {
			return "", false, fmt.Errorf("failed to create dir %s: %w", dir, err)
		}
		created = true
	}
	return dir, created, nil
}
