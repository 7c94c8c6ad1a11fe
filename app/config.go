package app

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type KerasConfig struct {
	Python string `yaml:"python"`
	Script string `yaml:"script"`
	// Working directory of the python workers.
	Dir string `yaml:"dir"`
	// Hide framework stderr output unless -debug is set.
	Quiet bool `yaml:"quiet"`
}

type AppConfig struct {
	// Bind address of the HTTP server.
	Addr   string `yaml:"addr"`
	DBPath string `yaml:"db_path"`
	// Backend used for sessions that do not name one.
	DefaultBackend string `yaml:"default_backend"`
	// Defaults for sessions; a stored dataset's split ratio takes precedence.
	SplitRatio float64     `yaml:"split_ratio"`
	BatchSize  int         `yaml:"batch_size"`
	Keras      KerasConfig `yaml:"keras"`
}

func DefaultConfig() AppConfig {
	return AppConfig{
		Addr:           ":8080",
		DBPath:         "./netbuilder.sqlite3",
		DefaultBackend: "keras",
		SplitRatio:     0.8,
		BatchSize:      128,
		Keras: KerasConfig{
			Python: "python3",
			Script: "backends/keras/keras_worker.py",
		},
	}
}

// Global config object, set by main.
var Config = DefaultConfig()

// LoadConfig reads a YAML file over the defaults. ${VAR} references are
// expanded from the environment first.
func LoadConfig(path string) (AppConfig, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c AppConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("config: addr is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("config: db_path is required")
	}
	if c.SplitRatio <= 0 || c.SplitRatio > 1 {
		return fmt.Errorf("config: split_ratio must be in (0, 1], got %v", c.SplitRatio)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("config: batch_size must be positive, got %d", c.BatchSize)
	}
	return nil
}

// LoadDotEnv loads environment variables from path. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
