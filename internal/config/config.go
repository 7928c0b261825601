// Package config loads the CLI configuration from a JSON or YAML file.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

// CorpusConfig locates the raw and cleaned poem corpora.
type CorpusConfig struct {
	RawPath     string `json:"raw_path" yaml:"raw_path"`
	CleanedDir  string `json:"cleaned_dir" yaml:"cleaned_dir"`
	CleanedFile string `json:"cleaned_file" yaml:"cleaned_file"`
}

// CleanedPath is the full path of the cleaned corpus file.
func (c CorpusConfig) CleanedPath() string {
	return filepath.Join(c.CleanedDir, c.CleanedFile)
}

// ModelConfig holds the n-gram order and the name models are stored under.
type ModelConfig struct {
	Order int    `json:"order" yaml:"order"`
	Name  string `json:"name" yaml:"name"`
}

// GenerateConfig holds the default generation settings.
type GenerateConfig struct {
	MaxLength   int     `json:"max_length" yaml:"max_length"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
	TopK        int     `json:"top_k" yaml:"top_k"`
	// Rebuild trains and saves a model when none is stored yet.
	Rebuild bool `json:"rebuild" yaml:"rebuild"`
}

// RedisConfig holds the connection settings of the redis store.
type RedisConfig struct {
	Addr       string `json:"addr" yaml:"addr"`
	Password   string `json:"password" yaml:"password"`
	DB         int    `json:"db" yaml:"db"`
	Prefix     string `json:"prefix" yaml:"prefix"`
	TTLSeconds int    `json:"ttl_seconds" yaml:"ttl_seconds"`
}

// StoreConfig selects and configures the model store. Backend is one of
// "file", "sqlite" or "redis".
type StoreConfig struct {
	Backend    string      `json:"backend" yaml:"backend"`
	Dir        string      `json:"dir" yaml:"dir"`
	SQLitePath string      `json:"sqlite_path" yaml:"sqlite_path"`
	Redis      RedisConfig `json:"redis" yaml:"redis"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	Corpus   CorpusConfig   `json:"corpus" yaml:"corpus"`
	Model    ModelConfig    `json:"model" yaml:"model"`
	Generate GenerateConfig `json:"generate" yaml:"generate"`
	Store    StoreConfig    `json:"store" yaml:"store"`
	LogLevel string         `json:"log_level" yaml:"log_level"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Corpus: CorpusConfig{
			RawPath:     filepath.Join("Dataset", "Raw", "Emily_dickinson_raw_data"),
			CleanedDir:  filepath.Join("Dataset", "Cleaned"),
			CleanedFile: "cleaned_poems.json",
		},
		Model: ModelConfig{
			Order: 1,
			Name:  "markov_chain",
		},
		Generate: GenerateConfig{
			MaxLength:   50,
			Temperature: 1.0,
		},
		Store: StoreConfig{
			Backend:    "file",
			Dir:        filepath.Join("Dataset", "MarkovChain"),
			SQLitePath: filepath.Join("Dataset", "quatrain.db"),
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "quatrain:",
			},
		},
		LogLevel: "info",
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load reads the configuration at path. Files ending in .yaml or .yml are
// parsed as YAML and anything else as JSON; fields absent from the file keep
// their defaults. If the file doesn't exist, it is created with default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := writeDefault(path, cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func writeDefault(path string, cfg *Config) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write default config file: %w", err)
	}
	return nil
}

// Validate checks the values that cannot be corrected later by flags.
func (c *Config) Validate() error {
	if c.Model.Order < 1 {
		return fmt.Errorf("model.order must be at least 1, got %d", c.Model.Order)
	}
	switch c.Store.Backend {
	case "file", "sqlite", "redis":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Generate.Temperature < 0 {
		return fmt.Errorf("generate.temperature cannot be negative")
	}
	return nil
}
