// Package config provides the Config struct and loader for .loopcheck.yaml
// configuration files, with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default values for configuration. These are the single source of truth —
// New() references them and no other code should duplicate them.
const (
	DefaultJudgeModel = "gpt-4o-mini"

	DefaultRedisURL    = "redis://localhost:6379"
	DefaultRedisPrefix = "loopless"

	DefaultWorkers  = 4
	DefaultRunLimit = 20
)

// Environment variables that override file configuration.
const (
	EnvJudgeModel  = "LOOPCHECK_MODEL"
	EnvRedisURL    = "REDIS_URL"
	EnvRedisPrefix = "REDIS_PREFIX"
)

// JudgeConfig holds LLM judge settings.
type JudgeConfig struct {
	Model string `yaml:"model,omitempty"`
}

// RedisConfig holds run store connection settings.
type RedisConfig struct {
	URL    string `yaml:"url,omitempty"`
	Prefix string `yaml:"prefix,omitempty"`
}

// EvalConfig holds evaluation execution parameters.
type EvalConfig struct {
	Workers  int `yaml:"workers,omitempty"`
	RunLimit int `yaml:"run_limit,omitempty"`
}

// Config is the top-level configuration loaded from .loopcheck.yaml.
type Config struct {
	Judge JudgeConfig `yaml:"judge,omitempty"`
	Redis RedisConfig `yaml:"redis,omitempty"`
	Eval  EvalConfig  `yaml:"eval,omitempty"`
}

// New returns a Config with all hard-coded defaults populated.
func New() *Config {
	return &Config{
		Judge: JudgeConfig{Model: DefaultJudgeModel},
		Redis: RedisConfig{
			URL:    DefaultRedisURL,
			Prefix: DefaultRedisPrefix,
		},
		Eval: EvalConfig{
			Workers:  DefaultWorkers,
			RunLimit: DefaultRunLimit,
		},
	}
}

// Load finds .loopcheck.yaml by walking up from startDir (max 10 levels),
// unmarshals it, fills in missing fields with defaults, and applies
// environment overrides last. If no config file is found, returns defaults
// with a nil error. Real I/O errors (e.g. permission denied) are returned to
// the caller.
func Load(startDir string) (*Config, error) {
	cfg := New()

	data, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("loading .loopcheck.yaml: %w", err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing .loopcheck.yaml: %w", err)
	}

	mergeConfig(cfg, &fileCfg)
	applyEnv(cfg)
	return cfg, nil
}

// findConfigFile walks up from dir looking for .loopcheck.yaml (max 10
// levels). Returns os.ErrNotExist if no config file is found. Propagates
// real I/O errors instead of silently swallowing them.
func findConfigFile(dir string) ([]byte, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, ".loopcheck.yaml")
		data, err := os.ReadFile(p)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return nil, os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *Config) {
	if src.Judge.Model != "" {
		dst.Judge.Model = src.Judge.Model
	}
	if src.Redis.URL != "" {
		dst.Redis.URL = src.Redis.URL
	}
	if src.Redis.Prefix != "" {
		dst.Redis.Prefix = src.Redis.Prefix
	}
	if src.Eval.Workers != 0 {
		dst.Eval.Workers = src.Eval.Workers
	}
	if src.Eval.RunLimit != 0 {
		dst.Eval.RunLimit = src.Eval.RunLimit
	}
}

// applyEnv overlays environment variables. Environment always wins over
// file values.
func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvJudgeModel); v != "" {
		cfg.Judge.Model = v
	}
	if v := os.Getenv(EnvRedisURL); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv(EnvRedisPrefix); v != "" {
		cfg.Redis.Prefix = v
	}
}
