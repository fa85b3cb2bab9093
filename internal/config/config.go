package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults for video sampling and scheduling.
const (
	DefaultTargetFPS        = 1
	DefaultMaxFrames        = 10
	DefaultFrameConcurrency = 3
)

// Config is the process-wide static configuration. It is read once at
// startup and never mutated afterwards, so it is safe to share across
// concurrent requests without locking.
type Config struct {
	TargetFPS        int
	MaxFrames        int
	FrameConcurrency int

	// Per-recognizer model overrides, keyed by recognizer key. Empty means
	// each backend's default model id.
	Models map[string]string

	OllamaURL string
}

// fileConfig is the optional YAML overlay loaded via --config.
type fileConfig struct {
	TargetFPS        *int              `yaml:"target_fps"`
	MaxFrames        *int              `yaml:"max_frames"`
	FrameConcurrency *int              `yaml:"frame_concurrency"`
	Models           map[string]string `yaml:"models"`
}

// Load builds the configuration from the environment, then applies the YAML
// overlay at path if one was given.
func Load(path string) (Config, error) {
	cfg := Config{
		TargetFPS:        envInt("EXTRACT_FPS", DefaultTargetFPS),
		MaxFrames:        envInt("EXTRACT_MAX_FRAMES", DefaultMaxFrames),
		FrameConcurrency: envInt("FRAME_CONCURRENCY", DefaultFrameConcurrency),
		Models:           map[string]string{},
		OllamaURL:        os.Getenv("OLLAMA_URL"),
	}

	for key, env := range map[string]string{
		"gemini_pro":   "GEMINI_PRO_MODEL",
		"gemini_flash": "GEMINI_FLASH_MODEL",
		"glm_4v":       "GLM_MODEL",
		"ollama":       "OLLAMA_MODEL",
	} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			cfg.Models[key] = v
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
		if fc.TargetFPS != nil {
			cfg.TargetFPS = *fc.TargetFPS
		}
		if fc.MaxFrames != nil {
			cfg.MaxFrames = *fc.MaxFrames
		}
		if fc.FrameConcurrency != nil {
			cfg.FrameConcurrency = *fc.FrameConcurrency
		}
		for k, v := range fc.Models {
			cfg.Models[k] = v
		}
	}

	if cfg.TargetFPS < 1 {
		return Config{}, fmt.Errorf("target fps must be positive, got %d", cfg.TargetFPS)
	}
	if cfg.MaxFrames < 1 {
		return Config{}, fmt.Errorf("max frames must be positive, got %d", cfg.MaxFrames)
	}
	if cfg.FrameConcurrency < 1 {
		return Config{}, fmt.Errorf("frame concurrency must be positive, got %d", cfg.FrameConcurrency)
	}

	return cfg, nil
}

// Model returns the configured model override for a recognizer key, or the
// given default.
func (c Config) Model(key, def string) string {
	if v, ok := c.Models[key]; ok && v != "" {
		return v
	}
	return def
}

func envInt(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
