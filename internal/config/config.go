// Package config loads the senas service configuration from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Artifact storage backends.
const (
	SourceLocal = "local"
	SourceGCS   = "gcs"
	SourceS3    = "s3"
)

// Defaults applied by Default and Load.
const (
	DefaultAddr                = ":8000"
	DefaultModelFile           = "modelo_ia_senas.json"
	DefaultConfidenceThreshold = 0.2
	DefaultMaxBodyBytes        = 10 << 20
	DefaultMaxFramePixels      = 4096 * 4096
)

// Config is the top-level service configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Model   ModelConfig   `yaml:"model"`
	Emotion EmotionConfig `yaml:"emotion"`
	History HistoryConfig `yaml:"history"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr           string `yaml:"addr"`
	StaticDir      string `yaml:"static_dir"`
	MaxBodyBytes   int64  `yaml:"max_body_bytes"`
	MaxFramePixels int64  `yaml:"max_frame_pixels"`
}

// LogConfig selects the log level and output format ("text" or "json").
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ModelConfig locates the classifier artifact.
type ModelConfig struct {
	Source              string  `yaml:"source"`
	BaseDir             string  `yaml:"base_dir"`
	Path                string  `yaml:"path"`
	Bucket              string  `yaml:"bucket"`
	Object              string  `yaml:"object"`
	Region              string  `yaml:"region"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
}

// EmotionConfig configures the face and emotion detector.
type EmotionConfig struct {
	Enabled        bool     `yaml:"enabled"`
	CascadePath    string   `yaml:"cascade_path"`
	ModelPath      string   `yaml:"model_path"`
	RuntimeLibrary string   `yaml:"runtime_library"`
	InputName      string   `yaml:"input_name"`
	OutputName     string   `yaml:"output_name"`
	InputSize      int      `yaml:"input_size"`
	Labels         []string `yaml:"labels"`
	Softmax        bool     `yaml:"softmax"`
	MinFaceSize    int      `yaml:"min_face_size"`
}

// HistoryConfig enables the optional SQLite prediction history. An empty path disables it.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           DefaultAddr,
			MaxBodyBytes:   DefaultMaxBodyBytes,
			MaxFramePixels: DefaultMaxFramePixels,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Model: ModelConfig{
			Source:              SourceLocal,
			Path:                DefaultModelFile,
			ConfidenceThreshold: DefaultConfidenceThreshold,
		},
		Emotion: EmotionConfig{
			Enabled:     true,
			CascadePath: "models/haarcascade_frontalface_default.xml",
			ModelPath:   "models/emotion.onnx",
			InputName:   "input",
			OutputName:  "output",
			InputSize:   48,
			Labels:      []string{"angry", "disgust", "fear", "happy", "sad", "surprise", "neutral"},
			Softmax:     true,
			MinFaceSize: 30,
		},
	}
}

// Load reads the YAML file at path on top of the defaults, loads a .env file if
// present and applies SENAS_* environment overrides. A missing config file is not
// an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	// .env is optional
	_ = godotenv.Load()

	cfg.applyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from the environment using lookup.
func (c *Config) applyEnv(lookup func(string) string) {
	set := func(dst *string, key string) {
		if v := lookup(key); v != "" {
			*dst = v
		}
	}

	if port := lookup("PORT"); port != "" {
		c.Server.Addr = ":" + port
	}
	set(&c.Server.Addr, "SENAS_ADDR")
	set(&c.Server.StaticDir, "SENAS_STATIC_DIR")
	set(&c.Log.Level, "SENAS_LOG_LEVEL")
	set(&c.Log.Format, "SENAS_LOG_FORMAT")
	set(&c.Model.Source, "SENAS_MODEL_SOURCE")
	set(&c.Model.BaseDir, "SENAS_MODEL_BASE_DIR")
	set(&c.Model.Path, "SENAS_MODEL_PATH")
	set(&c.Model.Bucket, "SENAS_MODEL_BUCKET")
	set(&c.Model.Object, "SENAS_MODEL_OBJECT")
	set(&c.Model.Region, "SENAS_MODEL_REGION")
	set(&c.Emotion.RuntimeLibrary, "SENAS_ONNXRUNTIME_LIB")
	set(&c.History.Path, "SENAS_HISTORY_PATH")
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	switch c.Model.Source {
	case SourceLocal:
		if c.Model.Path == "" {
			return errors.New("model.path is required for the local source")
		}
	case SourceGCS, SourceS3:
		if c.Model.Bucket == "" || c.Model.Object == "" {
			return fmt.Errorf("model.bucket and model.object are required for the %s source", c.Model.Source)
		}
	default:
		return fmt.Errorf("unknown model source %q", c.Model.Source)
	}

	if c.Model.ConfidenceThreshold < 0 || c.Model.ConfidenceThreshold > 1 {
		return fmt.Errorf("model.confidence_threshold must be within [0, 1], got %v", c.Model.ConfidenceThreshold)
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}

	if c.Emotion.Enabled {
		if c.Emotion.InputSize <= 0 {
			return errors.New("emotion.input_size must be positive")
		}
		if len(c.Emotion.Labels) == 0 {
			return errors.New("emotion.labels must not be empty")
		}
	}

	return nil
}
