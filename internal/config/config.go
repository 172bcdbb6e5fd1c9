// ABOUTME: YAML configuration with environment overrides
// ABOUTME: Shared by the whisperprep CLI and server
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Resonate-Protocol/whisperprep/pkg/audio"
)

// Config is the complete whisperprep configuration
type Config struct {
	Audio   AudioConfig   `yaml:"audio"`
	Engine  EngineConfig  `yaml:"engine"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// AudioConfig controls decoding and conversion
type AudioConfig struct {
	// SampleRate is informational, output is always 16 kHz
	SampleRate  int           `yaml:"sample_rate"`
	SlotTimeout time.Duration `yaml:"slot_timeout"`
	FFmpegPath  string        `yaml:"ffmpeg_path"`
	FFprobePath string        `yaml:"ffprobe_path"`
	KeepWAV     bool          `yaml:"keep_wav"`
}

// EngineConfig points at a whisper.cpp compatible inference server
type EngineConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
	Language     string        `yaml:"language"`
	Temperature  float32       `yaml:"temperature"`
}

// ServerConfig controls the job server
type ServerConfig struct {
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	MDNS     bool   `yaml:"mdns"`
	InputDir string `yaml:"input_dir"`
	WorkDir  string `yaml:"work_dir"`
	MaxQueue int    `yaml:"max_queue"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	Debug      bool   `yaml:"debug"`
}

// Default returns the built-in configuration
func Default() *Config {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "whisperprep"
	}

	return &Config{
		Audio: AudioConfig{
			SampleRate:  audio.TargetSampleRate,
			SlotTimeout: 10 * time.Millisecond,
			FFmpegPath:  "ffmpeg",
			FFprobePath: "ffprobe",
		},
		Engine: EngineConfig{
			Endpoint:     "http://127.0.0.1:8080",
			Timeout:      120 * time.Second,
			MaxRetries:   3,
			RetryBackoff: time.Second,
		},
		Server: ServerConfig{
			Port:     8927,
			Name:     hostname + "-whisperprep",
			MDNS:     true,
			InputDir: ".",
			WorkDir:  os.TempDir(),
			MaxQueue: 64,
		},
		Logging: LoggingConfig{
			File:       "whisperprep.log",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}

func (c *Config) applyEnv() {
	c.Audio.FFmpegPath = envStr("WHISPERPREP_FFMPEG", c.Audio.FFmpegPath)
	c.Audio.FFprobePath = envStr("WHISPERPREP_FFPROBE", c.Audio.FFprobePath)
	c.Audio.SlotTimeout = envDuration("WHISPERPREP_SLOT_TIMEOUT", c.Audio.SlotTimeout)

	c.Engine.Endpoint = envStr("WHISPERPREP_ENGINE_URL", c.Engine.Endpoint)
	c.Engine.Timeout = envDuration("WHISPERPREP_ENGINE_TIMEOUT", c.Engine.Timeout)
	c.Engine.MaxRetries = envInt("WHISPERPREP_ENGINE_RETRIES", c.Engine.MaxRetries)
	c.Engine.Language = envStr("WHISPERPREP_LANGUAGE", c.Engine.Language)

	c.Server.Port = envInt("WHISPERPREP_PORT", c.Server.Port)
	c.Server.Name = envStr("WHISPERPREP_NAME", c.Server.Name)
	c.Server.InputDir = envStr("WHISPERPREP_INPUT_DIR", c.Server.InputDir)
	c.Server.WorkDir = envStr("WHISPERPREP_WORK_DIR", c.Server.WorkDir)

	c.Logging.File = envStr("WHISPERPREP_LOG_FILE", c.Logging.File)
}

// Validate checks every section
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine config: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate != 0 && a.SampleRate != audio.TargetSampleRate {
		return fmt.Errorf("sample_rate is fixed at %d Hz, got %d", audio.TargetSampleRate, a.SampleRate)
	}
	if a.SlotTimeout < 0 {
		return fmt.Errorf("slot_timeout cannot be negative, got %v", a.SlotTimeout)
	}
	return nil
}

// Validate validates engine configuration
func (e *EngineConfig) Validate() error {
	if e.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}
	if e.Timeout < time.Second {
		return fmt.Errorf("timeout must be at least 1s, got %v", e.Timeout)
	}
	if e.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", e.MaxRetries)
	}
	if e.Temperature < 0 || e.Temperature > 1 {
		return fmt.Errorf("temperature must be between 0 and 1, got %f", e.Temperature)
	}
	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}
	if s.Name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if s.MaxQueue < 1 {
		return fmt.Errorf("max_queue must be at least 1, got %d", s.MaxQueue)
	}
	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	if l.MaxSizeMB < 0 || l.MaxBackups < 0 {
		return fmt.Errorf("max_size_mb and max_backups cannot be negative")
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
