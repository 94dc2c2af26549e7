package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Audio         AudioConfig         `yaml:"audio"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Notes         NotesConfig         `yaml:"notes"`
	Merge         MergeConfig         `yaml:"merge"`
	LLM           LLMConfig           `yaml:"llm"`
	Slides        SlidesConfig        `yaml:"slides"`
	Storage       StorageConfig       `yaml:"storage"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
}

// AudioConfig contains audio capture and chunking parameters
type AudioConfig struct {
	SampleRate            int     `yaml:"sample_rate"`
	Channels              int     `yaml:"channels"`
	BitDepth              int     `yaml:"bit_depth"`
	ChunkDurationSeconds  float64 `yaml:"chunk_duration_seconds"`
	FinalizeIntervalMs    int     `yaml:"finalize_interval_ms"`
	QueueCapacity         int     `yaml:"queue_capacity"`
	SessionTimeoutSeconds int     `yaml:"session_timeout_seconds"`
}

// TranscriptionConfig contains transcription API configuration
type TranscriptionConfig struct {
	Endpoint      string `yaml:"endpoint"`
	APIKey        string `yaml:"api_key"`
	Timeout       int    `yaml:"timeout"` // seconds
	MaxRetries    int    `yaml:"max_retries"`
	MaxConcurrent int    `yaml:"max_concurrent"`
	Language      string `yaml:"language"`
	Model         string `yaml:"model"`
}

// NotesConfig contains live note synthesis configuration
type NotesConfig struct {
	WindowChunks   int `yaml:"window_chunks"`
	IntervalChunks int `yaml:"interval_chunks"`
}

// MergeConfig contains outline merge configuration
type MergeConfig struct {
	ScoreThreshold float64 `yaml:"score_threshold"`
}

// LLMConfig contains the LLM capability configuration used for
// synthesis, polishing and study material generation
type LLMConfig struct {
	APIKeys []string `yaml:"api_keys"`
	Model   string   `yaml:"model"`
	Timeout int      `yaml:"timeout"` // seconds
}

// SlidesConfig contains the slides inbox watcher configuration
type SlidesConfig struct {
	InboxDir     string `yaml:"inbox_dir"`
	WatchEnabled bool   `yaml:"watch_enabled"`
}

// StorageConfig contains persistence configuration
type StorageConfig struct {
	DBPath  string `yaml:"db_path"`
	DataDir string `yaml:"data_dir"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// ApplyDefaults fills in documented defaults for optional fields
func (c *Config) ApplyDefaults() {
	if c.Audio.ChunkDurationSeconds == 0 {
		c.Audio.ChunkDurationSeconds = 60
	}
	if c.Audio.FinalizeIntervalMs == 0 {
		c.Audio.FinalizeIntervalMs = 1000
	}
	if c.Audio.QueueCapacity == 0 {
		c.Audio.QueueCapacity = 16
	}
	if c.Audio.SessionTimeoutSeconds == 0 {
		c.Audio.SessionTimeoutSeconds = 3600
	}
	if c.Notes.WindowChunks == 0 {
		c.Notes.WindowChunks = 8
	}
	if c.Notes.IntervalChunks == 0 {
		c.Notes.IntervalChunks = 1
	}
	if c.Merge.ScoreThreshold == 0 {
		c.Merge.ScoreThreshold = 0.12
	}
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}

	if err := c.Notes.Validate(); err != nil {
		return fmt.Errorf("notes config: %w", err)
	}

	if err := c.Merge.Validate(); err != nil {
		return fmt.Errorf("merge config: %w", err)
	}

	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm config: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Port < 1 || h.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", h.Port)
	}

	if h.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate < 8000 {
		return fmt.Errorf("sample_rate must be at least 8000 Hz, got %d", a.SampleRate)
	}

	if a.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono), got %d", a.Channels)
	}

	if a.BitDepth != 16 {
		return fmt.Errorf("bit_depth must be 16, got %d", a.BitDepth)
	}

	if a.ChunkDurationSeconds <= 0 {
		return fmt.Errorf("chunk_duration_seconds must be positive, got %f", a.ChunkDurationSeconds)
	}

	if a.FinalizeIntervalMs < 100 {
		return fmt.Errorf("finalize_interval_ms must be at least 100, got %d", a.FinalizeIntervalMs)
	}

	if a.QueueCapacity < 1 {
		return fmt.Errorf("queue_capacity must be at least 1, got %d", a.QueueCapacity)
	}

	if a.SessionTimeoutSeconds < 1 {
		return fmt.Errorf("session_timeout_seconds must be at least 1, got %d", a.SessionTimeoutSeconds)
	}

	return nil
}

// Validate validates transcription configuration
func (t *TranscriptionConfig) Validate() error {
	if t.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if t.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", t.Timeout)
	}

	if t.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", t.MaxRetries)
	}

	if t.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", t.MaxConcurrent)
	}

	return nil
}

// Validate validates notes configuration
func (n *NotesConfig) Validate() error {
	if n.WindowChunks < 1 {
		return fmt.Errorf("window_chunks must be at least 1, got %d", n.WindowChunks)
	}

	if n.IntervalChunks < 1 {
		return fmt.Errorf("interval_chunks must be at least 1, got %d", n.IntervalChunks)
	}

	return nil
}

// Validate validates merge configuration
func (m *MergeConfig) Validate() error {
	if m.ScoreThreshold < 0 || m.ScoreThreshold > 1 {
		return fmt.Errorf("score_threshold must be between 0 and 1, got %f", m.ScoreThreshold)
	}

	return nil
}

// Validate validates LLM configuration
func (l *LLMConfig) Validate() error {
	if len(l.APIKeys) == 0 {
		return fmt.Errorf("at least one api key is required")
	}

	if l.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}

	if l.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", l.Timeout)
	}

	return nil
}

// Validate validates storage configuration
func (s *StorageConfig) Validate() error {
	if s.DBPath == "" {
		return fmt.Errorf("db_path cannot be empty")
	}

	if s.DataDir == "" {
		return fmt.Errorf("data_dir cannot be empty")
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetChunkDuration returns the chunk duration as a time.Duration
func (a *AudioConfig) GetChunkDuration() time.Duration {
	return time.Duration(a.ChunkDurationSeconds * float64(time.Second))
}

// GetFinalizeInterval returns the finalize poll interval as a time.Duration
func (a *AudioConfig) GetFinalizeInterval() time.Duration {
	return time.Duration(a.FinalizeIntervalMs) * time.Millisecond
}

// GetSessionTimeout returns the idle session timeout as a time.Duration
func (a *AudioConfig) GetSessionTimeout() time.Duration {
	return time.Duration(a.SessionTimeoutSeconds) * time.Second
}

// GetTimeoutDuration returns the transcription timeout as a time.Duration
func (t *TranscriptionConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}

// GetTimeoutDuration returns the LLM call timeout as a time.Duration
func (l *LLMConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(l.Timeout) * time.Second
}
