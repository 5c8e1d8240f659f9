package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	App      AppConfig      `yaml:"app"`
	Queue    QueueConfig    `yaml:"queue"`
	Media    MediaConfig    `yaml:"media"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Scorm    ScormConfig    `yaml:"scorm"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// QueueConfig holds job queue configuration
type QueueConfig struct {
	JobCooldown     time.Duration `yaml:"job_cooldown"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	CleanupMaxAge   time.Duration `yaml:"cleanup_max_age"`
}

// MediaConfig holds media storage and tooling configuration
type MediaConfig struct {
	// StorageDir is the root directory for uploaded and downloaded media.
	StorageDir string `yaml:"storage_dir"`
	// FFmpegPath and FFprobePath override PATH lookup when set.
	FFmpegPath  string `yaml:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path"`
}

// OpenAIConfig holds LLM provider configuration. The API key comes from the
// OPENAI_API_KEY environment variable, never from the config file.
type OpenAIConfig struct {
	BaseURL            string        `yaml:"base_url"`
	ChatModel          string        `yaml:"chat_model"`
	TranscriptionModel string        `yaml:"transcription_model"`
	Language           string        `yaml:"language"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`

	APIKey string `yaml:"-"`
}

// ScormConfig holds the course content API configuration
type ScormConfig struct {
	BaseURL string `yaml:"base_url"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnv()
	config.applyDefaults()

	return &config, nil
}

// applyEnv overlays secrets and operator overrides from the environment.
func (c *Config) applyEnv() {
	c.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")

	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("STORAGE_DIR"); v != "" {
		c.Media.StorageDir = v
	}
	if v := os.Getenv("FFMPEG_PATH"); v != "" {
		c.Media.FFmpegPath = v
	}
	if v := os.Getenv("SCORM_API_BASE_URL"); v != "" {
		c.Scorm.BaseURL = v
	}
}

func (c *Config) applyDefaults() {
	if c.Media.StorageDir == "" {
		c.Media.StorageDir = "storage"
	}
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if c.OpenAI.ChatModel == "" {
		c.OpenAI.ChatModel = "gpt-4o-mini"
	}
	if c.OpenAI.TranscriptionModel == "" {
		c.OpenAI.TranscriptionModel = "whisper-1"
	}
	if c.OpenAI.Language == "" {
		c.OpenAI.Language = "pt"
	}
	if c.OpenAI.RequestTimeout <= 0 {
		c.OpenAI.RequestTimeout = 90 * time.Second
	}
	if c.Queue.JobCooldown <= 0 {
		c.Queue.JobCooldown = time.Second
	}
	if c.Queue.CleanupInterval <= 0 {
		c.Queue.CleanupInterval = time.Hour
	}
	if c.Queue.CleanupMaxAge <= 0 {
		c.Queue.CleanupMaxAge = 24 * time.Hour
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Media.StorageDir == "" {
		return fmt.Errorf("media storage_dir is required")
	}

	// The OpenAI key is deliberately NOT validated here: jobs that need it
	// fail individually with a configuration error, and caption-only URL
	// jobs can run without it.

	return nil
}
