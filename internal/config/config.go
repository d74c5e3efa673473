package config

import (
	"errors"
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

// Defaults applied after parsing
const (
	DefaultPollInterval = 5 * time.Second
	DefaultAuthorName   = "LaunchLoop Bot"
	DefaultAuthorEmail  = "bot@launchloop.local"
	DefaultWorkspace    = "workspaces"
)

// Config represents the complete application configuration
type Config struct {
	App       AppConfig       `yaml:"app"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	RabbitMQ  RabbitMQConfig  `yaml:"rabbitmq"`
	Logging   LoggingConfig   `yaml:"logging"`
	Worker    WorkerConfig    `yaml:"worker"`
	Auth      AuthConfig      `yaml:"auth"`
	GitHub    GitHubConfig    `yaml:"github"`
	Vercel    VercelConfig    `yaml:"vercel"`
	Template  TemplateConfig  `yaml:"template"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Git       GitConfig       `yaml:"git"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds database connection configuration. Driver is
// "postgres" (default) or "sqlite3"; sqlite3 only uses Path.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	Path            string        `yaml:"path"`
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

// RabbitMQConfig holds RabbitMQ connection and exchange/queue configuration
type RabbitMQConfig struct {
	Enabled    bool             `yaml:"enabled"`
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Queue      QueueConfig      `yaml:"queue"`
	RoutingKey string           `yaml:"routing_key"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
	Consumer   ConsumerConfig   `yaml:"consumer"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Durable bool   `yaml:"durable"`
}

// QueueConfig holds RabbitMQ queue configuration
type QueueConfig struct {
	Name    string `yaml:"name"`
	Durable bool   `yaml:"durable"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	Heartbeat     time.Duration `yaml:"heartbeat"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// ConsumerConfig holds RabbitMQ consumer settings
type ConsumerConfig struct {
	Tag           string `yaml:"tag"`
	PrefetchCount int    `yaml:"prefetch_count"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// WorkerConfig holds worker service configuration
type WorkerConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	// JobTimeout of zero lets a job run as long as it needs
	JobTimeout      time.Duration `yaml:"job_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AuthConfig holds inbound API authentication
type AuthConfig struct {
	SharedSecret string `yaml:"shared_secret"`
}

// GitHubConfig holds repo-hosting credentials
type GitHubConfig struct {
	Token   string `yaml:"token"`
	Org     string `yaml:"org"`
	BaseURL string `yaml:"base_url"`
}

// VercelConfig holds deployment platform credentials
type VercelConfig struct {
	Token   string `yaml:"token"`
	TeamID  string `yaml:"team_id"`
	BaseURL string `yaml:"base_url"`
}

// TemplateConfig points at the landing-page seed tree
type TemplateConfig struct {
	SeedPath string   `yaml:"seed_path"`
	Excludes []string `yaml:"excludes"`
}

// WorkspaceConfig holds the root of per-project working directories
type WorkspaceConfig struct {
	Root string `yaml:"root"`
}

// GitConfig holds the commit author identity
type GitConfig struct {
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Load reads and parses the configuration file. ${VAR} references are
// expanded from the environment before parsing.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Worker.PollInterval <= 0 {
		c.Worker.PollInterval = DefaultPollInterval
	}
	if c.Workspace.Root == "" {
		c.Workspace.Root = DefaultWorkspace
	}
	if c.Git.AuthorName == "" {
		c.Git.AuthorName = DefaultAuthorName
	}
	if c.Git.AuthorEmail == "" {
		c.Git.AuthorEmail = DefaultAuthorEmail
	}
	if c.RabbitMQ.Consumer.PrefetchCount <= 0 {
		c.RabbitMQ.Consumer.PrefetchCount = 1
	}
}

// Validate checks the settings shared by every service
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" {
			return errors.New("database host is required")
		}
		if c.Database.Port < MinPort || c.Database.Port > MaxPort {
			return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
		}
		if c.Database.Database == "" {
			return errors.New("database name is required")
		}
	case "sqlite3":
		if c.Database.Path == "" {
			return errors.New("database path is required for sqlite3")
		}
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}

	if c.RabbitMQ.Enabled {
		if c.RabbitMQ.Host == "" {
			return errors.New("rabbitmq host is required")
		}
		if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
			return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
		}
		if c.RabbitMQ.Exchange.Name == "" {
			return errors.New("rabbitmq exchange name is required")
		}
		if c.RabbitMQ.Queue.Name == "" {
			return errors.New("rabbitmq queue name is required")
		}
	}

	return nil
}

// ValidateAPIConfig checks the API service settings
func (c *Config) ValidateAPIConfig() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.Auth.SharedSecret == "" {
		return errors.New("auth shared_secret is required")
	}

	return nil
}

// ValidateWorkerConfig checks the worker service settings
func (c *Config) ValidateWorkerConfig() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.Worker.JobTimeout < 0 {
		return errors.New("worker job_timeout must not be negative")
	}

	if c.GitHub.Token == "" {
		return errors.New("github token is required")
	}

	if c.Vercel.Token == "" {
		return errors.New("vercel token is required")
	}

	if c.Template.SeedPath == "" {
		return errors.New("template seed_path is required")
	}

	return nil
}
