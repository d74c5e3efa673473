package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("LAUNCHLOOP_TEST_DB_PASSWORD", "pg-pass")
	t.Setenv("LAUNCHLOOP_TEST_GITHUB_TOKEN", "ghp_token")

	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
		check     func(t *testing.T, cfg *Config)
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "postgres", cfg.Database.Driver)
				assert.Equal(t, "pg-pass", cfg.Database.Password)
				assert.Equal(t, "ghp_token", cfg.GitHub.Token)
				assert.Equal(t, "launchloop.jobs", cfg.RabbitMQ.Queue.Name)
				assert.True(t, cfg.RabbitMQ.Enabled)
				assert.Equal(t, 10*time.Minute, cfg.Worker.JobTimeout)
				assert.Equal(t, []string{"*.log"}, cfg.Template.Excludes)

				assert.Equal(t, DefaultPollInterval, cfg.Worker.PollInterval)
				assert.Equal(t, DefaultAuthorName, cfg.Git.AuthorName)
				assert.Equal(t, DefaultWorkspace, cfg.Workspace.Root)
				assert.Equal(t, 1, cfg.RabbitMQ.Consumer.PrefetchCount)
			},
		},
		{
			name:     "sqlite config keeps explicit values",
			filePath: "testdata/sqlite_config.yaml",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "sqlite3", cfg.Database.Driver)
				assert.Equal(t, 2*time.Second, cfg.Worker.PollInterval)
				assert.Equal(t, "Release Bot", cfg.Git.AuthorName)
				assert.Equal(t, DefaultAuthorEmail, cfg.Git.AuthorEmail)
				assert.Zero(t, cfg.Worker.JobTimeout)
			},
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func validConfig() *Config {
	cfg := &Config{
		Server: ServerConfig{Port: 8080},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "launchloop",
		},
		RabbitMQ: RabbitMQConfig{
			Enabled:  true,
			Host:     "localhost",
			Port:     5672,
			Exchange: ExchangeConfig{Name: "launchloop"},
			Queue:    QueueConfig{Name: "launchloop.jobs"},
		},
		Auth:     AuthConfig{SharedSecret: "s3cret"},
		GitHub:   GitHubConfig{Token: "ghp"},
		Vercel:   VercelConfig{Token: "vt"},
		Template: TemplateConfig{SeedPath: "./seed"},
	}
	cfg.applyDefaults()
	return cfg
}

func TestConfig_ValidateAPIConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		errString string
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{
			name:      "invalid server port",
			mutate:    func(c *Config) { c.Server.Port = 70000 },
			errString: "invalid server port",
		},
		{
			name:      "missing database host",
			mutate:    func(c *Config) { c.Database.Host = "" },
			errString: "database host is required",
		},
		{
			name:      "sqlite without path",
			mutate:    func(c *Config) { c.Database.Driver = "sqlite3" },
			errString: "database path is required",
		},
		{
			name:      "unsupported driver",
			mutate:    func(c *Config) { c.Database.Driver = "mysql" },
			errString: "unsupported database driver",
		},
		{
			name:      "missing queue name",
			mutate:    func(c *Config) { c.RabbitMQ.Queue.Name = "" },
			errString: "rabbitmq queue name is required",
		},
		{
			name: "rabbitmq disabled skips its checks",
			mutate: func(c *Config) {
				c.RabbitMQ = RabbitMQConfig{}
			},
		},
		{
			name:      "missing shared secret",
			mutate:    func(c *Config) { c.Auth.SharedSecret = "" },
			errString: "shared_secret is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateAPIConfig()
			if tt.errString == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errString)
		})
	}
}

func TestConfig_ValidateWorkerConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		errString string
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{
			name:      "negative job timeout",
			mutate:    func(c *Config) { c.Worker.JobTimeout = -time.Second },
			errString: "job_timeout must not be negative",
		},
		{
			name:      "missing github token",
			mutate:    func(c *Config) { c.GitHub.Token = "" },
			errString: "github token is required",
		},
		{
			name:      "missing vercel token",
			mutate:    func(c *Config) { c.Vercel.Token = "" },
			errString: "vercel token is required",
		},
		{
			name:      "missing seed path",
			mutate:    func(c *Config) { c.Template.SeedPath = "" },
			errString: "seed_path is required",
		},
		{
			name: "server and auth are not needed",
			mutate: func(c *Config) {
				c.Server.Port = 0
				c.Auth.SharedSecret = ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateWorkerConfig()
			if tt.errString == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errString)
		})
	}
}
