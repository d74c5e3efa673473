// Package app builds the components every binary shares from configuration.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/cuongbtq/launchloop/internal/activity"
	"github.com/cuongbtq/launchloop/internal/config"
	"github.com/cuongbtq/launchloop/internal/jobs"
	"github.com/cuongbtq/launchloop/internal/storage"
	"github.com/cuongbtq/launchloop/shared/database"
	"github.com/cuongbtq/launchloop/shared/logger"
	"github.com/cuongbtq/launchloop/shared/rabbitmq"
	"github.com/jmoiron/sqlx"
)

// NewLogger initializes the application logger
func NewLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
}

// OpenDatabase connects to the configured database and creates the schema
func OpenDatabase(ctx context.Context, cfg *config.DatabaseConfig, logger *slog.Logger) (*database.Client, error) {
	client, err := database.NewClient(&database.Config{
		Driver:          cfg.Driver,
		Path:            cfg.Path,
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := storage.Migrate(ctx, client.GetDB(), logger); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// NewRabbitMQ connects to RabbitMQ and declares the job topology
func NewRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	return rabbitmq.NewClient(&rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		RoutingKey:         cfg.RoutingKey,
		PrefetchCount:      cfg.Consumer.PrefetchCount,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}, logger)
}

// Stores groups the persistent stores
type Stores struct {
	Jobs        *storage.JobStore
	Projects    *storage.ProjectStore
	Activity    *storage.ActivityStore
	Experiments *storage.ExperimentStore
}

// NewStores creates every store over db
func NewStores(db *sqlx.DB, logger *slog.Logger) *Stores {
	return &Stores{
		Jobs:        storage.NewJobStore(db, logger),
		Projects:    storage.NewProjectStore(db, logger),
		Activity:    storage.NewActivityStore(db, logger),
		Experiments: storage.NewExperimentStore(db, logger),
	}
}

// NewService creates the job service. A nil notifier disables broker
// notifications.
func NewService(stores *Stores, notifier jobs.Notifier, logger *slog.Logger) *jobs.Service {
	return jobs.NewService(&jobs.Config{
		Logger:      logger,
		Jobs:        stores.Jobs,
		Projects:    stores.Projects,
		Experiments: stores.Experiments,
		Activity:    activity.NewLog(stores.Activity, logger),
		Notifier:    notifier,
	})
}
