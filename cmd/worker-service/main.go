package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/launchloop/internal/activity"
	"github.com/cuongbtq/launchloop/internal/adapters/github"
	"github.com/cuongbtq/launchloop/internal/adapters/vercel"
	"github.com/cuongbtq/launchloop/internal/app"
	"github.com/cuongbtq/launchloop/internal/config"
	"github.com/cuongbtq/launchloop/internal/vcs"
	"github.com/cuongbtq/launchloop/internal/worker"
	"github.com/cuongbtq/launchloop/internal/worker/workflow"
	"github.com/cuongbtq/launchloop/internal/workspace"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := app.NewLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()
	logger := appLogger.Logger

	logger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	dbClient, err := app.OpenDatabase(context.Background(), &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	stores := app.NewStores(dbClient.GetDB(), logger)
	activityLog := activity.NewLog(stores.Activity, logger)

	repoHost, err := github.NewClient(github.Config{
		Token:   cfg.GitHub.Token,
		Org:     cfg.GitHub.Org,
		BaseURL: cfg.GitHub.BaseURL,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize GitHub client: %w", err)
	}

	deployer := vercel.NewClient(vercel.Config{
		Token:   cfg.Vercel.Token,
		TeamID:  cfg.Vercel.TeamID,
		BaseURL: cfg.Vercel.BaseURL,
		Repos:   repoHost,
		Logger:  logger,
	})

	engine := workflow.NewEngine(&workflow.Config{
		Logger:   logger,
		RepoHost: repoHost,
		Deployer: deployer,
		VCS:      vcs.NewClient(vcs.Config{Token: cfg.GitHub.Token, Logger: logger}),
		Workspaces: workspace.NewManager(workspace.Config{
			Root:     cfg.Workspace.Root,
			SeedPath: cfg.Template.SeedPath,
			Excludes: cfg.Template.Excludes,
			Logger:   logger,
		}),
		Outputs:     stores.Jobs,
		Projects:    stores.Projects,
		Experiments: stores.Experiments,
		Activity:    activityLog,
		Author:      vcs.Identity{Name: cfg.Git.AuthorName, Email: cfg.Git.AuthorEmail},
	})

	scheduler := worker.NewScheduler(&worker.SchedulerConfig{
		Logger:     logger,
		Jobs:       stores.Jobs,
		Workflows:  engine,
		Activity:   activityLog,
		JobTimeout: cfg.Worker.JobTimeout,
	})

	var consumer *worker.Consumer
	if cfg.RabbitMQ.Enabled {
		rabbitClient, err := app.NewRabbitMQ(&cfg.RabbitMQ, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		defer rabbitClient.Close()

		tag := cfg.RabbitMQ.Consumer.Tag
		if tag == "" {
			host, _ := os.Hostname()
			tag = fmt.Sprintf("%s-%d", host, os.Getpid())
		}
		consumer = worker.NewConsumer(rabbitClient, tag, logger)
		logger.Info("RabbitMQ connection established")
	}

	workerInstance := worker.NewWorker(&worker.Config{
		Logger:       logger,
		Scheduler:    scheduler,
		Consumer:     consumer,
		PollInterval: cfg.Worker.PollInterval,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- workerInstance.Start(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		if err != nil {
			logger.Error("Worker error",
				slog.Any("error", err),
			)
		}
		return err
	}

	timeout := cfg.Worker.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	done := make(chan struct{})
	go func() {
		workerInstance.Stop()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Worker stopped gracefully")
	case <-time.After(timeout):
		logger.Warn("Worker shutdown timeout exceeded, forcing exit")
	}

	logger.Info("Worker service shutdown complete")
	return nil
}
