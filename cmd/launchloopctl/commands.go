package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cuongbtq/launchloop/internal/app"
	"github.com/cuongbtq/launchloop/internal/config"
	"github.com/cuongbtq/launchloop/internal/domain"
	"github.com/cuongbtq/launchloop/internal/jobs"
	"github.com/cuongbtq/launchloop/internal/storage"
	"github.com/cuongbtq/launchloop/shared/database"
	"github.com/cuongbtq/launchloop/shared/logger"
	"github.com/spf13/cobra"
)

// ConfigEnv names the environment variable holding the default config path
const ConfigEnv = "LAUNCHLOOP_CONFIG_PATH"

type cli struct {
	configPath string
	db         *database.Client
	service    *jobs.Service
	closers    []func() error
}

func newRootCmd(c *cli) *cobra.Command {
	defaultConfig := os.Getenv(ConfigEnv)
	if defaultConfig == "" {
		defaultConfig = "configs/api-service/config.yaml"
	}

	root := &cobra.Command{
		Use:           "launchloopctl",
		Short:         "Operate the LaunchLoop job queue",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.open(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", defaultConfig, "Path to configuration file")

	root.AddCommand(
		c.enqueueCmd(),
		c.jobsCmd(),
		c.activityCmd(),
		c.experimentsCmd(),
		c.projectCmd(),
		c.pingCmd(),
	)
	return root
}

func (c *cli) open(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// stdout carries the JSON result
	log, err := logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	dbClient, err := app.OpenDatabase(ctx, &cfg.Database, log.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.db = dbClient
	c.closers = append(c.closers, dbClient.Close)

	var notifier jobs.Notifier
	if cfg.RabbitMQ.Enabled {
		rabbitClient, err := app.NewRabbitMQ(&cfg.RabbitMQ, log.Logger)
		if err != nil {
			// the worker still finds the job on its next poll
			log.Warn("RabbitMQ unavailable, jobs will be picked up by polling",
				slog.Any("error", err),
			)
		} else {
			c.closers = append(c.closers, rabbitClient.Close)
			notifier = jobs.NewBrokerNotifier(rabbitClient)
		}
	}

	c.service = app.NewService(app.NewStores(dbClient.GetDB(), log.Logger), notifier, log.Logger)
	return nil
}

// execute runs the command line in args and releases every connection the
// command opened, including on failure.
func execute(ctx context.Context, args []string) error {
	c := &cli{}
	root := newRootCmd(c)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if closeErr := c.close(); err == nil {
		err = closeErr
	}
	return err
}

func (c *cli) close() error {
	var firstErr error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.closers = nil
	return firstErr
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) enqueueCmd() *cobra.Command {
	var payload string
	cmd := &cobra.Command{
		Use:   "enqueue TYPE PROJECT_ID",
		Short: "Submit a job",
		Long:  "Submit a job of TYPE for PROJECT_ID. TYPE is one of " + jobTypeList() + ".",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := c.service.Submit(cmd.Context(), jobs.SubmitRequest{
				Type:      args[0],
				ProjectID: args[1],
				Payload:   json.RawMessage(payload),
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, job)
		},
	}
	cmd.Flags().StringVarP(&payload, "payload", "p", "", "Job payload as a JSON object")
	return cmd
}

func jobTypeList() string {
	var out string
	for i, t := range domain.JobTypes() {
		if i > 0 {
			out += ", "
		}
		out += string(t)
	}
	return out
}

func (c *cli) jobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and resubmit jobs",
	}

	show := &cobra.Command{
		Use:   "show JOB_ID",
		Short: "Show a job with its summary and output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := c.service.GetJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, job)
		},
	}

	var status string
	var pageSize int
	list := &cobra.Command{
		Use:   "list PROJECT_ID",
		Short: "List a project's jobs, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := storage.JobFilter{ProjectID: args[0], PageSize: pageSize}
			if status != "" {
				s, err := domain.ParseJobStatus(status)
				if err != nil {
					return err
				}
				filter.Status = s
			}
			page, err := c.service.ListJobs(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if page == nil {
				page = []*domain.Job{}
			}
			return printJSON(cmd, page)
		},
	}
	list.Flags().StringVarP(&status, "status", "s", "", "Filter by status (queued, running, succeeded, failed)")
	list.Flags().IntVarP(&pageSize, "limit", "n", 20, "Maximum number of jobs")

	var force bool
	resubmit := &cobra.Command{
		Use:   "resubmit JOB_ID",
		Short: "Enqueue a failed job again as a new job",
		Long: "Enqueue a failed job again as a new job. With --force a job left in running " +
			"is first marked failed; only use it when no worker is executing the job.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if force {
				prev, err := c.service.GetJob(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if prev.Status == domain.JobStatusRunning {
					if _, err := c.service.RecoverStuck(cmd.Context(), prev.ID); err != nil {
						return err
					}
				}
			}
			job, err := c.service.Resubmit(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, job)
		},
	}

	resubmit.Flags().BoolVar(&force, "force", false, "Recover a job stuck in running before resubmitting")

	cmd.AddCommand(show, list, resubmit)
	return cmd
}

func (c *cli) activityCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "activity PROJECT_ID",
		Short: "Show a project's newest activity events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := c.service.ListActivity(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if events == nil {
				events = []*domain.ActivityEvent{}
			}
			return printJSON(cmd, events)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of events (default 100)")
	return cmd
}

func (c *cli) experimentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "experiments PROJECT_ID",
		Short: "List a project's experiments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exps, err := c.service.ListExperiments(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if exps == nil {
				exps = []*domain.Experiment{}
			}
			return printJSON(cmd, exps)
		},
	}
}

func (c *cli) projectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Create and inspect projects",
	}

	var funnel, brief string
	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a project from a brief",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var b domain.Brief
			if err := json.Unmarshal([]byte(brief), &b); err != nil {
				return domain.NewValidationError("brief", "brief must be a JSON object")
			}
			p, err := c.service.CreateProject(cmd.Context(), domain.NewProject{
				Name:            args[0],
				Brief:           b,
				FunnelArchetype: funnel,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, p)
		},
	}
	create.Flags().StringVarP(&funnel, "funnel", "f", domain.FunnelSingleCTA, "Funnel archetype")
	create.Flags().StringVarP(&brief, "brief", "b", "", "Product brief as a JSON object")
	_ = create.MarkFlagRequired("brief")

	show := &cobra.Command{
		Use:   "show PROJECT_ID",
		Short: "Show a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.service.GetProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, p)
		},
	}

	cmd.AddCommand(create, show)
	return cmd
}

func (c *cli) pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check the database connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.db.HealthCheck(cmd.Context()); err != nil {
				return err
			}
			return printJSON(cmd, map[string]bool{"ok": true})
		},
	}
}
