// Package worker drives queued jobs through their workflows.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultPollInterval is used when Config.PollInterval is not set
const DefaultPollInterval = 5 * time.Second

// Config holds worker configuration
type Config struct {
	Logger    *slog.Logger
	Scheduler *Scheduler
	// Consumer is optional; without it the worker only polls
	Consumer     *Consumer
	PollInterval time.Duration
}

// Worker ticks the scheduler on a timer and whenever a job-enqueued
// message arrives
type Worker struct {
	logger       *slog.Logger
	scheduler    *Scheduler
	consumer     *Consumer
	pollInterval time.Duration

	wake     chan struct{}
	stopChan chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
	done     chan struct{}
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Worker{
		logger:       cfg.Logger,
		scheduler:    cfg.Scheduler,
		consumer:     cfg.Consumer,
		pollInterval: interval,
		wake:         make(chan struct{}, 1),
		stopChan:     make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Start runs the worker until ctx is canceled or Stop is called. A job that
// is running when that happens is allowed to finish.
func (w *Worker) Start(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return nil
	}
	defer close(w.done)

	w.logger.Info("Starting worker",
		slog.Duration("poll_interval", w.pollInterval),
		slog.Bool("consumer", w.consumer != nil),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case <-w.stopChan:
			cancel()
		case <-gctx.Done():
		}
		return nil
	})
	g.Go(func() error {
		w.loop(gctx)
		return nil
	})
	if w.consumer != nil {
		g.Go(func() error {
			return w.consumer.Run(gctx, w.Nudge)
		})
	}

	err := g.Wait()
	w.logger.Info("Worker stopped")
	return err
}

// Stop signals the worker to stop and waits for Start to return
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.stopOnce.Do(func() { close(w.stopChan) })
	if w.started.Load() {
		<-w.done
	}
}

// Nudge requests an immediate tick. Nudges arriving while one is pending
// are coalesced.
func (w *Worker) Nudge() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Worker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		w.tick(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-w.wake:
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	job, err := w.scheduler.Tick(ctx)
	if err != nil {
		w.logger.Error("Scheduler tick failed",
			slog.String("error", err.Error()),
		)
		return
	}
	// keep draining while the queue has work
	if job != nil {
		w.Nudge()
	}
}
