package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segyhp/loanlink/internal/config"
	"github.com/segyhp/loanlink/internal/notifier"
	"github.com/segyhp/loanlink/pkg/logger"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.GetLogFormat())
	log.Info("Starting notification scheduler...")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// The relay always sends by email; queuing again would loop.
	mailer := notifier.NewEmailNotifier(cfg.Notifier, cfg.Server.AppURL, nil, log)
	if !mailer.Configured() {
		log.Warn("email not configured, queued notifications will be dead-lettered after their attempts run out")
	}
	relay := notifier.NewRelay(redisClient, mailer, cfg.Notifier.OutboxKey,
		cfg.Notifier.MaxAttempts, cfg.Scheduler.OutboxBatchSize, log)

	// Initialize cron scheduler
	// A relay pass must not overlap the previous one.
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(cfg.GetSchedulerLocation()),
		cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log))),
	)

	// Schedule tasks
	if err := setupCronJobs(c, cfg, relay, log); err != nil {
		log.Fatalf("Error scheduling jobs: %v", err)
	}

	// Start the scheduler
	c.Start()
	log.Info("Scheduler started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down scheduler...")
	<-c.Stop().Done()
	log.Info("Scheduler stopped")
}

func setupCronJobs(c *cron.Cron, cfg *config.Config, relay *notifier.Relay, log *logrus.Logger) error {
	// Outbox relay (every minute by default)
	_, err := c.AddFunc(cfg.Scheduler.OutboxRelaySpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		stats, err := relay.Drain(ctx)
		if err != nil {
			log.WithError(err).Error("Outbox relay failed")
			return
		}
		if stats != (notifier.RelayStats{}) {
			log.WithFields(logrus.Fields{
				"sent":          stats.Sent,
				"requeued":      stats.Requeued,
				"dead_lettered": stats.DeadLettered,
			}).Info("Outbox relay pass finished")
		}
	})
	if err != nil {
		return err
	}

	// Hourly backlog report
	_, err = c.AddFunc(cfg.Scheduler.OutboxReportSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		pending, dead, err := relay.Backlog(ctx)
		if err != nil {
			log.WithError(err).Error("Outbox backlog check failed")
			return
		}
		entry := log.WithFields(logrus.Fields{"pending": pending, "dead_lettered": dead})
		if dead > 0 {
			entry.Warn("Outbox has dead-lettered notifications")
			return
		}
		entry.Info("Outbox backlog")
	})
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"relay":  cfg.Scheduler.OutboxRelaySpec,
		"report": cfg.Scheduler.OutboxReportSpec,
	}).Info("Cron jobs scheduled successfully")
	return nil
}
