// Package main is the entry point for the schedule worker.
//
// The worker consumes schedule requests from the broker, runs the aggregation,
// personalization, and assembly pipeline, stages the planning payload in the
// object stage, and submits the run to the external solver. Messages are
// committed only after a request is fully processed, so failures are
// redelivered.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"

	"schedassist/internal/assist"
	"schedassist/internal/broker"
	"schedassist/internal/config"
	"schedassist/internal/db"
	"schedassist/internal/external"
	"schedassist/internal/metrics"
	"schedassist/internal/similarity"
	"schedassist/internal/stage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on
// error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("schedule worker starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"topic", cfg.Kafka.ScheduleTopic,
		"group", cfg.Kafka.ScheduleGroup,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := newDBPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return fmt.Errorf("loading AWS configuration: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = &cfg.AWS.EndpointURL
			o.UsePathStyle = true
		}
	})
	objectStage := stage.NewObjectStage(s3Client, cfg.AWS.StageBucket, logger)

	cwClient := cloudwatch.NewFromConfig(awsCfg)
	publisher := metrics.NewPublisher(cwClient, cfg.Observability.MetricNamespace, logger)

	index, err := similarity.NewIndex(cfg.Search, logger)
	if err != nil {
		return fmt.Errorf("connecting to similarity index: %w", err)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	userAgent := "schedule-assist/" + cfg.Build.Version

	plannerBase := external.NewBaseClient(httpClient, "planner", external.DefaultRetryPolicy(), userAgent)
	solver := external.NewPlannerClient(plannerBase, cfg.Planner, cfg.Server.CallbackExternalURL+"/v1/solution")

	embedBase := external.NewBaseClient(httpClient, "embeddings", external.DefaultRetryPolicy(), userAgent)
	embedder := external.NewEmbeddingsClient(embedBase, cfg.Embeddings)

	events := db.NewEventRepository(pool)
	meetings := db.NewMeetingAssistRepository(pool)
	prefs := db.NewPreferencesRepository(pool)

	aggregator := assist.NewAggregator(events, meetings, prefs, logger)
	engine := assist.NewEngine(events, prefs, index, embedder, logger)
	assembler := assist.NewAssembler(prefs, objectStage, solver, logger)
	worker := assist.NewWorker(aggregator, engine, assembler, publisher, logger)

	consumer, err := broker.NewConsumer(cfg.Kafka, cfg.Kafka.ScheduleTopic, cfg.Kafka.ScheduleGroup, publisher, logger)
	if err != nil {
		return fmt.Errorf("creating broker consumer: %w", err)
	}
	defer consumer.Close()

	logger.Info("consuming schedule requests")
	if err := consumer.Run(ctx, worker.ProcessMessage); err != nil {
		return fmt.Errorf("consumer stopped: %w", err)
	}

	logger.Info("schedule worker stopped cleanly")
	return nil
}

// newDBPool builds a pgx connection pool from configuration and verifies
// connectivity before returning.
func newDBPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL.Unmask())
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// newLogger creates a structured slog.Logger for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}
