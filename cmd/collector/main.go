// Package main provides the entry point for the collector: scheduled pipelines plus
// the health and metrics HTTP surface.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/festy23/dora_collector/internal/apperr"
	appConfig "github.com/festy23/dora_collector/internal/config"
	dbConfig "github.com/festy23/dora_collector/internal/database/config"
	"github.com/festy23/dora_collector/internal/database/credential"
	"github.com/festy23/dora_collector/internal/database/database"
	"github.com/festy23/dora_collector/internal/database/migrate"
	deploymentService "github.com/festy23/dora_collector/internal/deployment/service"
	"github.com/festy23/dora_collector/internal/github"
	"github.com/festy23/dora_collector/internal/health"
	incidentService "github.com/festy23/dora_collector/internal/incident/service"
	"github.com/festy23/dora_collector/internal/middleware"
	"github.com/festy23/dora_collector/internal/pipeline"
	pullrequestService "github.com/festy23/dora_collector/internal/pullrequest/service"
	"github.com/festy23/dora_collector/internal/scheduler"
	statisticsService "github.com/festy23/dora_collector/internal/statistics/service"
	"github.com/festy23/dora_collector/pkg/logger"
)

func main() {
	cfg := appConfig.LoadFromEnv()

	log, err := logger.NewWithConfig(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Errorw("collector stopped with error", "kind", apperr.KindOf(err), "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig.Config, log *zap.SugaredLogger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	storeCfg := dbConfig.LoadConfigFromEnv()
	if err := storeCfg.Validate(); err != nil {
		return apperr.Wrap(apperr.ErrConfig, "database config", err)
	}

	connector := database.NewConnector(storeCfg, credential.FromConfig(storeCfg))
	if err := prepareStore(ctx, connector, storeCfg, log); err != nil {
		return err
	}

	client := github.NewClient(cfg.GitHub, log.Named("github"))
	tokens, err := github.NewAppTokenSource(client, cfg.GitHub)
	if err != nil {
		return err
	}
	stats := statisticsService.New(log.Named("statistics"))

	deployments := deploymentService.New(cfg.GitHub, client, tokens, connector, stats, log.Named("deployments"))
	pullRequests := pullrequestService.New(cfg.GitHub, client, tokens, connector, stats, log.Named("pull_requests"))
	incidents := incidentService.New(cfg.GitHub, client, tokens, connector, stats, log.Named("incidents"))

	runner := pipeline.NewRunner(pipeline.NewMetrics(prometheus.DefaultRegisterer), log)
	sched := scheduler.New(log.Named("scheduler"))

	jobs := []struct {
		name string
		spec string
		job  pipeline.Job
	}{
		{name: "deployments", spec: cfg.Schedule.Deployments, job: deployments.Run},
		{name: "pull_requests", spec: cfg.Schedule.PullRequests, job: pullRequests.Run},
		{name: "incidents", spec: cfg.Schedule.Incidents, job: incidents.Run},
	}
	for _, j := range jobs {
		j := j
		err := sched.Register(j.name, j.spec, func(ctx context.Context, pastDue bool) {
			// the runner logs the failure and counts it
			_ = runner.Run(ctx, j.name, pastDue, j.job)
		})
		if err != nil {
			return apperr.Wrap(apperr.ErrConfig, "schedule", err)
		}
	}

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(middleware.Recovery(log), middleware.Logger(log, "/health", "/metrics"), middleware.Metrics(prometheus.DefaultRegisterer))
	health.New().RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	server := &http.Server{
		Addr:         cfg.Server.GetAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("http server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	sched.Start(ctx)
	if cfg.Schedule.RunOnStart {
		sched.TriggerAll()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Infow("shutdown signal received")
	case err := <-serverErr:
		runErr = fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnw("http server shutdown failed", "error", err)
	}
	sched.Stop()

	log.Infow("collector stopped")
	return runErr
}

// prepareStore waits for the store, applies migrations and releases the connection.
// Pipelines open their own connections per run.
func prepareStore(ctx context.Context, connector database.Connector, cfg dbConfig.Config, log *zap.SugaredLogger) (err error) {
	db, err := database.WaitForStore(ctx, connector, dbConfig.LoadRetryConfigFromEnv(), log)
	if err != nil {
		return err
	}
	defer database.Release(db, &err, log)

	if err := migrate.Migrate(db, cfg.MigrationsPath, log); err != nil {
		return apperr.Wrap(apperr.ErrPersistence, "migrate", err)
	}
	return nil
}
