package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/rsd-team/rsd-service/internal/config"
	"github.com/rsd-team/rsd-service/internal/github"
	"github.com/rsd-team/rsd-service/internal/llm"
	"github.com/rsd-team/rsd-service/internal/notify"
	"github.com/rsd-team/rsd-service/internal/pdfgen"
	"github.com/rsd-team/rsd-service/internal/repository/postgres"
	"github.com/rsd-team/rsd-service/internal/service"
	myhttp "github.com/rsd-team/rsd-service/internal/transport/http"

	"github.com/rsd-team/rsd-service/pkg/logger/slogpretty"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	log := slogpretty.SetupLogger(cfg.Env)

	log.Info("starting rsd-service",
		slog.String("env", cfg.Env),
		slog.Int("projects", cfg.Projects.Len()),
	)

	errChan := make(chan error, 1)

	db, err := postgres.NewDB(cfg.Postgres)
	if err != nil {
		return fmt.Errorf("failed to init db: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("db close failed", slog.String("error", err.Error()))
		}
	}()

	repo := postgres.NewReportRepository(db, log)

	reportService := service.NewReportService(log, repo, cfg.Projects)

	ghClient := github.NewClient(log, cfg.GitHubToken)
	insights := github.NewBuilder(log, ghClient, cfg.Projects, cfg.MilestoneURLs)
	summarizer := llm.NewSummarizer(log, cfg.LLM)
	renderer := pdfgen.NewRenderer(log, cfg.DataDir)

	var titles service.TitleResolver
	if cfg.GitHubToken != "" {
		titles = ghClient
	}

	generateService := service.NewGenerateService(log, repo, cfg.Projects, insights, summarizer, renderer, titles)

	notifier := notify.NewNotifier(log, notify.NewSender(log), cfg.Projects, cfg.Channels, generateService, cfg.BaseURL)

	scheduler := notify.NewScheduler(log, notifier, cfg.Channels)
	scheduler.Start()
	defer scheduler.Stop()

	srv := myhttp.NewServer(log, reportService, generateService, notifier, cfg.Projects, db, cfg.BaseURL, cfg.DataDir)
	httpServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: cfg.Server.Timeout,
	}

	go startServer(log, httpServer, errChan)

	select {
	case err := <-errChan:
		return fmt.Errorf("http server error: %v", err)

	case <-ctx.Done():
		log.Info("stopping server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error shutting down http server: %v", err)
	}

	return nil
}

func startServer(log *slog.Logger, httpServer *http.Server, errChan chan error) {
	defer close(errChan)

	log.Info("service started", slog.String("addr", httpServer.Addr))

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		errChan <- fmt.Errorf("error listening and serving: %v", err)
	}
}
