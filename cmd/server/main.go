package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"basegraph.app/ticketsmith/common/id"
	"basegraph.app/ticketsmith/common/llm"
	"basegraph.app/ticketsmith/common/logger"
	"basegraph.app/ticketsmith/common/otel"
	"basegraph.app/ticketsmith/core/config"
	"basegraph.app/ticketsmith/core/db"
	"basegraph.app/ticketsmith/internal/http/middleware"
	httprouter "basegraph.app/ticketsmith/internal/http/router"
	"basegraph.app/ticketsmith/internal/queue"
	"basegraph.app/ticketsmith/internal/service"
	"basegraph.app/ticketsmith/internal/service/document"
	"basegraph.app/ticketsmith/internal/service/issue_tracker"
	"basegraph.app/ticketsmith/internal/store"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "ticketsmith starting", "env", cfg.Env, "tracker", cfg.Tracker.Provider)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	llmClient, err := llm.New(llm.Config{
		APIKey:         cfg.OpenAI.APIKey,
		BaseURL:        cfg.OpenAI.BaseURL,
		Model:          cfg.OpenAI.Model,
		EmbeddingModel: cfg.OpenAI.EmbeddingModel,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create llm client", "error", err)
		os.Exit(1)
	}

	tracker, err := newTracker(cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create issue tracker", "error", err)
		os.Exit(1)
	}

	docs, err := document.NewConfluenceStore(document.ConfluenceConfig{
		BaseURL:  cfg.Atlassian.URL,
		Email:    cfg.Atlassian.Email,
		APIToken: cfg.Atlassian.APIToken,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create confluence client", "error", err)
		os.Exit(1)
	}

	runs := store.NewNoopRunStore()
	if cfg.DB.Enabled() {
		database, err := db.New(ctx, cfg.DB)
		if err != nil {
			slog.ErrorContext(ctx, "failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer database.Close()
		runs = store.NewRunStore(database)
		slog.InfoContext(ctx, "database connected, run ledger enabled")
	}

	progress := queue.NewNoopPublisher()
	if cfg.Redis.Enabled() {
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
			os.Exit(1)
		}

		redisClient := redis.NewClient(redisOpts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
			os.Exit(1)
		}
		progress = queue.NewRedisPublisher(redisClient, cfg.Redis.Stream, slog.Default())
		slog.InfoContext(ctx, "redis connected", "stream", cfg.Redis.Stream)
	}
	defer progress.Close()

	services := service.NewServices(
		llmClient,
		tracker,
		docs,
		runs,
		progress,
		service.DecompositionConfig{LinkTickets: cfg.Decompose.LinkTickets},
		slog.Default(),
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// a full decomposition run may take up to the request timeout
		WriteTimeout: cfg.HTTP.RequestTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func newTracker(cfg config.Config) (issue_tracker.IssueTracker, error) {
	switch cfg.Tracker.Provider {
	case config.TrackerGitLab:
		return issue_tracker.NewGitLabTracker(issue_tracker.GitLabConfig{
			BaseURL:  cfg.Tracker.GitLabURL,
			Token:    cfg.Tracker.GitLabToken,
			Projects: cfg.Tracker.GitLabProjects,
		})
	default:
		return issue_tracker.NewJiraTracker(issue_tracker.JiraConfig{
			BaseURL:     cfg.Atlassian.URL,
			Email:       cfg.Atlassian.Email,
			APIToken:    cfg.Atlassian.APIToken,
			BrowseURL:   cfg.Atlassian.BrowseURL,
			ImpactField: cfg.Atlassian.ImpactField,
			StoryType:   cfg.Atlassian.StoryType,
		})
	}
}

func setupRouter(cfg config.Config, services *service.Services) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger("/health"))

	httprouter.SetupRoutes(router, services, httprouter.RouterConfig{
		RequestTimeout: cfg.HTTP.RequestTimeout,
	})

	return router
}

const banner = `
+-------------------------------------------+
|  ticketsmith  ·  pages in, tickets out    |
+-------------------------------------------+
`
