package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/job-tracker/internal/auth"
	"github.com/justsurfingit/job-tracker/internal/config"
	"github.com/justsurfingit/job-tracker/internal/database"
	"github.com/justsurfingit/job-tracker/internal/extractor"
	"github.com/justsurfingit/job-tracker/internal/handlers"
	"github.com/justsurfingit/job-tracker/internal/middleware"
	"github.com/justsurfingit/job-tracker/internal/services"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and, when configured, the Gmail watcher",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	log.Info("starting the job tracker", zap.String("port", cfg.Server.Port))

	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		return err
	}
	defer database.Close(db)

	llmService, err := services.NewLLMService(ctx, cfg.LLM, log)
	if err != nil {
		return err
	}
	engine := llmService.NewMatchEngine()
	jobService := services.NewJobService(db)

	var limiter *middleware.LimiterManager
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewLimiterManager(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
		defer limiter.Close()
	}

	gin.SetMode(gin.ReleaseMode)
	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	}

	jobHandler := handlers.NewJobHandler(jobService, engine, llmService, extractor.Extractor{}, cfg.Server.MaxUploadBytes, log)
	router := handlers.NewRouter(jobHandler, engine, handlers.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Limiter:        limiter,
		Logger:         log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout,
	}

	var wg sync.WaitGroup
	startWatcher(ctx, &wg, db, jobService, llmService, cfg.Gmail, log)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("match_mode", engine.Mode()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	wg.Wait()
	return err
}

// startWatcher runs the Gmail watcher in the background when enabled. A
// missing token only disables the watcher.
func startWatcher(ctx context.Context, wg *sync.WaitGroup, db *gorm.DB, jobs *services.JobService,
	llm *services.LLMService, cfg config.GmailConfig, log *zap.Logger) {
	if !cfg.Enabled {
		log.Debug("gmail watcher disabled by configuration")
		return
	}

	if !llm.Available() {
		log.Warn("gmail watcher disabled, emails cannot be classified without a language model")
		return
	}

	client, err := auth.NewGmailService(ctx, cfg)
	if err != nil {
		log.Warn("gmail watcher disabled", zap.Error(err))
		return
	}

	watcher := services.NewEmailService(db, jobs, llm, services.NewMatcherService(jobs), client, cfg, log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		watcher.StartWatcher(ctx)
	}()
}
