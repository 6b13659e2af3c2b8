package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kyanzach/HGF-Connect-V2-sub001/background"
	"github.com/kyanzach/HGF-Connect-V2-sub001/config"
	"github.com/kyanzach/HGF-Connect-V2-sub001/database"
	"github.com/kyanzach/HGF-Connect-V2-sub001/handlers"
	"github.com/kyanzach/HGF-Connect-V2-sub001/logging"
	"github.com/kyanzach/HGF-Connect-V2-sub001/marketplace"
	"github.com/kyanzach/HGF-Connect-V2-sub001/middleware"
	"github.com/kyanzach/HGF-Connect-V2-sub001/notify"
	"github.com/kyanzach/HGF-Connect-V2-sub001/storage"
	"github.com/kyanzach/HGF-Connect-V2-sub001/storage/postgres"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env file not found, using system environment")
	} else {
		fmt.Println("✅ .env file loaded and applied")
	}
	cfg := config.Load()

	logger, err := logging.InitLogger(cfg.IsRelease(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("❌ logger init failed: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.InitDB(ctx, cfg); err != nil {
		logger.Fatal("❌ database connection failed", zap.Error(err))
	}
	defer database.CloseDB()

	store := postgres.New(database.SQL())
	runner := background.NewRunner(logger, cfg.EffectTimeout)
	svc := marketplace.NewService(store, runner, buildNotifier(cfg, store, logger), logger, marketplace.Options{
		PublicBaseURL:   cfg.PublicBaseURL,
		FingerprintSalt: cfg.FingerprintSalt,
	})

	if cfg.IsRelease() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logger))
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logger.Fatal("❌ invalid TRUSTED_PROXIES", zap.Error(err))
	}
	r.Use(middleware.SetupCORS(cfg))

	limiter := middleware.NewRateLimiter(cfg.PublicRateLimit, cfg.PublicRateBurst, logger)
	limiter.StartCleanup(ctx, time.Minute)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthHandler(store))
		handlers.NewMarketplaceAPI(svc, logger).Register(api.Group("/marketplace"), cfg, limiter)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("🚀 HGF Connect marketplace starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		logger.Info(fmt.Sprintf("📡 API Health http://localhost:%s/api/health", cfg.Port))
		logger.Info(fmt.Sprintf("📊 Metrics http://localhost:%s/metrics", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("❌ server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("🛑 shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	// Let in-flight notifications and impressions finish before the pool closes.
	if err := runner.Wait(shutdownCtx); err != nil {
		logger.Warn("background effects still running at shutdown", zap.Error(err))
	}
	logger.Info("✅ server stopped")
}

// buildNotifier assembles the delivery chain: Telegram, then e-mail, then the
// log as a last resort.
func buildNotifier(cfg *config.Config, members storage.Store, logger *zap.Logger) notify.Notifier {
	if !cfg.NotifyEnabled {
		return notify.Nop{}
	}

	var sinks []notify.Sink
	if cfg.TelegramBotToken != "" {
		tg, err := notify.NewTelegramSink(cfg.TelegramBotToken)
		if err != nil {
			logger.Warn("⚠️ telegram notifications disabled", zap.Error(err))
		} else {
			sinks = append(sinks, tg)
		}
	}
	if cfg.SMTPHost != "" && cfg.EmailFrom != "" {
		sinks = append(sinks, notify.NewEmailSink(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.EmailFrom))
	}
	sinks = append(sinks, notify.NewLogSink(logger))

	return notify.NewDispatcher(members, logger, sinks...)
}
