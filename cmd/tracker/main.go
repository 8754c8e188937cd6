package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"stocktracker/internal/config"
	"stocktracker/internal/db"
	"stocktracker/internal/etl"
	"stocktracker/internal/handler"
	"stocktracker/internal/linker"
	"stocktracker/internal/logger"
	"stocktracker/internal/monitor"
	"stocktracker/internal/provider"
	"stocktracker/internal/provider/alphavantage"
	"stocktracker/internal/provider/marketaux"
	"stocktracker/internal/provider/rss"
	gormrepository "stocktracker/internal/repository/gorm"
	"stocktracker/internal/scheduler"
	"stocktracker/internal/sentiment"
)

func main() {
	cfgPath := os.Getenv("ST_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("ST_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)
	if err := seedDefaultSymbols(context.Background(), store, cfg.ETL.DefaultSymbols, logger); err != nil {
		logger.Warn("default symbol seed failed", zap.Error(err))
	}

	avHTTP := &http.Client{Timeout: cfg.Providers.AlphaVantage.Timeout}
	avClient := alphavantage.NewClient(avHTTP, cfg.Providers.AlphaVantage.BaseURL, cfg.Providers.AlphaVantage.APIKey)

	newsProviders := []provider.NewsProvider{avClient}
	if cfg.Providers.Marketaux.APIToken != "" {
		mxHTTP := &http.Client{Timeout: cfg.Providers.Marketaux.Timeout}
		newsProviders = append(newsProviders, marketaux.NewClient(
			mxHTTP,
			cfg.Providers.Marketaux.BaseURL,
			cfg.Providers.Marketaux.APIToken,
			cfg.Providers.Marketaux.Language,
			cfg.Providers.Marketaux.PageSize,
		))
	}
	if cfg.Providers.RSS.Enabled && len(cfg.Providers.RSS.Feeds) > 0 {
		feeds := make([]rss.Feed, 0, len(cfg.Providers.RSS.Feeds))
		for _, f := range cfg.Providers.RSS.Feeds {
			feeds = append(feeds, rss.Feed{Name: f.Name, URL: f.URL})
		}
		newsProviders = append(newsProviders, rss.New(feeds, cfg.Providers.RSS.Timeout))
	}

	analyzer := sentiment.NewAnalyzer(logger)
	resolver := linker.NewResolver(store, logger)
	pipeline := etl.NewPipeline(store, avClient, newsProviders, analyzer, resolver, logger, cfg.ETL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(pipeline, store, logger, cfg.Scheduler)
	if cfg.Scheduler.Enabled {
		if err := sched.Start(ctx); err != nil {
			logger.Fatal("scheduler start failed", zap.Error(err))
		}
		defer sched.Stop()
	}

	mon := monitor.New(store, logger, cfg.Monitor, func(ctx context.Context, symbol string) error {
		return pipeline.RunStockETL(ctx, symbol)
	})
	if cfg.Monitor.Enabled {
		mon.Start(ctx)
		defer mon.Stop()
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	etlHandler := &handler.ETLHandler{Scheduler: sched, Resolver: resolver, Logger: logger}
	etlHandler.Register(engine)
	monitorHandler := &handler.MonitorHandler{Monitor: mon}
	monitorHandler.Register(engine)
	storeHandler := &handler.StoreHandler{Repo: store}
	storeHandler.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
}

// seedDefaultSymbols pre-creates the configured watch list on an empty store
// so the first scheduled cycle has symbols to work with.
func seedDefaultSymbols(ctx context.Context, store *gormrepository.Store, symbols []string, logger *zap.Logger) error {
	counts, err := store.CountsByEntity(ctx)
	if err != nil {
		return err
	}
	if counts.Stocks > 0 || len(symbols) == 0 {
		return nil
	}
	err = store.InTx(ctx, func(tx *gorm.DB) error {
		for _, symbol := range symbols {
			if _, err := store.UpsertStockTx(ctx, tx, symbol); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	logger.Info("seeded default symbols", zap.Strings("symbols", symbols))
	return nil
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
