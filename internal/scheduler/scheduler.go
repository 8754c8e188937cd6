package scheduler

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"stocktracker/internal/config"
	"stocktracker/internal/repository"
)

// Pipeline is the slice of the ETL orchestrator the scheduler drives.
type Pipeline interface {
	RunStockETL(ctx context.Context, symbol string) error
	RunNewsETL(ctx context.Context, forAllSymbols bool) error
	RunFullETL(ctx context.Context) error
}

// Scheduler owns the recurring ingestion cycles: a stock refresh, a news
// refresh, and one full ETL at a fixed wall-clock time each day.
type Scheduler struct {
	Pipeline Pipeline
	Repo     repository.Store
	Logger   *zap.Logger
	Config   config.SchedulerConfig

	cron    *cron.Cron
	baseCtx context.Context

	// sleep is swapped out in tests so retry backoff does not wall-block.
	sleep func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	running bool
}

func New(pipeline Pipeline, repo repository.Store, logger *zap.Logger, cfg config.SchedulerConfig) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		Pipeline: pipeline,
		Repo:     repo,
		Logger:   logger,
		Config:   cfg,
		sleep:    sleepCtx,
	}
}

// Start registers the cron entries and starts the runner. When configured, a
// full ETL runs immediately in the background so a fresh deployment has data
// before the first scheduled cycle.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.Logger.Warn("scheduler already running")
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s.baseCtx = ctx
	s.cron = cron.New(cron.WithSeconds())

	hour, minute, err := config.ParseWallClock(s.Config.FullAt)
	if err != nil {
		return fmt.Errorf("bad full etl time %q: %w", s.Config.FullAt, err)
	}

	entries := []struct {
		name string
		spec string
		job  func(context.Context)
	}{
		{"stock_refresh", fmt.Sprintf("@every %s", s.Config.StockInterval), s.stockRefresh},
		{"news_refresh", fmt.Sprintf("@every %s", s.Config.NewsInterval), s.newsRefresh},
		{"full_etl", fmt.Sprintf("0 %d %d * * *", minute, hour), s.fullETL},
	}
	for _, e := range entries {
		name, job := e.name, e.job
		if _, err := s.cron.AddFunc(e.spec, func() {
			s.runJob(name, job)
		}); err != nil {
			return fmt.Errorf("register %s: %w", name, err)
		}
	}

	if s.Config.InitialFull {
		go s.runJob("initial_full_etl", s.fullETL)
	}

	s.cron.Start()
	s.running = true
	s.Logger.Info("scheduler started",
		zap.Duration("stock_interval", s.Config.StockInterval),
		zap.Duration("news_interval", s.Config.NewsInterval),
		zap.String("full_at", s.Config.FullAt))
	return nil
}

// Stop halts the runner and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		s.Logger.Warn("scheduler not running")
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.Logger.Info("scheduler stopped")
}

// Manual triggers for the control surface. Each runs the same job body the
// cron entries run, synchronously.

func (s *Scheduler) TriggerStockRefresh(ctx context.Context) {
	s.stockRefresh(ctx)
}

func (s *Scheduler) TriggerNewsRefresh(ctx context.Context) error {
	return s.Pipeline.RunNewsETL(ctx, true)
}

func (s *Scheduler) TriggerFull(ctx context.Context) error {
	return s.Pipeline.RunFullETL(ctx)
}

// runJob shields the cron runner from job panics: one bad cycle must not
// take the scheduler down.
func (s *Scheduler) runJob(name string, job func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Error("scheduled job panicked",
				zap.String("job", name),
				zap.Any("panic", r))
		}
	}()
	start := time.Now()
	s.Logger.Info("job started", zap.String("job", name))
	job(s.baseCtx)
	s.Logger.Info("job finished",
		zap.String("job", name),
		zap.Duration("elapsed", time.Since(start)))
}

func (s *Scheduler) stockRefresh(ctx context.Context) {
	symbols, err := s.Repo.ListActiveStockSymbols(ctx)
	if err != nil {
		s.Logger.Error("stock refresh: list symbols", zap.Error(err))
		return
	}
	failed := 0
	for i, symbol := range symbols {
		symbol := symbol
		// Pace requests between symbols so the upstream rate limit is not
		// burned by one refresh cycle.
		if i > 0 && s.Config.SymbolDelay > 0 {
			if err := s.sleep(ctx, s.Config.SymbolDelay); err != nil {
				s.Logger.Warn("stock refresh interrupted", zap.Error(err))
				return
			}
		}
		err := s.withRetry(ctx, "stock etl "+symbol, func(ctx context.Context) error {
			return s.Pipeline.RunStockETL(ctx, symbol)
		})
		if err != nil {
			failed++
			s.Logger.Error("stock refresh: symbol failed",
				zap.String("symbol", symbol),
				zap.Error(err))
		}
	}
	if failed > 0 {
		s.Logger.Warn("stock refresh finished with failures",
			zap.Int("failed", failed),
			zap.Int("total", len(symbols)))
	}
}

func (s *Scheduler) newsRefresh(ctx context.Context) {
	if err := s.Pipeline.RunNewsETL(ctx, true); err != nil {
		s.Logger.Error("news refresh failed", zap.Error(err))
	}
}

func (s *Scheduler) fullETL(ctx context.Context) {
	if err := s.Pipeline.RunFullETL(ctx); err != nil {
		s.Logger.Error("full etl failed", zap.Error(err))
	}
}

// withRetry runs fn up to MaxAttempts times with exponential backoff
// (2^attempt seconds). Intermediate failures are logged at warn; only the
// final one is returned.
func (s *Scheduler) withRetry(ctx context.Context, desc string, fn func(ctx context.Context) error) error {
	attempts := s.Config.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		backoff := time.Duration(math.Pow(2, float64(attempt))) * time.Second
		s.Logger.Warn("retrying",
			zap.String("op", desc),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(lastErr))
		if err := s.sleep(ctx, backoff); err != nil {
			return err
		}
	}
	return lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
