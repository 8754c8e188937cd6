package monitor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"stocktracker/internal/config"
	"stocktracker/internal/models"
	"stocktracker/internal/repository"
)

type tickStore struct {
	ticks  []models.StockTick
	latest map[string]decimal.Decimal
}

func (s *tickStore) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }
func (s *tickStore) UpsertStockTx(ctx context.Context, tx *gorm.DB, symbol string) (*models.Stock, error) {
	return &models.Stock{ID: 1, Symbol: symbol}, nil
}
func (s *tickStore) UpdateStockInfo(ctx context.Context, symbol string, info repository.StockInfo) error {
	return nil
}
func (s *tickStore) ListActiveStocks(ctx context.Context) ([]models.Stock, error) { return nil, nil }
func (s *tickStore) ListActiveStockSymbols(ctx context.Context) ([]string, error) {
	return nil, nil
}
func (s *tickStore) InsertPriceBarIfAbsentTx(ctx context.Context, tx *gorm.DB, bar *models.PriceBar) (bool, error) {
	return false, nil
}
func (s *tickStore) FindArticleByURLTx(ctx context.Context, tx *gorm.DB, url string) (*models.NewsArticle, error) {
	return nil, nil
}
func (s *tickStore) InsertArticleTx(ctx context.Context, tx *gorm.DB, item *models.NewsArticle) error {
	return nil
}
func (s *tickStore) UpdateArticleTx(ctx context.Context, tx *gorm.DB, item *models.NewsArticle) error {
	return nil
}
func (s *tickStore) ListUnlinkedArticles(ctx context.Context) ([]models.NewsArticle, error) {
	return nil, nil
}
func (s *tickStore) InsertScoreIfAbsentTx(ctx context.Context, tx *gorm.DB, item *models.SentimentScore) (bool, error) {
	return false, nil
}
func (s *tickStore) InsertLinkIfAbsentTx(ctx context.Context, tx *gorm.DB, item *models.NewsStockLink) (bool, error) {
	return false, nil
}
func (s *tickStore) InsertTick(ctx context.Context, symbol string, tick *models.StockTick) (bool, error) {
	s.ticks = append(s.ticks, *tick)
	return true, nil
}
func (s *tickStore) LatestTickPrice(ctx context.Context, symbol string) (*decimal.Decimal, error) {
	if s.latest == nil {
		return nil, nil
	}
	if p, ok := s.latest[symbol]; ok {
		return &p, nil
	}
	return nil, nil
}
func (s *tickStore) CountsByEntity(ctx context.Context) (repository.Counts, error) {
	return repository.Counts{}, nil
}

func testConfig() config.MonitorConfig {
	return config.MonitorConfig{
		TickInterval:    5 * time.Second,
		ChangeThreshold: 0.02,
		Workers:         1,
		TriggerBuffer:   4,
	}
}

func price(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func TestObserveSignificantChange(t *testing.T) {
	store := &tickStore{}
	m := New(store, zap.NewNop(), testConfig(), nil)

	var fired []ChangeInfo
	m.AddChangeCallback(func(info ChangeInfo) { fired = append(fired, info) })

	ctx := context.Background()
	m.observe(ctx, "AAPL", price(100), 500) // seeds the cache
	m.observe(ctx, "AAPL", price(103), 600) // +3% at a 2% threshold

	if len(fired) != 1 {
		t.Fatalf("expected 1 callback, got %d", len(fired))
	}
	if fired[0].Symbol != "AAPL" {
		t.Fatalf("unexpected symbol: %s", fired[0].Symbol)
	}
	if fired[0].ChangePercent < 2.9 || fired[0].ChangePercent > 3.1 {
		t.Fatalf("expected ~3%% change, got %v", fired[0].ChangePercent)
	}
	// Both observations are persisted regardless of significance.
	if len(store.ticks) != 2 {
		t.Fatalf("expected 2 ticks persisted, got %d", len(store.ticks))
	}
}

func TestObserveQuietChange(t *testing.T) {
	store := &tickStore{}
	m := New(store, zap.NewNop(), testConfig(), nil)

	var fired int
	m.AddChangeCallback(func(ChangeInfo) { fired++ })

	ctx := context.Background()
	m.observe(ctx, "AAPL", price(100), 500)
	m.observe(ctx, "AAPL", price(101), 600) // +1%, below 2%

	if fired != 0 {
		t.Fatalf("quiet move must not fire callbacks, got %d", fired)
	}
	if len(store.ticks) != 2 {
		t.Fatalf("quiet ticks are still persisted, got %d", len(store.ticks))
	}
}

func TestCallbackPanicIsContained(t *testing.T) {
	store := &tickStore{}
	m := New(store, zap.NewNop(), testConfig(), nil)

	var after int
	m.AddChangeCallback(func(ChangeInfo) { panic("boom") })
	m.AddChangeCallback(func(ChangeInfo) { after++ })

	ctx := context.Background()
	m.observe(ctx, "TSLA", price(100), 1)
	m.observe(ctx, "TSLA", price(110), 1)

	if after != 1 {
		t.Fatalf("a panicking callback must not stop the next one, got %d", after)
	}
}

func TestTriggerQueueDropsWhenFull(t *testing.T) {
	m := New(&tickStore{}, zap.NewNop(), testConfig(), func(ctx context.Context, symbol string) error {
		return nil
	})
	m.triggers = make(chan string, 1)

	m.enqueueTrigger("AAPL")
	m.enqueueTrigger("TSLA") // queue full, dropped

	if len(m.triggers) != 1 {
		t.Fatalf("expected 1 queued trigger, got %d", len(m.triggers))
	}
	if got := <-m.triggers; got != "AAPL" {
		t.Fatalf("expected first trigger kept, got %s", got)
	}
}

func TestTickIDFormat(t *testing.T) {
	store := &tickStore{}
	m := New(store, zap.NewNop(), testConfig(), nil)

	m.observe(context.Background(), "NVDA", price(100), 1)

	if len(store.ticks) != 1 {
		t.Fatalf("expected 1 tick, got %d", len(store.ticks))
	}
	id := store.ticks[0].TickID
	if len(id) < len("NVDA_")+10 || id[:5] != "NVDA_" {
		t.Fatalf("unexpected tick id %q", id)
	}
}

func TestSeedPriceFromStore(t *testing.T) {
	seeded := price(250.5)
	store := &tickStore{latest: map[string]decimal.Decimal{"AAPL": seeded}}
	m := New(store, zap.NewNop(), testConfig(), nil)

	ctx := context.Background()
	if err := m.AddSymbol(ctx, "aapl"); err != nil {
		t.Fatalf("AddSymbol: %v", err)
	}
	if err := m.AddSymbol(ctx, "MSFT"); err != nil {
		t.Fatalf("AddSymbol: %v", err)
	}

	st := m.Status()
	if st.LastPrices["AAPL"] != "250.5" {
		t.Fatalf("expected AAPL seeded from store, got %q", st.LastPrices["AAPL"])
	}
	if st.LastPrices["MSFT"] != "100" {
		t.Fatalf("expected MSFT default seed, got %q", st.LastPrices["MSFT"])
	}
}

func TestSetChangeThreshold(t *testing.T) {
	m := New(&tickStore{}, zap.NewNop(), testConfig(), nil)
	if err := m.SetChangeThreshold(0.05); err != nil {
		t.Fatalf("SetChangeThreshold: %v", err)
	}
	if got := m.Status().ChangeThreshold; got != 0.05 {
		t.Fatalf("expected 0.05, got %v", got)
	}
	for _, bad := range []float64{0, -0.1, 1, 2} {
		if err := m.SetChangeThreshold(bad); err == nil {
			t.Fatalf("expected error for threshold %v", bad)
		}
	}
}

func TestAddRemoveSymbol(t *testing.T) {
	m := New(&tickStore{}, zap.NewNop(), testConfig(), nil)
	ctx := context.Background()

	if err := m.AddSymbol(ctx, "tsla"); err != nil {
		t.Fatalf("AddSymbol: %v", err)
	}
	if err := m.AddSymbol(ctx, "TSLA"); err != nil {
		t.Fatalf("AddSymbol twice: %v", err)
	}
	st := m.Status()
	if len(st.Symbols) != 1 || st.Symbols[0] != "TSLA" {
		t.Fatalf("expected [TSLA], got %v", st.Symbols)
	}

	m.RemoveSymbol("TSLA")
	m.RemoveSymbol("TSLA") // no-op
	if got := m.Status().Symbols; len(got) != 0 {
		t.Fatalf("expected empty watch set, got %v", got)
	}

	if err := m.AddSymbol(ctx, "  "); err == nil {
		t.Fatal("expected error for blank symbol")
	}
}

func TestStartStopLifecycle(t *testing.T) {
	var triggered atomic.Int32
	m := New(&tickStore{}, zap.NewNop(), config.MonitorConfig{
		TickInterval:    time.Hour, // never ticks during the test
		ChangeThreshold: 0.02,
		Workers:         2,
		TriggerBuffer:   4,
		Symbols:         []string{"AAPL"},
	}, func(ctx context.Context, symbol string) error {
		triggered.Add(1)
		return nil
	})

	ctx := context.Background()
	m.Start(ctx)
	m.Start(ctx) // warn-level no-op
	if !m.Status().Running {
		t.Fatal("expected running")
	}

	m.Stop()
	m.Stop() // warn-level no-op
	if m.Status().Running {
		t.Fatal("expected stopped")
	}
}

func TestRestartKeepsWorkerPoolAlive(t *testing.T) {
	got := make(chan string, 1)
	m := New(&tickStore{}, zap.NewNop(), config.MonitorConfig{
		TickInterval:    time.Hour, // never ticks during the test
		ChangeThreshold: 0.02,
		Workers:         1,
		TriggerBuffer:   4,
		Symbols:         []string{"AAPL"},
	}, func(ctx context.Context, symbol string) error {
		select {
		case got <- symbol:
		default:
		}
		return nil
	})

	ctx := context.Background()
	m.Start(ctx)
	m.Stop()

	// The second run gets its own trigger queue and workers; the first
	// Stop must not have torn them down.
	m.Start(ctx)
	m.enqueueTrigger("AAPL")
	select {
	case symbol := <-got:
		if symbol != "AAPL" {
			t.Fatalf("unexpected trigger %q", symbol)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("trigger not handled after restart")
	}
	m.Stop()

	// After the final Stop the queue is gone; enqueue is a silent no-op.
	m.enqueueTrigger("TSLA")
	if m.Status().Running {
		t.Fatal("expected stopped")
	}
}
