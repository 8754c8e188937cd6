package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"stocktracker/internal/config"
	"stocktracker/internal/models"
	"stocktracker/internal/repository"
)

// maxWalkStep bounds the per-tick move of the simulated feed.
const maxWalkStep = 0.05

var defaultSeedPrice = decimal.NewFromInt(100)

// ChangeInfo describes one significant price move.
type ChangeInfo struct {
	Symbol        string          `json:"symbol"`
	OldPrice      decimal.Decimal `json:"old_price"`
	NewPrice      decimal.Decimal `json:"new_price"`
	ChangePercent float64         `json:"change_percent"`
	Timestamp     time.Time       `json:"timestamp"`
}

// ChangeCallback observes significant moves. Callbacks run on the feed
// goroutine; each one is recovered individually so a bad callback cannot
// stall the feed or its neighbors.
type ChangeCallback func(ChangeInfo)

// TriggerFunc reacts to a significant move, typically by refreshing the
// symbol's stored history. It runs on a worker goroutine.
type TriggerFunc func(ctx context.Context, symbol string) error

// Status is the monitor's public state snapshot.
type Status struct {
	Running         bool              `json:"running"`
	ChangeThreshold float64           `json:"change_threshold"`
	Symbols         []string          `json:"symbols"`
	LastPrices      map[string]string `json:"last_prices"`
	TickInterval    string            `json:"tick_interval"`
	Workers         int               `json:"workers"`
}

// Monitor watches a set of symbols on a simulated live feed. Every tick is
// persisted; moves at or past the threshold fan out to callbacks and to a
// bounded trigger queue drained by a fixed worker pool. A full queue drops
// the trigger rather than blocking the feed.
type Monitor struct {
	Repo    repository.Store
	Logger  *zap.Logger
	Config  config.MonitorConfig
	Trigger TriggerFunc

	mu         sync.Mutex
	symbols    map[string]bool
	priceCache map[string]decimal.Decimal
	threshold  float64
	callbacks  []ChangeCallback
	running    bool

	// Per-run state, replaced on every Start. Stop hands the channel to the
	// workers for draining and nils it out, so a concurrent Start never races
	// a close.
	cancel   context.CancelFunc
	feedDone chan struct{}
	triggers chan string
	workers  *sync.WaitGroup

	rng *rand.Rand
}

func New(repo repository.Store, logger *zap.Logger, cfg config.MonitorConfig, trigger TriggerFunc) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Monitor{
		Repo:       repo,
		Logger:     logger,
		Config:     cfg,
		Trigger:    trigger,
		symbols:    map[string]bool{},
		priceCache: map[string]decimal.Decimal{},
		threshold:  cfg.ChangeThreshold,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, sym := range cfg.Symbols {
		m.symbols[strings.ToUpper(sym)] = true
	}
	return m
}

// Start seeds the price cache and launches the feed loop and worker pool.
// Starting a running monitor is a warn-level no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		m.Logger.Warn("monitor already running")
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	feedDone := make(chan struct{})
	m.feedDone = feedDone

	buffer := m.Config.TriggerBuffer
	if buffer <= 0 {
		buffer = 16
	}
	triggers := make(chan string, buffer)
	m.triggers = triggers

	workers := m.Config.Workers
	if workers <= 0 {
		workers = 1
	}
	wg := &sync.WaitGroup{}
	m.workers = wg
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go m.worker(runCtx, triggers, wg)
	}

	for symbol := range m.symbols {
		m.seedPriceLocked(runCtx, symbol)
	}

	go m.feed(runCtx, feedDone)
	m.running = true
	m.Logger.Info("monitor started",
		zap.Int("symbols", len(m.symbols)),
		zap.Float64("threshold", m.threshold),
		zap.Int("workers", workers))
}

// Stop halts the feed between ticks and drains the worker pool. Stopping a
// stopped monitor is a warn-level no-op.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		m.Logger.Warn("monitor not running")
		return
	}
	m.running = false
	cancel := m.cancel
	feedDone := m.feedDone
	triggers := m.triggers
	wg := m.workers
	m.triggers = nil
	m.mu.Unlock()

	cancel()
	<-feedDone
	close(triggers)
	wg.Wait()
	m.Logger.Info("monitor stopped")
}

// AddSymbol puts a symbol under watch, seeding its cache price from the last
// persisted tick.
func (m *Monitor) AddSymbol(ctx context.Context, symbol string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return fmt.Errorf("empty symbol")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.symbols[symbol] {
		return nil
	}
	m.symbols[symbol] = true
	m.seedPriceLocked(ctx, symbol)
	m.Logger.Info("symbol added to monitor", zap.String("symbol", symbol))
	return nil
}

// RemoveSymbol drops a symbol from the watch set.
func (m *Monitor) RemoveSymbol(symbol string) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.symbols[symbol] {
		return
	}
	delete(m.symbols, symbol)
	delete(m.priceCache, symbol)
	m.Logger.Info("symbol removed from monitor", zap.String("symbol", symbol))
}

// SetChangeThreshold replaces the significance threshold (a fraction, e.g.
// 0.02 for 2%).
func (m *Monitor) SetChangeThreshold(threshold float64) error {
	if threshold <= 0 || threshold >= 1 {
		return fmt.Errorf("threshold must be in (0, 1), got %v", threshold)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threshold = threshold
	m.Logger.Info("change threshold updated", zap.Float64("threshold", threshold))
	return nil
}

func (m *Monitor) AddChangeCallback(cb ChangeCallback) {
	if cb == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, cb)
}

func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := Status{
		Running:         m.running,
		ChangeThreshold: m.threshold,
		Symbols:         make([]string, 0, len(m.symbols)),
		LastPrices:      make(map[string]string, len(m.priceCache)),
		TickInterval:    m.Config.TickInterval.String(),
		Workers:         m.Config.Workers,
	}
	for sym := range m.symbols {
		st.Symbols = append(st.Symbols, sym)
	}
	sort.Strings(st.Symbols)
	for sym, price := range m.priceCache {
		st.LastPrices[sym] = price.String()
	}
	return st
}

// seedPriceLocked primes the cache from the last persisted tick, falling back
// to the default seed. Callers hold m.mu.
func (m *Monitor) seedPriceLocked(ctx context.Context, symbol string) {
	if _, ok := m.priceCache[symbol]; ok {
		return
	}
	price := defaultSeedPrice
	if m.Repo != nil {
		if last, err := m.Repo.LatestTickPrice(ctx, symbol); err != nil {
			m.Logger.Warn("price cache seed failed",
				zap.String("symbol", symbol),
				zap.Error(err))
		} else if last != nil {
			price = *last
		}
	}
	m.priceCache[symbol] = price
}

func (m *Monitor) feed(ctx context.Context, done chan struct{}) {
	defer close(done)
	interval := m.Config.TickInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	m.mu.Lock()
	symbols := make([]string, 0, len(m.symbols))
	for sym := range m.symbols {
		symbols = append(symbols, sym)
	}
	m.mu.Unlock()
	sort.Strings(symbols)

	for _, symbol := range symbols {
		if ctx.Err() != nil {
			return
		}
		m.observe(ctx, symbol, m.nextPrice(symbol), m.rng.Int63n(1_000_000)+1)
	}
}

// nextPrice advances the random walk for one symbol.
func (m *Monitor) nextPrice(symbol string) decimal.Decimal {
	m.mu.Lock()
	last, ok := m.priceCache[symbol]
	m.mu.Unlock()
	if !ok {
		last = defaultSeedPrice
	}
	step := (m.rng.Float64()*2 - 1) * maxWalkStep
	return last.Mul(decimal.NewFromFloat(1 + step)).Round(4)
}

// observe persists one price observation and fans out when the move against
// the cached price is significant. The tick row is written regardless, so the
// history stays complete even for quiet moves.
func (m *Monitor) observe(ctx context.Context, symbol string, price decimal.Decimal, volume int64) {
	now := time.Now().UTC()
	m.mu.Lock()
	old, seen := m.priceCache[symbol]
	m.priceCache[symbol] = price
	threshold := m.threshold
	callbacks := append([]ChangeCallback(nil), m.callbacks...)
	m.mu.Unlock()

	m.persistTick(ctx, symbol, price, volume, now)

	if !seen || old.IsZero() {
		return
	}
	changePercent, _ := price.Sub(old).Div(old).Mul(decimal.NewFromInt(100)).Float64()
	if abs(changePercent) < threshold*100 {
		return
	}

	info := ChangeInfo{
		Symbol:        symbol,
		OldPrice:      old,
		NewPrice:      price,
		ChangePercent: changePercent,
		Timestamp:     now,
	}
	m.Logger.Info("significant price change",
		zap.String("symbol", symbol),
		zap.String("old", old.String()),
		zap.String("new", price.String()),
		zap.Float64("change_percent", changePercent))

	for _, cb := range callbacks {
		m.invokeCallback(cb, info)
	}
	m.enqueueTrigger(symbol)
}

func (m *Monitor) persistTick(ctx context.Context, symbol string, price decimal.Decimal, volume int64, now time.Time) {
	if m.Repo == nil {
		return
	}
	raw, _ := json.Marshal(map[string]any{
		"source": "simulated",
		"price":  price.String(),
		"volume": volume,
	})
	tick := &models.StockTick{
		TickID:    fmt.Sprintf("%s_%d", symbol, now.UnixMilli()),
		Timestamp: now,
		Price:     price,
		Volume:    volume,
		RawJSON:   datatypes.JSON(raw),
	}
	if _, err := m.Repo.InsertTick(ctx, symbol, tick); err != nil {
		m.Logger.Warn("tick persist failed",
			zap.String("symbol", symbol),
			zap.Error(err))
	}
}

func (m *Monitor) invokeCallback(cb ChangeCallback, info ChangeInfo) {
	defer func() {
		if r := recover(); r != nil {
			m.Logger.Error("change callback panicked",
				zap.String("symbol", info.Symbol),
				zap.Any("panic", r))
		}
	}()
	cb(info)
}

func (m *Monitor) enqueueTrigger(symbol string) {
	m.mu.Lock()
	triggers := m.triggers
	m.mu.Unlock()
	if m.Trigger == nil || triggers == nil {
		return
	}
	select {
	case triggers <- symbol:
	default:
		m.Logger.Warn("trigger queue full, dropping",
			zap.String("symbol", symbol))
	}
}

func (m *Monitor) worker(ctx context.Context, triggers <-chan string, wg *sync.WaitGroup) {
	defer wg.Done()
	for symbol := range triggers {
		if ctx.Err() != nil {
			continue
		}
		if err := m.Trigger(ctx, symbol); err != nil {
			m.Logger.Warn("trigger failed",
				zap.String("symbol", symbol),
				zap.Error(err))
		}
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
