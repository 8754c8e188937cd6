package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
db:
  dsn: "file:test.db?mode=memory"
  driver: sqlite
`)
	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPAddr != ":8080" {
		t.Fatalf("unexpected default addr: %s", cfg.Server.HTTPAddr)
	}
	if cfg.Scheduler.StockInterval != 30*time.Minute {
		t.Fatalf("unexpected default stock interval: %v", cfg.Scheduler.StockInterval)
	}
	if cfg.Scheduler.FullAt != "16:30" {
		t.Fatalf("unexpected default full_at: %s", cfg.Scheduler.FullAt)
	}
	if cfg.Monitor.ChangeThreshold != 0.02 {
		t.Fatalf("unexpected default threshold: %v", cfg.Monitor.ChangeThreshold)
	}
	if len(cfg.ETL.DefaultSymbols) == 0 {
		t.Fatal("expected default symbols")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
db:
  dsn: "host=localhost user=app dbname=tracker"
scheduler:
  stock_interval: 10m
  full_at: "09:00"
monitor:
  change_threshold: 0.05
  symbols: ["NVDA"]
providers:
  rss:
    enabled: true
    feeds:
      - name: reuters-business
        url: https://example.com/business.rss
`)
	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scheduler.StockInterval != 10*time.Minute {
		t.Fatalf("override not applied: %v", cfg.Scheduler.StockInterval)
	}
	if cfg.Monitor.ChangeThreshold != 0.05 {
		t.Fatalf("override not applied: %v", cfg.Monitor.ChangeThreshold)
	}
	if len(cfg.Providers.RSS.Feeds) != 1 || cfg.Providers.RSS.Feeds[0].Name != "reuters-business" {
		t.Fatalf("feed override not applied: %+v", cfg.Providers.RSS.Feeds)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		path := writeConfig(t, `
db:
  dsn: "host=localhost"
`)
		cfg, err := Load(path, false)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		return cfg
	}

	cfg := base()
	cfg.DB.DSN = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty dsn must fail validation")
	}

	cfg = base()
	cfg.DB.Driver = "oracle"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown driver must fail validation")
	}

	cfg = base()
	cfg.Scheduler.FullAt = "not-a-time"
	if err := cfg.Validate(); err == nil {
		t.Fatal("bad full_at must fail validation")
	}

	cfg = base()
	cfg.Monitor.ChangeThreshold = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero threshold must fail validation")
	}
}

func TestParseWallClock(t *testing.T) {
	h, m, err := ParseWallClock("16:30")
	if err != nil || h != 16 || m != 30 {
		t.Fatalf("got %d:%d, %v", h, m, err)
	}
	if _, _, err := ParseWallClock("25:00"); err == nil {
		t.Fatal("expected error for 25:00")
	}
	if _, _, err := ParseWallClock(""); err == nil {
		t.Fatal("expected error for empty string")
	}
}
